// Package harness runs routing scenarios end to end: program analysis,
// merchant graph construction and connector eligibility, with a
// deterministic trace for golden file comparison.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: card_routing
//	description: "Cards route to stripe, bank transfers to adyen"
//	program: |
//	  default: priority: ["checkout"]
//	  rules: [{
//	    name: "cards"
//	    output: priority: ["stripe"]
//	    statements: [{condition: [{lhs: "payment_method", value: "card"}]}]
//	  }]
//	graph: merchant
//	key:
//	  merchant: m_1
//	  profile: pro_1
//	config:
//	  accounts:
//	    - id: acc_stripe
//	      connector: stripe
//	      payment_methods:
//	        - payment_method: card
//	requests:
//	  - name: card_usd
//	    input: { payment_method: card, currency: USD, amount: 500 }
//	    candidates: [stripe, adyen]
//	assertions:
//	  - type: analysis
//	    code: ok
//	  - type: eligible
//	    request: card_usd
//	    connectors: [stripe]
//
// A scenario needs a program (inline or program_file), requests, or both.
// Unknown fields are rejected.
//
// # Assertion Types
//
//   - analysis: the program verdict is "ok" or the given error code
//   - eligible: the exact ordered eligible list of a request
//   - rejected: a connector was dropped, optionally for a given reason
//   - trace_contains: at least one trace event matches
//   - trace_count: exactly N trace events match
//
// # Deterministic Testing
//
// Each run uses a fresh GraphCache whose snapshot ids come from
// testutil.SequenceIDGenerator and whose versions and build times come
// from testutil.ManualClock. Trace sequence numbers restart at 1.
// Running the same scenario twice produces byte-identical golden output.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/card_routing.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
