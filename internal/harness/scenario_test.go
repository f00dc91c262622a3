package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/routegraph/internal/routing"
)

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validScenario = `
name: test_scenario
description: "Cards go to stripe"
program: |
  default: priority: ["stripe"]
config:
  accounts:
    - id: acc_stripe
      connector: stripe
      payment_methods:
        - payment_method: card
requests:
  - name: card
    input: { payment_method: card, amount: 100 }
    candidates: [stripe]
assertions:
  - type: eligible
    request: card
    connectors: [stripe]
`

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "test.yaml", validScenario)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Cards go to stripe", scenario.Description)
	assert.Contains(t, scenario.Program, "default:")
	require.NotNil(t, scenario.Config)
	require.Len(t, scenario.Config.Accounts, 1)
	assert.Equal(t, "card", scenario.Config.Accounts[0].PaymentMethods[0].PaymentMethod)
	require.Len(t, scenario.Requests, 1)
	assert.Equal(t, "card", scenario.Requests[0].Input.PaymentMethod)
	require.NotNil(t, scenario.Requests[0].Input.Amount)
	assert.Equal(t, int64(100), *scenario.Requests[0].Input.Amount)
	assert.Equal(t, []string{"stripe"}, scenario.Requests[0].Candidates)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "typo.yaml", validScenario+"assertion: []\n")

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_ResolvesProgramFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p.cue"), []byte(`routing: p: default: priority: ["stripe"]`), 0644))
	path := writeScenario(t, dir, "s.yaml", `
name: file_program
description: "program from a file"
program_file: p.cue
assertions:
  - type: analysis
    code: ok
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "p.cue"), scenario.ProgramFile)
}

func TestValidateScenario(t *testing.T) {
	base := func() *Scenario {
		return &Scenario{
			Name:        "s",
			Description: "d",
			Program:     `default: priority: ["stripe"]`,
			Assertions:  []Assertion{{Type: AssertAnalysis, Code: AnalysisOK}},
		}
	}
	cfg := &routing.Config{}

	tests := []struct {
		name   string
		mutate func(*Scenario)
		errMsg string
	}{
		{"valid", func(*Scenario) {}, ""},
		{"missing name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"missing description", func(s *Scenario) { s.Description = "" }, "description is required"},
		{"nothing to run", func(s *Scenario) { s.Program = "" }, "needs a program or at least one request"},
		{"both program forms", func(s *Scenario) { s.ProgramFile = "x.cue" }, "mutually exclusive"},
		{"missing program file", func(s *Scenario) { s.Program = ""; s.ProgramFile = "/nonexistent/x.cue" }, "program file not found"},
		{"unknown graph", func(s *Scenario) { s.Graph = "global" }, `unknown graph "global"`},
		{"merchant graph without config", func(s *Scenario) { s.Graph = GraphMerchant }, "requires config"},
		{"requests without config", func(s *Scenario) {
			s.Requests = []Request{{Name: "r", Candidates: []string{"stripe"}}}
		}, "requests require config"},
		{"request without name", func(s *Scenario) {
			s.Config = cfg
			s.Requests = []Request{{Candidates: []string{"stripe"}}}
		}, "requests[0]: name is required"},
		{"duplicate request", func(s *Scenario) {
			s.Config = cfg
			s.Requests = []Request{{Name: "r", Candidates: []string{"a"}}, {Name: "r", Candidates: []string{"b"}}}
		}, `duplicate name "r"`},
		{"request without candidates", func(s *Scenario) {
			s.Config = cfg
			s.Requests = []Request{{Name: "r"}}
		}, "candidates list is required"},
		{"bad transaction type", func(s *Scenario) { s.Key.TransactionType = "refund" }, "key:"},
		{"no assertions", func(s *Scenario) { s.Assertions = nil }, "assertions list is required"},
		{"assertion without type", func(s *Scenario) { s.Assertions = []Assertion{{}} }, "type is required"},
		{"unknown assertion", func(s *Scenario) { s.Assertions = []Assertion{{Type: "final_state"}} }, "unknown assertion type"},
		{"analysis without code", func(s *Scenario) { s.Assertions = []Assertion{{Type: AssertAnalysis}} }, "code is required"},
		{"eligible for unknown request", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertEligible, Request: "nope"}}
		}, `unknown request "nope"`},
		{"trace assertion without event", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertTraceCount}}
		}, "event is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(s)
			err := validateScenario(s)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestScenarioCacheKeyDefaults(t *testing.T) {
	s := &Scenario{Name: "merchant_x"}
	key, err := s.CacheKey()
	require.NoError(t, err)
	assert.Equal(t, routing.CacheKey{Tenant: "public", Merchant: "merchant_x", Profile: "default", TransactionType: routing.Payment}, key)

	s.Key = Key{Tenant: "eu", Merchant: "m_9", Profile: "pro_2", TransactionType: "PAYOUT"}
	key, err = s.CacheKey()
	require.NoError(t, err)
	assert.Equal(t, routing.CacheKey{Tenant: "eu", Merchant: "m_9", Profile: "pro_2", TransactionType: routing.Payout}, key)
}

func TestFindScenarios(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "b_cards.yaml", "")
	writeScenario(t, dir, "a_bank.yml", "")
	writeScenario(t, dir, "notes.txt", "")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	writeScenario(t, filepath.Join(dir, "golden"), "ignored.yaml", "")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	writeScenario(t, filepath.Join(dir, "nested"), "c_wallet.yaml", "")

	files, err := FindScenarios(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a_bank.yml"),
		filepath.Join(dir, "b_cards.yaml"),
		filepath.Join(dir, "nested", "c_wallet.yaml"),
	}, files)

	files, err = FindScenarios(dir, "*_cards")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b_cards.yaml")}, files)
}
