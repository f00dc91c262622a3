package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/routegraph/internal/routing"
)

// Graph modes for program analysis.
const (
	GraphNone     = ""         // contradiction checks only
	GraphDefault  = "default"  // built-in domain knowledge
	GraphMerchant = "merchant" // graph built from the scenario config
)

// Scenario is one routing test case: a rule program to analyze, a merchant
// configuration, and payment requests to filter against it.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is an inline CUE routing program.
	Program string `yaml:"program,omitempty"`

	// ProgramFile is a CUE file holding the program. Relative paths are
	// resolved against the scenario file's directory.
	ProgramFile string `yaml:"program_file,omitempty"`

	// Graph selects the knowledge graph the program is checked against.
	Graph string `yaml:"graph,omitempty"`

	// Key scopes the merchant configuration. Missing parts get defaults.
	Key Key `yaml:"key,omitempty"`

	// Config is the merchant's connector configuration.
	Config *routing.Config `yaml:"config,omitempty"`

	// Requests are evaluated in order against the merchant graph.
	Requests []Request `yaml:"requests,omitempty"`

	// Assertions validate the analysis verdict, eligibility and trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Key is the YAML form of a routing.CacheKey.
type Key struct {
	Tenant          string `yaml:"tenant,omitempty"`
	Merchant        string `yaml:"merchant,omitempty"`
	Profile         string `yaml:"profile,omitempty"`
	TransactionType string `yaml:"transaction_type,omitempty"`
}

// Request is one payment request and its connector candidates.
type Request struct {
	Name       string               `yaml:"name"`
	Input      routing.PaymentInput `yaml:"input"`
	Candidates []string             `yaml:"candidates"`
}

// Assertion validates one aspect of a run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Code is the expected analysis code (analysis).
	Code string `yaml:"code,omitempty"`

	// Request names the request under test (eligible, rejected).
	Request string `yaml:"request,omitempty"`

	// Connectors is the exact ordered eligible list (eligible).
	Connectors []string `yaml:"connectors,omitempty"`

	// Connector must be among the rejected candidates (rejected).
	Connector string `yaml:"connector,omitempty"`

	// Reason must appear in the rejection reason (rejected, optional).
	Reason string `yaml:"reason,omitempty"`

	// Event is the trace event type (trace_contains, trace_count).
	Event string `yaml:"event,omitempty"`

	// Rule and Detail narrow the matched events (trace_contains, trace_count).
	Rule   string `yaml:"rule,omitempty"`
	Detail string `yaml:"detail,omitempty"`

	// Count is the expected number of matching events (trace_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertAnalysis      = "analysis"
	AssertEligible      = "eligible"
	AssertRejected      = "rejected"
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
)

// CacheKey returns the routing key, defaulting tenant to "public",
// merchant to the scenario name, profile to "default" and the
// transaction type to payment.
func (s *Scenario) CacheKey() (routing.CacheKey, error) {
	key := routing.CacheKey{
		Tenant:          s.Key.Tenant,
		Merchant:        s.Key.Merchant,
		Profile:         s.Key.Profile,
		TransactionType: routing.Payment,
	}
	if key.Tenant == "" {
		key.Tenant = "public"
	}
	if key.Merchant == "" {
		key.Merchant = s.Name
	}
	if key.Profile == "" {
		key.Profile = "default"
	}
	if s.Key.TransactionType != "" {
		tt, err := routing.ParseTransactionType(s.Key.TransactionType)
		if err != nil {
			return routing.CacheKey{}, err
		}
		key.TransactionType = tt
	}
	return key, nil
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads a scenario and resolves program_file
// relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.ProgramFile != "" && !filepath.IsAbs(scenario.ProgramFile) && basePath != "" {
		scenario.ProgramFile = filepath.Join(basePath, scenario.ProgramFile)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML without validating it.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns every .yaml/.yml file under dir, sorted by path.
// A non-empty filter is a glob matched against the file's base name.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			ok, err := filepath.Match(filter, strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())))
			if err != nil {
				return fmt.Errorf("invalid filter %q: %w", filter, err)
			}
			if !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Program != "" && s.ProgramFile != "" {
		return fmt.Errorf("program and program_file are mutually exclusive")
	}
	hasProgram := s.Program != "" || s.ProgramFile != ""
	if !hasProgram && len(s.Requests) == 0 {
		return fmt.Errorf("scenario needs a program or at least one request")
	}
	if s.ProgramFile != "" {
		if _, err := os.Stat(s.ProgramFile); os.IsNotExist(err) {
			return fmt.Errorf("program file not found: %s", s.ProgramFile)
		}
	}

	switch s.Graph {
	case GraphNone, GraphDefault:
	case GraphMerchant:
		if s.Config == nil {
			return fmt.Errorf("graph %q requires config", GraphMerchant)
		}
	default:
		return fmt.Errorf("unknown graph %q", s.Graph)
	}
	if s.Graph != GraphNone && !hasProgram {
		return fmt.Errorf("graph %q requires a program", s.Graph)
	}

	if len(s.Requests) > 0 && s.Config == nil {
		return fmt.Errorf("requests require config")
	}
	if _, err := s.CacheKey(); err != nil {
		return fmt.Errorf("key: %w", err)
	}

	names := make(map[string]bool, len(s.Requests))
	for i, r := range s.Requests {
		if r.Name == "" {
			return fmt.Errorf("requests[%d]: name is required", i)
		}
		if names[r.Name] {
			return fmt.Errorf("requests[%d]: duplicate name %q", i, r.Name)
		}
		names[r.Name] = true
		if len(r.Candidates) == 0 {
			return fmt.Errorf("requests[%d]: candidates list is required", i)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, names); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion, requests map[string]bool) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertAnalysis:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for analysis", index)
		}
	case AssertEligible, AssertRejected:
		if !requests[a.Request] {
			return fmt.Errorf("assertions[%d]: unknown request %q", index, a.Request)
		}
		if a.Type == AssertRejected && a.Connector == "" {
			return fmt.Errorf("assertions[%d]: connector is required for rejected", index)
		}
	case AssertTraceContains, AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for %s", index, a.Type)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
