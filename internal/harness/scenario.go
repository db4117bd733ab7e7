package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gridsync/internal/ir"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Policy is optional CUE source overriding the default policy.
	Policy string `yaml:"policy,omitempty"`

	// Steps are executed in order, one command each.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state and trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one command issued by a principal.
type Step struct {
	// As is the calling principal.
	As string `yaml:"as"`

	// Do is the command kind, e.g. "buy-energy".
	Do string `yaml:"do"`

	Listing uint64 `yaml:"listing,omitempty"`
	Units   uint64 `yaml:"units,omitempty"`
	Price   uint64 `yaml:"price,omitempty"`

	// Expect validates the receipt. If nil, any receipt is accepted.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// Command converts the step into an engine command.
func (s Step) Command() (ir.Command, error) {
	kind, err := ir.ParseKind(s.Do)
	if err != nil {
		return ir.Command{}, err
	}
	return ir.Command{
		Kind:      kind,
		Caller:    s.As,
		ListingID: s.Listing,
		Units:     s.Units,
		Price:     s.Price,
	}, nil
}

// ExpectClause specifies the expected receipt.
type ExpectClause struct {
	// Case is "ok" or a rejection code such as "InsufficientUnits".
	Case string `yaml:"case"`

	// Result is a subset match against the receipt result.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates the final state or the trace.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Principal selects the record for producer and consumer assertions.
	Principal string `yaml:"principal,omitempty"`

	// Listing selects the record for listing assertions.
	Listing uint64 `yaml:"listing,omitempty"`

	// Absent asserts that the record does not exist.
	Absent bool `yaml:"absent,omitempty"`

	// Expect is a subset match against the record's fields.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Case and Count are used by trace_count.
	Case  string `yaml:"case,omitempty"`
	Count int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertProducer   = "producer"
	AssertConsumer   = "consumer"
	AssertListing    = "listing"
	AssertTraceCount = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.As == "" {
			return fmt.Errorf("steps[%d]: as is required", i)
		}
		if _, err := step.Command(); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		if step.Expect != nil && step.Expect.Case == "" {
			return fmt.Errorf("steps[%d].expect: case is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertProducer, AssertConsumer:
		if a.Principal == "" {
			return fmt.Errorf("assertions[%d]: principal is required for %s", index, a.Type)
		}
	case AssertListing:
		if a.Listing == 0 {
			return fmt.Errorf("assertions[%d]: listing is required for listing", index)
		}
	case AssertTraceCount:
		if a.Case == "" {
			return fmt.Errorf("assertions[%d]: case is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
		return nil
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if !a.Absent && len(a.Expect) == 0 {
		return fmt.Errorf("assertions[%d]: expect or absent is required for %s", index, a.Type)
	}
	return nil
}
