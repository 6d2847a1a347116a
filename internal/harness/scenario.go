package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/result"
	"github.com/roach88/recordupdate/internal/update"
)

// DefaultNow is the clock of a scenario without an explicit now.
var DefaultNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// Scenario is one update conversation with its expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Now is the fixed clock of the run. Default: DefaultNow.
	Now *time.Time `yaml:"now,omitempty"`

	// Production runs the scenario as a production instance, where test
	// agencies are rejected.
	Production bool `yaml:"production,omitempty"`

	// Setup is the repository state before the first request.
	Setup Fixture `yaml:"setup,omitempty"`

	// DoubleRecord is the verdict of the duplicate check. Default: ok.
	DoubleRecord *DoubleRecordStub `yaml:"double_record,omitempty"`

	// Flow holds the requests, sent in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the trees and the final repository state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// DoubleRecordStub is a fixed answer of the duplicate check.
type DoubleRecordStub struct {
	Status     string      `yaml:"status"`
	Candidates []Candidate `yaml:"candidates,omitempty"`
}

// Candidate is one duplicate the stub reports.
type Candidate struct {
	PID     string `yaml:"pid"`
	Message string `yaml:"message"`
}

// FlowStep is one request and its expected response.
type FlowStep struct {
	Request update.Request `yaml:"request"`

	// UseKey sends the double record key of the previous response.
	UseKey bool `yaml:"use_key,omitempty"`

	// Expect is checked against the response. Nil means no check.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes an expected response.
type Expect struct {
	// Status is the expected response status.
	Status result.Status `yaml:"status"`

	// Messages must all appear among the response messages.
	Messages []string `yaml:"messages,omitempty"`

	// Tree is the exact pre-order list of executed action names.
	Tree []string `yaml:"tree,omitempty"`
}

// Assertion validates the trees or the final repository state.
type Assertion struct {
	Type string `yaml:"type"`

	// Record is the record of record_* and queue_contains assertions, and
	// the parent of children assertions.
	Record *marc.RecordID `yaml:"record,omitempty"`

	// Field, Subfield and Value locate an expected value (record_field).
	Field    string `yaml:"field,omitempty"`
	Subfield string `yaml:"subfield,omitempty"`
	Value    string `yaml:"value,omitempty"`

	// Provider is the queue to look in (queue_contains).
	Provider string `yaml:"provider,omitempty"`

	// Action is the action name (tree_contains, tree_count).
	Action string `yaml:"action,omitempty"`

	// Count is the expected number of executions (tree_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected order (tree_order).
	Actions []string `yaml:"actions,omitempty"`

	// Records are the expected children (children).
	Records []marc.RecordID `yaml:"records,omitempty"`
}

// Assertion type constants.
const (
	AssertRecordExists  = "record_exists"
	AssertRecordAbsent  = "record_absent"
	AssertRecordField   = "record_field"
	AssertQueueContains = "queue_contains"
	AssertChildren      = "children"
	AssertTreeContains  = "tree_contains"
	AssertTreeOrder     = "tree_order"
	AssertTreeCount     = "tree_count"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses a scenario document.
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

// LoadDir loads every *.yaml scenario of dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, s)
	}
	return out, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	for i, step := range s.Flow {
		if step.Request.Record == "" {
			return fmt.Errorf("flow[%d]: request.record is required", i)
		}
		if step.UseKey && i == 0 {
			return fmt.Errorf("flow[0]: use_key needs a previous step")
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertRecordExists, AssertRecordAbsent:
		if a.Record == nil {
			return fmt.Errorf("%s requires record", a.Type)
		}
	case AssertRecordField:
		if a.Record == nil || a.Field == "" || a.Subfield == "" {
			return fmt.Errorf("%s requires record, field and subfield", a.Type)
		}
	case AssertQueueContains:
		if a.Record == nil || a.Provider == "" {
			return fmt.Errorf("%s requires record and provider", a.Type)
		}
	case AssertChildren:
		if a.Record == nil {
			return fmt.Errorf("%s requires record", a.Type)
		}
	case AssertTreeContains, AssertTreeCount:
		if a.Action == "" {
			return fmt.Errorf("%s requires action", a.Type)
		}
	case AssertTreeOrder:
		if len(a.Actions) < 2 {
			return fmt.Errorf("%s requires at least two actions", a.Type)
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
