package harness

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/choreo/internal/command"
)

// Scenario defines a choreography test scenario: definitions to register,
// a sequence of signals and clock advances, and assertions on the result.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Choreographies lists definition files (.cue, .yaml, .yml, .json).
	// Relative paths are resolved against the scenario file's directory.
	Choreographies []string `yaml:"choreographies"`

	// FrameMs is the ManualClock frame size. 0 means every advance is a
	// single tick.
	FrameMs float64 `yaml:"frame_ms,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and registry state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is either a signal or a clock advance.
type Step struct {
	// Signal is the signal type to send.
	Signal string `yaml:"signal,omitempty"`

	// Payload is the signal payload.
	Payload map[string]any `yaml:"payload,omitempty"`

	// Correlation is the optional correlation id sent with the signal.
	Correlation string `yaml:"correlation,omitempty"`

	// Advance moves the clock forward by this many milliseconds.
	Advance *float64 `yaml:"advance,omitempty"`
}

// Match selects commands. Empty fields match anything.
type Match struct {
	Kind          string         `yaml:"kind,omitempty"`
	Performance   string         `yaml:"performance,omitempty"`
	Action        string         `yaml:"action,omitempty"`
	Entity        string         `yaml:"entity,omitempty"`
	Easing        string         `yaml:"easing,omitempty"`
	Correlation   string         `yaml:"correlation,omitempty"`
	InterruptedBy string         `yaml:"interrupted_by,omitempty"`
	Params        map[string]any `yaml:"params,omitempty"`
}

// Assertion validates the trace or the registry.
type Assertion struct {
	// Type specifies the assertion type:
	// - "command_contains": some command matches
	// - "command_order": Commands match in order
	// - "command_count": exactly Count commands match
	// - "active_count": Count performances are still running
	Type string `yaml:"type"`

	// Match fields are used by command_contains and command_count.
	Match `yaml:",inline"`

	// Count is required by command_count and active_count.
	Count *int `yaml:"count,omitempty"`

	// Commands is the expected order (used by command_order).
	Commands []Match `yaml:"commands,omitempty"`
}

// Assertion type constants.
const (
	AssertCommandContains = "command_contains"
	AssertCommandOrder    = "command_order"
	AssertCommandCount    = "command_count"
	AssertActiveCount     = "active_count"
)

// LoadScenario reads and parses a scenario YAML file. Choreography paths
// are resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving choreography paths relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve paths BEFORE validation so existence checks see real files.
	for i, p := range scenario.Choreographies {
		if !filepath.IsAbs(p) && basePath != "" {
			scenario.Choreographies[i] = filepath.Join(basePath, p)
		}
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML without validating file references.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Choreographies) == 0 {
		return fmt.Errorf("choreographies list is required and must be non-empty")
	}

	if s.FrameMs < 0 || math.IsNaN(s.FrameMs) || math.IsInf(s.FrameMs, 0) {
		return fmt.Errorf("frame_ms must be a finite number >= 0")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, p := range s.Choreographies {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("choreography file not found: %s", p)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, step Step) error {
	hasSignal := step.Signal != ""
	hasAdvance := step.Advance != nil

	switch {
	case hasSignal && hasAdvance:
		return fmt.Errorf("steps[%d]: signal and advance are mutually exclusive", index)
	case !hasSignal && !hasAdvance:
		return fmt.Errorf("steps[%d]: one of signal or advance is required", index)
	case hasAdvance && (math.IsNaN(*step.Advance) || math.IsInf(*step.Advance, 0)):
		return fmt.Errorf("steps[%d]: advance must be finite", index)
	case hasAdvance && (step.Payload != nil || step.Correlation != ""):
		return fmt.Errorf("steps[%d]: payload and correlation only apply to signal steps", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCommandContains:
		if err := validateMatch(a.Match); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertCommandOrder:
		if len(a.Commands) == 0 {
			return fmt.Errorf("assertions[%d]: commands list is required for command_order", index)
		}
		for j, m := range a.Commands {
			if err := validateMatch(m); err != nil {
				return fmt.Errorf("assertions[%d].commands[%d]: %w", index, j, err)
			}
		}
	case AssertCommandCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for command_count", index)
		}
		if err := validateMatch(a.Match); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertActiveCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for active_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func validateMatch(m Match) error {
	if m.Kind == "" {
		return nil
	}
	if _, err := command.ParseKind(m.Kind); err != nil {
		return err
	}
	return nil
}
