package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"eidolon/internal/process"
)

var (
	ErrUnknownScenario = errors.New("unknown scenario")
	ErrInvalidScenario = errors.New("invalid scenario")
)

// FaultEntry schedules one disturbance: IDV is the 1-based fault number,
// OnsetSample the 0-based sample at which it becomes active. A zero
// intensity means the conventional full intensity 1.0.
type FaultEntry struct {
	IDV         int     `yaml:"idv" json:"idv"`
	Intensity   float64 `yaml:"intensity,omitempty" json:"intensity,omitempty"`
	OnsetSample int     `yaml:"onset_sample,omitempty" json:"onset_sample,omitempty"`
}

// Override pins one manipulated variable (1-based XMV number) to a value
// for the whole run.
type Override struct {
	XMV   int     `yaml:"xmv" json:"xmv"`
	Value float64 `yaml:"value" json:"value"`
}

// Scenario is a named, reproducible simulation setup.
type Scenario struct {
	Name        string       `yaml:"name" json:"name"`
	Description string       `yaml:"description,omitempty" json:"description,omitempty"`
	Samples     int          `yaml:"samples" json:"samples"`
	Seed        int64        `yaml:"seed,omitempty" json:"seed,omitempty"`
	Faults      []FaultEntry `yaml:"faults,omitempty" json:"faults,omitempty"`
	Overrides   []Override   `yaml:"overrides,omitempty" json:"overrides,omitempty"`
}

func (s Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidScenario)
	}
	if s.Samples < 0 {
		return fmt.Errorf("%w: samples must be >= 0, got %d", ErrInvalidScenario, s.Samples)
	}
	for i, f := range s.Faults {
		if f.IDV < 1 || f.IDV > process.DisturbanceCount {
			return fmt.Errorf("%w: fault %d references IDV(%d), want 1..%d", ErrInvalidScenario, i, f.IDV, process.DisturbanceCount)
		}
		if f.Intensity < 0 {
			return fmt.Errorf("%w: fault %d has negative intensity %v", ErrInvalidScenario, i, f.Intensity)
		}
		if f.OnsetSample < 0 {
			return fmt.Errorf("%w: fault %d has negative onset %d", ErrInvalidScenario, i, f.OnsetSample)
		}
	}
	for i, o := range s.Overrides {
		if o.XMV < 1 || o.XMV > process.ManipulatedCount {
			return fmt.Errorf("%w: override %d references XMV(%d), want 1..%d", ErrInvalidScenario, i, o.XMV, process.ManipulatedCount)
		}
	}
	return nil
}

// Schedule expands the fault entries into the N x 20 disturbance matrix:
// each fault contributes its intensity from its onset sample onward.
func (s Scenario) Schedule() [][]float64 {
	rows := make([][]float64, s.Samples)
	for i := range rows {
		rows[i] = s.ScheduleRow(i)
	}
	return rows
}

// ScheduleRow returns the disturbance vector active at one sample, which
// lets callers step past Samples when streaming open-endedly.
func (s Scenario) ScheduleRow(step int) []float64 {
	row := make([]float64, process.DisturbanceCount)
	for _, f := range s.Faults {
		if step < f.OnsetSample {
			continue
		}
		intensity := f.Intensity
		if intensity == 0 {
			intensity = 1.0
		}
		row[f.IDV-1] = intensity
	}
	return row
}

// Manipulated returns the documented defaults with the scenario's overrides
// applied.
func (s Scenario) Manipulated() []float64 {
	mv := process.DefaultManipulated()
	for _, o := range s.Overrides {
		mv[o.XMV-1] = o.Value
	}
	return mv
}

// FaultCodes lists the scheduled faults by conventional code, in entry
// order.
func (s Scenario) FaultCodes() []string {
	codes := make([]string, 0, len(s.Faults))
	for _, f := range s.Faults {
		spec, err := process.FaultSpecByIndex(f.IDV - 1)
		if err != nil {
			continue
		}
		codes = append(codes, spec.Code)
	}
	return codes
}

// Parse decodes and validates one YAML scenario document.
func Parse(data []byte) (Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Scenario{}, fmt.Errorf("decode scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

// Load reads a scenario from a YAML file.
func Load(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return Scenario{}, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

// Encode renders a scenario back to YAML.
func Encode(s Scenario) ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode scenario %s: %w", s.Name, err)
	}
	return data, nil
}
