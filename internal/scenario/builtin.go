package scenario

import "fmt"

// builtinScenarios is the stock demo catalog. Names are stable identifiers
// used by the CLI and the run store.
var builtinScenarios = []Scenario{
	{
		Name:        "normal-operation",
		Description: "Base-case steady state: default valves, no disturbances.",
		Samples:     25,
	},
	{
		Name:        "ac-feed-step",
		Description: "Step in A/C feed ratio (IDV 1) after a quiet lead-in.",
		Samples:     40,
		Faults:      []FaultEntry{{IDV: 1, Intensity: 1.0, OnsetSample: 5}},
	},
	{
		Name:        "cooling-water-step",
		Description: "Reactor cooling water inlet temperature step (IDV 4).",
		Samples:     48,
		Faults:      []FaultEntry{{IDV: 4, Intensity: 1.0, OnsetSample: 8}},
	},
	{
		Name:        "a-feed-loss",
		Description: "Loss of A feed (IDV 6) with the plant otherwise at defaults.",
		Samples:     60,
		Faults:      []FaultEntry{{IDV: 6, Intensity: 1.0, OnsetSample: 10}},
	},
	{
		Name:        "kinetics-drift",
		Description: "Slow reaction-kinetics drift (IDV 13) at elevated intensity.",
		Samples:     80,
		Faults:      []FaultEntry{{IDV: 13, Intensity: 1.5}},
	},
	{
		Name:        "open-d-feed",
		Description: "Operator opens the D feed valve to 90% with no faults.",
		Samples:     30,
		Overrides:   []Override{{XMV: 1, Value: 90.0}},
	},
	{
		Name:        "compound-upset",
		Description: "Feed-ratio step plus cooling-water variation with a raised reactor cooling flow.",
		Samples:     60,
		Faults: []FaultEntry{
			{IDV: 1, Intensity: 1.0, OnsetSample: 4},
			{IDV: 11, Intensity: 0.8, OnsetSample: 12},
		},
		Overrides: []Override{{XMV: 10, Value: 45.0}},
	},
}

// Builtin returns the stock catalog in a stable order.
func Builtin() []Scenario {
	out := make([]Scenario, len(builtinScenarios))
	copy(out, builtinScenarios)
	return out
}

// BuiltinByName resolves one stock scenario.
func BuiltinByName(name string) (Scenario, error) {
	for _, s := range builtinScenarios {
		if s.Name == name {
			return s, nil
		}
	}
	return Scenario{}, fmt.Errorf("%w: %s", ErrUnknownScenario, name)
}
