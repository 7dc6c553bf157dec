package process

import (
	"fmt"
	"strings"
)

type FaultType string

const (
	FaultStep     FaultType = "step"
	FaultRandom   FaultType = "random_variation"
	FaultDrift    FaultType = "slow_drift"
	FaultSticking FaultType = "sticking"
	FaultUnknown  FaultType = "unknown"
)

// FaultSpec describes one disturbance input. Index is 0-based; Code is the
// conventional 1-based IDV label.
type FaultSpec struct {
	Index int
	Code  string
	Name  string
	Type  FaultType
}

var faultSpecs = [DisturbanceCount]FaultSpec{
	{Index: 0, Code: "IDV(1)", Name: "A/C Feed Ratio, B Composition Constant (stream 4)", Type: FaultStep},
	{Index: 1, Code: "IDV(2)", Name: "B Composition, A/C Ratio Constant (stream 4)", Type: FaultStep},
	{Index: 2, Code: "IDV(3)", Name: "D Feed Temperature (stream 2)", Type: FaultStep},
	{Index: 3, Code: "IDV(4)", Name: "Reactor Cooling Water Inlet Temperature", Type: FaultStep},
	{Index: 4, Code: "IDV(5)", Name: "Condenser Cooling Water Inlet Temperature", Type: FaultStep},
	{Index: 5, Code: "IDV(6)", Name: "A Feed Loss (stream 1)", Type: FaultStep},
	{Index: 6, Code: "IDV(7)", Name: "C Header Pressure Loss (stream 4)", Type: FaultStep},
	{Index: 7, Code: "IDV(8)", Name: "A, B, C Feed Composition (stream 4)", Type: FaultRandom},
	{Index: 8, Code: "IDV(9)", Name: "D Feed Temperature (stream 2)", Type: FaultRandom},
	{Index: 9, Code: "IDV(10)", Name: "C Feed Temperature (stream 4)", Type: FaultRandom},
	{Index: 10, Code: "IDV(11)", Name: "Reactor Cooling Water Inlet Temperature", Type: FaultRandom},
	{Index: 11, Code: "IDV(12)", Name: "Condenser Cooling Water Inlet Temperature", Type: FaultRandom},
	{Index: 12, Code: "IDV(13)", Name: "Reaction Kinetics", Type: FaultDrift},
	{Index: 13, Code: "IDV(14)", Name: "Reactor Cooling Water Valve", Type: FaultSticking},
	{Index: 14, Code: "IDV(15)", Name: "Condenser Cooling Water Valve", Type: FaultSticking},
	{Index: 15, Code: "IDV(16)", Name: "Unknown Disturbance 16", Type: FaultUnknown},
	{Index: 16, Code: "IDV(17)", Name: "Unknown Disturbance 17", Type: FaultUnknown},
	{Index: 17, Code: "IDV(18)", Name: "Unknown Disturbance 18", Type: FaultUnknown},
	{Index: 18, Code: "IDV(19)", Name: "Unknown Disturbance 19", Type: FaultUnknown},
	{Index: 19, Code: "IDV(20)", Name: "Unknown Disturbance 20", Type: FaultUnknown},
}

// Faults returns the full fault catalog in IDV order.
func Faults() []FaultSpec {
	out := make([]FaultSpec, DisturbanceCount)
	copy(out, faultSpecs[:])
	return out
}

// FaultSpecByIndex returns the spec for fault index f (0-based, IDV(f+1)).
func FaultSpecByIndex(f int) (FaultSpec, error) {
	if f < 0 || f >= DisturbanceCount {
		return FaultSpec{}, fmt.Errorf("%w: fault index %d", ErrFaultNotFound, f)
	}
	return faultSpecs[f], nil
}

// FaultByCode resolves a fault by its conventional code, e.g. "IDV(4)".
func FaultByCode(code string) (FaultSpec, error) {
	want := strings.ToUpper(strings.TrimSpace(code))
	for _, spec := range faultSpecs {
		if spec.Code == want {
			return spec, nil
		}
	}
	return FaultSpec{}, fmt.Errorf("%w: %s", ErrFaultNotFound, code)
}
