package process

import (
	"errors"
	"fmt"
	"strings"
)

// Slot layout of one output row: the 41 measurement channels first, then the
// 11 manipulated-variable echoes. Order is fixed and positionally significant
// for downstream consumers.
const (
	MeasurementCount = 41
	PrimaryCount     = 22
	ManipulatedCount = 11
	DisturbanceCount = 20
	SlotCount        = MeasurementCount + ManipulatedCount
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrFaultNotFound   = errors.New("fault not found")
)

type ChannelKind int

const (
	// KindMeasurement channels carry a documented baseline and computed
	// effects. KindComposition channels are carried-forward placeholders.
	// KindManipulated channels echo the commanded value.
	KindMeasurement ChannelKind = iota
	KindComposition
	KindManipulated
)

func (k ChannelKind) String() string {
	switch k {
	case KindMeasurement:
		return "measurement"
	case KindComposition:
		return "composition"
	case KindManipulated:
		return "manipulated"
	default:
		return "unknown"
	}
}

// ChannelSpec describes one slot of the output row. Slot is the 0-based
// position in the row; Code is the conventional column name.
type ChannelSpec struct {
	Slot     int
	Code     string
	Name     string
	Unit     string
	Kind     ChannelKind
	Baseline float64
}

// measurementSpecs covers XMEAS(1)..XMEAS(41). Baselines for the first 22
// are the documented base-case steady-state values; composition channels
// carry no baseline here and are modeled as carried-forward placeholders.
var measurementSpecs = [MeasurementCount]ChannelSpec{
	{Slot: 0, Code: "XMEAS(1)", Name: "A Feed (stream 1)", Unit: "kscmh", Kind: KindMeasurement, Baseline: 0.25052},
	{Slot: 1, Code: "XMEAS(2)", Name: "D Feed (stream 2)", Unit: "kg/h", Kind: KindMeasurement, Baseline: 3664.0},
	{Slot: 2, Code: "XMEAS(3)", Name: "E Feed (stream 3)", Unit: "kg/h", Kind: KindMeasurement, Baseline: 4509.3},
	{Slot: 3, Code: "XMEAS(4)", Name: "A and C Feed (stream 4)", Unit: "kscmh", Kind: KindMeasurement, Baseline: 9.3477},
	{Slot: 4, Code: "XMEAS(5)", Name: "Recycle Flow (stream 8)", Unit: "kscmh", Kind: KindMeasurement, Baseline: 26.902},
	{Slot: 5, Code: "XMEAS(6)", Name: "Reactor Feed Rate (stream 6)", Unit: "kscmh", Kind: KindMeasurement, Baseline: 42.339},
	{Slot: 6, Code: "XMEAS(7)", Name: "Reactor Pressure", Unit: "kPa gauge", Kind: KindMeasurement, Baseline: 2705.0},
	{Slot: 7, Code: "XMEAS(8)", Name: "Reactor Level", Unit: "%", Kind: KindMeasurement, Baseline: 75.0},
	{Slot: 8, Code: "XMEAS(9)", Name: "Reactor Temperature", Unit: "deg C", Kind: KindMeasurement, Baseline: 120.4},
	{Slot: 9, Code: "XMEAS(10)", Name: "Purge Rate (stream 9)", Unit: "kscmh", Kind: KindMeasurement, Baseline: 0.33712},
	{Slot: 10, Code: "XMEAS(11)", Name: "Product Separator Temperature", Unit: "deg C", Kind: KindMeasurement, Baseline: 80.109},
	{Slot: 11, Code: "XMEAS(12)", Name: "Product Separator Level", Unit: "%", Kind: KindMeasurement, Baseline: 50.0},
	{Slot: 12, Code: "XMEAS(13)", Name: "Product Separator Pressure", Unit: "kPa gauge", Kind: KindMeasurement, Baseline: 2633.7},
	{Slot: 13, Code: "XMEAS(14)", Name: "Product Separator Underflow (stream 10)", Unit: "m3/h", Kind: KindMeasurement, Baseline: 25.16},
	{Slot: 14, Code: "XMEAS(15)", Name: "Stripper Level", Unit: "%", Kind: KindMeasurement, Baseline: 50.0},
	{Slot: 15, Code: "XMEAS(16)", Name: "Stripper Pressure", Unit: "kPa gauge", Kind: KindMeasurement, Baseline: 3102.2},
	{Slot: 16, Code: "XMEAS(17)", Name: "Stripper Underflow (stream 11)", Unit: "m3/h", Kind: KindMeasurement, Baseline: 22.949},
	{Slot: 17, Code: "XMEAS(18)", Name: "Stripper Temperature", Unit: "deg C", Kind: KindMeasurement, Baseline: 65.731},
	{Slot: 18, Code: "XMEAS(19)", Name: "Stripper Steam Flow", Unit: "kg/h", Kind: KindMeasurement, Baseline: 230.31},
	{Slot: 19, Code: "XMEAS(20)", Name: "Compressor Work", Unit: "kW", Kind: KindMeasurement, Baseline: 341.43},
	{Slot: 20, Code: "XMEAS(21)", Name: "Reactor Cooling Water Outlet Temperature", Unit: "deg C", Kind: KindMeasurement, Baseline: 94.599},
	{Slot: 21, Code: "XMEAS(22)", Name: "Separator Cooling Water Outlet Temperature", Unit: "deg C", Kind: KindMeasurement, Baseline: 77.297},
	{Slot: 22, Code: "XMEAS(23)", Name: "Reactor Feed Analysis A", Unit: "mole %", Kind: KindComposition},
	{Slot: 23, Code: "XMEAS(24)", Name: "Reactor Feed Analysis B", Unit: "mole %", Kind: KindComposition},
	{Slot: 24, Code: "XMEAS(25)", Name: "Reactor Feed Analysis C", Unit: "mole %", Kind: KindComposition},
	{Slot: 25, Code: "XMEAS(26)", Name: "Reactor Feed Analysis D", Unit: "mole %", Kind: KindComposition},
	{Slot: 26, Code: "XMEAS(27)", Name: "Reactor Feed Analysis E", Unit: "mole %", Kind: KindComposition},
	{Slot: 27, Code: "XMEAS(28)", Name: "Reactor Feed Analysis F", Unit: "mole %", Kind: KindComposition},
	{Slot: 28, Code: "XMEAS(29)", Name: "Purge Gas Analysis A", Unit: "mole %", Kind: KindComposition},
	{Slot: 29, Code: "XMEAS(30)", Name: "Purge Gas Analysis B", Unit: "mole %", Kind: KindComposition},
	{Slot: 30, Code: "XMEAS(31)", Name: "Purge Gas Analysis C", Unit: "mole %", Kind: KindComposition},
	{Slot: 31, Code: "XMEAS(32)", Name: "Purge Gas Analysis D", Unit: "mole %", Kind: KindComposition},
	{Slot: 32, Code: "XMEAS(33)", Name: "Purge Gas Analysis E", Unit: "mole %", Kind: KindComposition},
	{Slot: 33, Code: "XMEAS(34)", Name: "Purge Gas Analysis F", Unit: "mole %", Kind: KindComposition},
	{Slot: 34, Code: "XMEAS(35)", Name: "Purge Gas Analysis G", Unit: "mole %", Kind: KindComposition},
	{Slot: 35, Code: "XMEAS(36)", Name: "Purge Gas Analysis H", Unit: "mole %", Kind: KindComposition},
	{Slot: 36, Code: "XMEAS(37)", Name: "Product Analysis D", Unit: "mole %", Kind: KindComposition},
	{Slot: 37, Code: "XMEAS(38)", Name: "Product Analysis E", Unit: "mole %", Kind: KindComposition},
	{Slot: 38, Code: "XMEAS(39)", Name: "Product Analysis F", Unit: "mole %", Kind: KindComposition},
	{Slot: 39, Code: "XMEAS(40)", Name: "Product Analysis G", Unit: "mole %", Kind: KindComposition},
	{Slot: 40, Code: "XMEAS(41)", Name: "Product Analysis H", Unit: "mole %", Kind: KindComposition},
}

// manipulatedSpecs covers XMV(1)..XMV(11). Baseline is the documented
// base-case valve position in percent.
var manipulatedSpecs = [ManipulatedCount]ChannelSpec{
	{Slot: 41, Code: "XMV(1)", Name: "D Feed Flow (stream 2)", Unit: "%", Kind: KindManipulated, Baseline: 63.053},
	{Slot: 42, Code: "XMV(2)", Name: "E Feed Flow (stream 3)", Unit: "%", Kind: KindManipulated, Baseline: 53.98},
	{Slot: 43, Code: "XMV(3)", Name: "A Feed Flow (stream 1)", Unit: "%", Kind: KindManipulated, Baseline: 24.644},
	{Slot: 44, Code: "XMV(4)", Name: "A and C Feed Flow (stream 4)", Unit: "%", Kind: KindManipulated, Baseline: 61.302},
	{Slot: 45, Code: "XMV(5)", Name: "Compressor Recycle Valve", Unit: "%", Kind: KindManipulated, Baseline: 22.21},
	{Slot: 46, Code: "XMV(6)", Name: "Purge Valve (stream 9)", Unit: "%", Kind: KindManipulated, Baseline: 40.064},
	{Slot: 47, Code: "XMV(7)", Name: "Separator Pot Liquid Flow (stream 10)", Unit: "%", Kind: KindManipulated, Baseline: 38.1},
	{Slot: 48, Code: "XMV(8)", Name: "Stripper Liquid Product Flow (stream 11)", Unit: "%", Kind: KindManipulated, Baseline: 46.534},
	{Slot: 49, Code: "XMV(9)", Name: "Stripper Steam Valve", Unit: "%", Kind: KindManipulated, Baseline: 47.446},
	{Slot: 50, Code: "XMV(10)", Name: "Reactor Cooling Water Flow", Unit: "%", Kind: KindManipulated, Baseline: 41.106},
	{Slot: 51, Code: "XMV(11)", Name: "Condenser Cooling Water Flow", Unit: "%", Kind: KindManipulated, Baseline: 18.114},
}

// Channels returns the specs for all 52 slots in row order.
func Channels() []ChannelSpec {
	out := make([]ChannelSpec, 0, SlotCount)
	out = append(out, measurementSpecs[:]...)
	out = append(out, manipulatedSpecs[:]...)
	return out
}

// ChannelCodes returns the column names for all 52 slots in row order.
func ChannelCodes() []string {
	codes := make([]string, SlotCount)
	for i, spec := range measurementSpecs {
		codes[i] = spec.Code
	}
	for i, spec := range manipulatedSpecs {
		codes[MeasurementCount+i] = spec.Code
	}
	return codes
}

// MeasurementSpec returns the spec for measurement index m (0-based,
// XMEAS(m+1)).
func MeasurementSpec(m int) (ChannelSpec, error) {
	if m < 0 || m >= MeasurementCount {
		return ChannelSpec{}, fmt.Errorf("%w: measurement index %d", ErrChannelNotFound, m)
	}
	return measurementSpecs[m], nil
}

// ManipulatedSpec returns the spec for manipulated-variable index v (0-based,
// XMV(v+1)).
func ManipulatedSpec(v int) (ChannelSpec, error) {
	if v < 0 || v >= ManipulatedCount {
		return ChannelSpec{}, fmt.Errorf("%w: manipulated index %d", ErrChannelNotFound, v)
	}
	return manipulatedSpecs[v], nil
}

// ChannelByCode resolves a spec by its conventional code, e.g. "XMEAS(9)" or
// "XMV(10)". Matching is case-insensitive.
func ChannelByCode(code string) (ChannelSpec, error) {
	want := strings.ToUpper(strings.TrimSpace(code))
	for _, spec := range measurementSpecs {
		if spec.Code == want {
			return spec, nil
		}
	}
	for _, spec := range manipulatedSpecs {
		if spec.Code == want {
			return spec, nil
		}
	}
	return ChannelSpec{}, fmt.Errorf("%w: %s", ErrChannelNotFound, code)
}

// MeasurementBaseline returns the baseline for measurement index m, or 0 for
// composition placeholders.
func MeasurementBaseline(m int) float64 {
	if m < 0 || m >= MeasurementCount {
		return 0
	}
	return measurementSpecs[m].Baseline
}

// DefaultManipulated returns a fresh copy of the documented XMV defaults.
func DefaultManipulated() []float64 {
	out := make([]float64, ManipulatedCount)
	for i, spec := range manipulatedSpecs {
		out[i] = spec.Baseline
	}
	return out
}
