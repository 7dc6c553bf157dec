package surrogate

// effect is one registered response: a unit deviation of the source input
// moves measurement target by coeff. Tables are ordered slices rather than
// maps so the accumulation order, and with it the floating-point result, is
// identical on every run.
type effect struct {
	target int
	coeff  float64
}

// mvEffects registers, per manipulated-variable index, the measurements a
// valve move perturbs. Coefficients are in measurement units per unit valve
// fraction (the deviation is divided by 100 before application). Flow
// coefficients for the directly driven streams are the base-case flow over
// the base-case valve fraction; secondary effects are smaller couplings.
var mvEffects = [11][]effect{
	{ // XMV(1) D feed flow
		{target: 1, coeff: 5800.0},
		{target: 5, coeff: 6.5},
		{target: 6, coeff: 45.0},
		{target: 7, coeff: 8.0},
	},
	{ // XMV(2) E feed flow
		{target: 2, coeff: 8350.0},
		{target: 5, coeff: 7.0},
		{target: 6, coeff: 40.0},
		{target: 7, coeff: 7.5},
	},
	{ // XMV(3) A feed flow
		{target: 0, coeff: 1.02},
		{target: 4, coeff: 2.0},
		{target: 6, coeff: 25.0},
	},
	{ // XMV(4) A and C feed flow
		{target: 3, coeff: 15.2},
		{target: 5, coeff: 9.0},
		{target: 6, coeff: 55.0},
		{target: 15, coeff: 50.0},
	},
	{ // XMV(5) compressor recycle valve
		{target: 4, coeff: 30.0},
		{target: 6, coeff: -20.0},
		{target: 19, coeff: -95.0},
	},
	{ // XMV(6) purge valve
		{target: 9, coeff: 0.84},
		{target: 6, coeff: -60.0},
	},
	{ // XMV(7) separator pot liquid flow
		{target: 13, coeff: 66.0},
		{target: 11, coeff: -25.0},
	},
	{ // XMV(8) stripper liquid product flow
		{target: 16, coeff: 49.3},
		{target: 14, coeff: -22.0},
	},
	{ // XMV(9) stripper steam valve
		{target: 18, coeff: 485.0},
		{target: 17, coeff: 12.0},
	},
	{ // XMV(10) reactor cooling water flow
		{target: 20, coeff: -18.0},
		{target: 8, coeff: -9.5},
		{target: 6, coeff: -35.0},
	},
	{ // XMV(11) condenser cooling water flow
		{target: 21, coeff: -16.0},
		{target: 10, coeff: -11.0},
	},
}

// faultEffects registers, per fault index, the measurements a fully ramped
// unit-intensity fault perturbs, in measurement units.
var faultEffects = [20][]effect{
	{ // IDV(1) A/C feed ratio step
		{target: 6, coeff: 62.0},
		{target: 8, coeff: 1.9},
		{target: 0, coeff: -0.028},
		{target: 3, coeff: 0.45},
		{target: 12, coeff: 48.0},
		{target: 15, coeff: 55.0},
	},
	{ // IDV(2) B composition step
		{target: 6, coeff: 38.0},
		{target: 9, coeff: 0.062},
		{target: 12, coeff: 30.0},
		{target: 8, coeff: 1.1},
	},
	{ // IDV(3) D feed temperature step
		{target: 8, coeff: 2.6},
		{target: 20, coeff: 2.1},
		{target: 6, coeff: 18.0},
	},
	{ // IDV(4) reactor cooling water inlet temperature step
		{target: 20, coeff: 4.6},
		{target: 8, coeff: 3.2},
		{target: 6, coeff: 28.0},
	},
	{ // IDV(5) condenser cooling water inlet temperature step
		{target: 21, coeff: 4.1},
		{target: 10, coeff: 2.8},
		{target: 12, coeff: 22.0},
	},
	{ // IDV(6) A feed loss
		{target: 0, coeff: -0.24},
		{target: 6, coeff: -48.0},
		{target: 4, coeff: -2.1},
		{target: 7, coeff: -3.5},
	},
	{ // IDV(7) C header pressure loss
		{target: 3, coeff: -0.9},
		{target: 6, coeff: -35.0},
		{target: 15, coeff: -65.0},
		{target: 5, coeff: -2.6},
	},
	{ // IDV(8) A, B, C feed composition variation
		{target: 6, coeff: 33.0},
		{target: 8, coeff: 1.4},
		{target: 4, coeff: 1.2},
	},
	{ // IDV(9) D feed temperature variation
		{target: 8, coeff: 1.2},
		{target: 20, coeff: 0.9},
	},
	{ // IDV(10) C feed temperature variation
		{target: 17, coeff: 2.4},
		{target: 15, coeff: 26.0},
	},
	{ // IDV(11) reactor cooling water inlet variation
		{target: 20, coeff: 3.1},
		{target: 8, coeff: 1.8},
	},
	{ // IDV(12) condenser cooling water inlet variation
		{target: 21, coeff: 2.9},
		{target: 10, coeff: 1.9},
		{target: 11, coeff: 2.2},
	},
	{ // IDV(13) reaction kinetics drift
		{target: 6, coeff: 52.0},
		{target: 8, coeff: 2.3},
		{target: 4, coeff: 1.8},
		{target: 19, coeff: 14.0},
	},
	{ // IDV(14) reactor cooling water valve sticking
		{target: 20, coeff: 3.8},
		{target: 8, coeff: 2.4},
		{target: 6, coeff: 24.0},
	},
	{ // IDV(15) condenser cooling water valve sticking
		{target: 21, coeff: 3.3},
		{target: 10, coeff: 2.1},
	},
	{ // IDV(16)
		{target: 17, coeff: 1.9},
		{target: 14, coeff: 2.6},
	},
	{ // IDV(17)
		{target: 20, coeff: 2.5},
		{target: 8, coeff: 1.3},
	},
	{ // IDV(18)
		{target: 21, coeff: 2.7},
		{target: 10, coeff: 1.6},
	},
	{ // IDV(19)
		{target: 19, coeff: 9.0},
		{target: 4, coeff: 1.4},
	},
	{ // IDV(20)
		{target: 6, coeff: 26.0},
		{target: 19, coeff: 11.0},
		{target: 10, coeff: 1.5},
	},
}

// ManipulatedCoefficient reports the registered effect of manipulated
// variable v on measurement m, or 0 when none is registered.
func ManipulatedCoefficient(v, m int) float64 {
	if v < 0 || v >= len(mvEffects) {
		return 0
	}
	for _, e := range mvEffects[v] {
		if e.target == m {
			return e.coeff
		}
	}
	return 0
}

// FaultCoefficient reports the registered effect of fault f on measurement
// m, or 0 when none is registered.
func FaultCoefficient(f, m int) float64 {
	if f < 0 || f >= len(faultEffects) {
		return 0
	}
	for _, e := range faultEffects[f] {
		if e.target == m {
			return e.coeff
		}
	}
	return 0
}

// FaultTargets lists the measurement indices fault f perturbs, in
// registration order.
func FaultTargets(f int) []int {
	if f < 0 || f >= len(faultEffects) {
		return nil
	}
	out := make([]int, 0, len(faultEffects[f]))
	for _, e := range faultEffects[f] {
		out = append(out, e.target)
	}
	return out
}
