// Package surrogate implements the fault-response model used when the
// authoritative process engine is unavailable: a deterministic-with-noise
// state update mapping manipulated-variable and disturbance vectors to the
// next measurement row, with ramped fault onset and exponential smoothing
// for continuity between samples.
package surrogate

import (
	"math"
	"math/rand"

	"eidolon/internal/process"
)

const (
	// priorWeight and freshWeight blend the carried state with the newly
	// computed response so successive samples stay continuous.
	priorWeight = 0.8
	freshWeight = 0.2

	// noiseFraction scales measurement noise to baseline magnitude.
	noiseFraction = 0.005

	// rampRate drives fault onset: effect fraction (step+1)*rampRate,
	// saturating at 1.0 on the fourth step.
	rampRate = 0.3

	// neutralLevel seeds channels that carry no documented baseline.
	neutralLevel = 50.0

	// walkSigma is the per-step random-walk spread for those channels.
	walkSigma = 0.25
)

var (
	channelSpecs = process.Channels()
	mvDefaults   = process.DefaultManipulated()
)

// Model computes one output row per step and carries the previous row as
// smoothing state. A Model is owned by a single session; concurrent use
// requires external synchronization.
type Model struct {
	rng   *rand.Rand
	state []float64
}

func New(seed int64) *Model {
	return &Model{rng: rand.New(rand.NewSource(seed))}
}

// Reset drops the carried state so the next step reseeds from baselines.
func (m *Model) Reset() {
	m.state = nil
}

// State returns a copy of the carried row, or nil before the first step.
func (m *Model) State() []float64 {
	if m.state == nil {
		return nil
	}
	return append([]float64(nil), m.state...)
}

// Step computes the next 52-value row for the given manipulated and
// disturbance vectors. The step index counts samples within the current
// multi-step request and only drives the fault ramp; negative values are
// treated as zero. The returned row is also stored as the new carried state.
func (m *Model) Step(mv, idv []float64, step int) ([]float64, error) {
	if err := process.ValidateManipulated(mv); err != nil {
		return nil, err
	}
	if err := process.ValidateDisturbance(idv); err != nil {
		return nil, err
	}
	if step < 0 {
		step = 0
	}
	if m.state == nil {
		m.state = seedState()
	}

	contrib := linearContributions(mv, idv, step)
	out := make([]float64, process.SlotCount)
	for i, spec := range channelSpecs {
		switch spec.Kind {
		case process.KindMeasurement:
			fresh := spec.Baseline + contrib[i]
			if !isFinite(fresh) {
				fresh = m.state[i]
			}
			value := priorWeight*m.state[i] + freshWeight*fresh
			value += m.rng.NormFloat64() * noiseFraction * math.Abs(spec.Baseline)
			if !isFinite(value) {
				value = m.state[i]
			}
			m.state[i] = value
			out[i] = value
		case process.KindComposition:
			value := m.state[i] + m.rng.NormFloat64()*walkSigma
			if !isFinite(value) {
				value = m.state[i]
			}
			m.state[i] = value
			out[i] = value
		case process.KindManipulated:
			value := mv[i-process.MeasurementCount]
			if !isFinite(value) {
				value = m.state[i]
			}
			m.state[i] = value
			out[i] = value
		}
	}
	return out, nil
}

// linearContributions accumulates the manipulated-variable and fault terms
// for every measurement slot, before smoothing and noise. Non-finite inputs
// contribute nothing rather than contaminating the row.
func linearContributions(mv, idv []float64, step int) [process.MeasurementCount]float64 {
	var contrib [process.MeasurementCount]float64

	for v, effects := range mvEffects {
		deviation := (mv[v] - mvDefaults[v]) / 100.0
		if deviation == 0 || !isFinite(deviation) {
			continue
		}
		for _, e := range effects {
			term := e.coeff * deviation
			if !isFinite(term) {
				continue
			}
			contrib[e.target] += term
		}
	}

	ramp := rampFactor(step)
	for f, effects := range faultEffects {
		intensity := idv[f]
		if intensity <= 0 || !isFinite(intensity) {
			continue
		}
		for _, e := range effects {
			term := e.coeff * intensity * ramp
			if !isFinite(term) {
				continue
			}
			contrib[e.target] += term
		}
	}
	return contrib
}

func rampFactor(step int) float64 {
	r := (float64(step) + 1) * rampRate
	if r > 1 {
		return 1
	}
	return r
}

func seedState() []float64 {
	state := make([]float64, process.SlotCount)
	for i, spec := range channelSpecs {
		switch spec.Kind {
		case process.KindMeasurement:
			state[i] = spec.Baseline
		case process.KindComposition:
			state[i] = neutralLevel
		case process.KindManipulated:
			state[i] = spec.Baseline
		}
	}
	return state
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
