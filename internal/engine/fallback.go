package engine

import (
	"context"
	"fmt"

	"eidolon/internal/process"
	"eidolon/internal/series"
	"eidolon/internal/surrogate"
)

// Result is one completed simulation and the source that produced it.
// EngineErr carries the engine failure that triggered the fallback, if any.
type Result struct {
	Source    string
	Table     *series.Table
	EngineErr error
}

// Runner tries the authoritative engine first and falls back to the
// surrogate driver when the engine fails, is missing, or returns a
// malformed table. Given well-shaped inputs a Runner always produces a
// result; shape violations fail fast before either source is consulted.
type Runner struct {
	engine Engine
	driver *surrogate.Driver
}

// NewRunner builds a runner around an optional engine. A nil engine means
// every request is served by the surrogate.
func NewRunner(eng Engine, seed int64) *Runner {
	return &Runner{engine: eng, driver: surrogate.NewDriver(seed)}
}

// Reset drops the surrogate session state.
func (r *Runner) Reset() {
	r.driver.Reset()
}

func (r *Runner) Run(ctx context.Context, schedule [][]float64, mv []float64) (Result, error) {
	if err := process.ValidateManipulated(mv); err != nil {
		return Result{}, err
	}
	if err := process.ValidateDisturbanceMatrix(schedule); err != nil {
		return Result{}, err
	}

	var engineErr error
	if r.engine != nil {
		table, err := r.engine.Simulate(ctx, schedule, mv)
		switch {
		case err != nil:
			engineErr = fmt.Errorf("engine %s: %w", r.engine.Name(), err)
		case table == nil || table.Len() != len(schedule):
			engineErr = fmt.Errorf("engine %s returned %d rows, want %d", r.engine.Name(), tableLen(table), len(schedule))
		default:
			return Result{Source: SourceEngine, Table: table}, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
	}

	table, err := r.driver.Run(schedule, mv)
	if err != nil {
		return Result{}, err
	}
	return Result{Source: SourceSurrogate, Table: table, EngineErr: engineErr}, nil
}

func tableLen(t *series.Table) int {
	if t == nil {
		return 0
	}
	return t.Len()
}
