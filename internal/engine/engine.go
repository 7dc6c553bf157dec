package engine

import (
	"context"

	"eidolon/internal/series"
)

// Engine is the authoritative process simulator. Implementations adapt
// whatever calling convention the underlying engine exposes; callers here
// see exactly one contract: a disturbance schedule and a constant
// manipulated vector in, one table row per schedule row out.
type Engine interface {
	Name() string
	Simulate(ctx context.Context, schedule [][]float64, mv []float64) (*series.Table, error)
}

// Data sources recorded on a run result.
const (
	SourceEngine    = "engine"
	SourceSurrogate = "surrogate"
)
