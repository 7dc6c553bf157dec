package storage

import (
	"context"

	"eidolon/internal/model"
)

// Store defines persistence operations for simulation runs, scenario
// definitions, and derived feature vectors.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, runID string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveScenario(ctx context.Context, record model.ScenarioRecord) error
	GetScenario(ctx context.Context, name string) (model.ScenarioRecord, bool, error)
	ListScenarios(ctx context.Context) ([]model.ScenarioRecord, error)
	SaveFeatures(ctx context.Context, record model.FeatureRecord) error
	GetFeatures(ctx context.Context, runID string) (model.FeatureRecord, bool, error)
}
