package model

import (
	"time"

	"eidolon/internal/features"
	"eidolon/internal/scenario"
	"eidolon/internal/series"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord is one persisted simulation run: its request shape, the source
// that produced the data, and the full result table.
type RunRecord struct {
	VersionedRecord
	RunID        string      `json:"run_id"`
	Scenario     string      `json:"scenario"`
	Seed         int64       `json:"seed"`
	Samples      int         `json:"samples"`
	Source       string      `json:"source"`
	EngineError  string      `json:"engine_error,omitempty"`
	FaultCodes   []string    `json:"fault_codes,omitempty"`
	CreatedAtUTC time.Time   `json:"created_at_utc"`
	Series       series.File `json:"series"`
}

// ScenarioRecord is a stored scenario definition.
type ScenarioRecord struct {
	VersionedRecord
	Name         string            `json:"name"`
	Definition   scenario.Scenario `json:"definition"`
	CreatedAtUTC time.Time         `json:"created_at_utc"`
}

// FeatureRecord is the extracted feature vector for a run.
type FeatureRecord struct {
	VersionedRecord
	RunID        string          `json:"run_id"`
	Vector       features.Vector `json:"vector"`
	CreatedAtUTC time.Time       `json:"created_at_utc"`
}
