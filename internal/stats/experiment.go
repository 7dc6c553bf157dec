package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const sweepExperimentsDir = "experiments"

// Progress flags recorded on a sweep experiment.
const (
	SweepInProgress = "in_progress"
	SweepCompleted  = "completed"
)

// SweepExperiment tracks one fault sweep: the grid it covers, the runs it
// produced, and how far it got. The record is rewritten as the sweep
// advances so an interrupted sweep leaves an inspectable trail.
type SweepExperiment struct {
	ID             string   `json:"id"`
	Notes          string   `json:"notes,omitempty"`
	ProgressFlag   string   `json:"progress_flag"`
	RunIndex       int      `json:"run_index"`
	TotalRuns      int      `json:"total_runs"`
	Samples        int      `json:"samples"`
	Intensity      float64  `json:"intensity"`
	FaultCodes     []string `json:"fault_codes,omitempty"`
	Seeds          []int64  `json:"seeds,omitempty"`
	StartedAtUTC   string   `json:"started_at_utc,omitempty"`
	CompletedAtUTC string   `json:"completed_at_utc,omitempty"`
	RunIDs         []string `json:"run_ids,omitempty"`
}

func WriteSweepExperiment(baseDir string, exp SweepExperiment) error {
	if exp.ID == "" {
		return fmt.Errorf("experiment id is required")
	}
	path := sweepExperimentPath(baseDir, exp.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func ReadSweepExperiment(baseDir, id string) (SweepExperiment, bool, error) {
	if id == "" {
		return SweepExperiment{}, false, fmt.Errorf("experiment id is required")
	}
	path := sweepExperimentPath(baseDir, id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return SweepExperiment{}, false, nil
		}
		return SweepExperiment{}, false, err
	}
	var exp SweepExperiment
	if err := json.Unmarshal(data, &exp); err != nil {
		return SweepExperiment{}, false, err
	}
	return exp, true, nil
}

func ListSweepExperiments(baseDir string) ([]SweepExperiment, error) {
	root := filepath.Join(baseDir, sweepExperimentsDir)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return []SweepExperiment{}, nil
		}
		return nil, err
	}

	exps := make([]SweepExperiment, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		exp, ok, err := ReadSweepExperiment(baseDir, entry.Name())
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		exps = append(exps, exp)
	}
	sort.Slice(exps, func(i, j int) bool {
		switch {
		case exps[i].StartedAtUTC == exps[j].StartedAtUTC:
			return exps[i].ID < exps[j].ID
		case exps[i].StartedAtUTC == "":
			return false
		case exps[j].StartedAtUTC == "":
			return true
		default:
			return exps[i].StartedAtUTC > exps[j].StartedAtUTC
		}
	})
	return exps, nil
}

func sweepExperimentPath(baseDir, id string) string {
	return filepath.Join(baseDir, sweepExperimentsDir, id, "experiment.json")
}
