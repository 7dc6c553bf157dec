package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"eidolon/internal/features"
	"eidolon/internal/series"
)

const runIndexFile = "run_index.json"

type RunConfig struct {
	RunID           string   `json:"run_id"`
	Scenario        string   `json:"scenario"`
	Samples         int      `json:"samples"`
	Seed            int64    `json:"seed"`
	IntervalMinutes float64  `json:"interval_minutes"`
	Source          string   `json:"source"`
	EngineError     string   `json:"engine_error,omitempty"`
	FaultCodes      []string `json:"fault_codes,omitempty"`
	StoreKind       string   `json:"store_kind,omitempty"`
	CreatedAtUTC    string   `json:"created_at_utc"`
}

type ChannelDeviation struct {
	Code             string  `json:"code"`
	Name             string  `json:"name"`
	DeviationPercent float64 `json:"deviation_percent"`
}

type RunSummary struct {
	RunID         string             `json:"run_id"`
	Scenario      string             `json:"scenario"`
	Samples       int                `json:"samples"`
	Source        string             `json:"source"`
	FaultCodes    []string           `json:"fault_codes,omitempty"`
	TopDeviations []ChannelDeviation `json:"top_deviations"`
}

type RunArtifacts struct {
	Config   RunConfig
	Series   *series.Table
	Features features.Vector
	Summary  RunSummary
}

type RunIndexEntry struct {
	RunID               string  `json:"run_id"`
	Scenario            string  `json:"scenario"`
	Samples             int     `json:"samples"`
	Seed                int64   `json:"seed"`
	Source              string  `json:"source"`
	MaxDeviationPercent float64 `json:"max_deviation_percent"`
	CreatedAtUTC        string  `json:"created_at_utc"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}
	if artifacts.Series == nil {
		return "", fmt.Errorf("series table is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeSeriesCSV(filepath.Join(runDir, "series.csv"), artifacts.Series); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "features.json"), artifacts.Features); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "summary.json"), artifacts.Summary); err != nil {
		return "", err
	}

	return runDir, nil
}

// BuildRunSummary ranks the run's channels by final deviation and keeps the
// strongest topN movers.
func BuildRunSummary(cfg RunConfig, vector features.Vector, topN int) RunSummary {
	ranked := features.RankByDeviation(vector)
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}

	deviations := make([]ChannelDeviation, 0, len(ranked))
	for _, channel := range ranked {
		deviations = append(deviations, ChannelDeviation{
			Code:             channel.Code,
			Name:             channel.Name,
			DeviationPercent: channel.DeviationPercent,
		})
	}

	return RunSummary{
		RunID:         cfg.RunID,
		Scenario:      cfg.Scenario,
		Samples:       vector.Samples,
		Source:        cfg.Source,
		FaultCodes:    cfg.FaultCodes,
		TopDeviations: deviations,
	}
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	files := []string{"config.json", "series.csv", "summary.json"}
	for _, file := range files {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	featuresPath := filepath.Join(src, "features.json")
	if _, err := os.Stat(featuresPath); err == nil {
		if err := copyFile(featuresPath, filepath.Join(dst, "features.json")); err != nil {
			return "", err
		}
	} else if err != nil && !os.IsNotExist(err) {
		return "", err
	}

	return dst, nil
}

func ReadFeatures(baseDir, runID string) (features.Vector, bool, error) {
	path := filepath.Join(baseDir, runID, "features.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return features.Vector{}, false, nil
		}
		return features.Vector{}, false, err
	}

	var vector features.Vector
	if err := json.Unmarshal(data, &vector); err != nil {
		return features.Vector{}, false, err
	}
	return vector, true, nil
}

func ReadSeriesCSV(baseDir, runID string) (*series.Table, bool, error) {
	path := filepath.Join(baseDir, runID, "series.csv")
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	table, err := series.ReadCSV(file)
	if err != nil {
		return nil, false, err
	}
	return table, true, nil
}

func writeSeriesCSV(path string, table *series.Table) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := table.WriteCSV(file); err != nil {
		return err
	}
	return file.Sync()
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
