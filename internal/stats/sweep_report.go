package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"eidolon/internal/process"
	"eidolon/internal/series"
)

// SweepCell is the outcome of one (fault, seed) run inside a sweep.
type SweepCell struct {
	Fault               string  `json:"fault"`
	Seed                int64   `json:"seed"`
	RunID               string  `json:"run_id"`
	MaxDeviationPercent float64 `json:"max_deviation_percent"`
	LeadChannel         string  `json:"lead_channel,omitempty"`
}

// SweepPlotPoint is one averaged trajectory sample: Index is the sample
// position in the run, Value the mean across seeds.
type SweepPlotPoint struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

// FaultSweepStats aggregates one fault's cells across seeds.
type FaultSweepStats struct {
	Fault            string           `json:"fault"`
	Runs             int              `json:"runs"`
	MeanMaxDeviation float64          `json:"mean_max_deviation"`
	StdMaxDeviation  float64          `json:"std_max_deviation"`
	MinMaxDeviation  float64          `json:"min_max_deviation"`
	MaxMaxDeviation  float64          `json:"max_max_deviation"`
	LeadChannel      string           `json:"lead_channel,omitempty"`
	Trajectory       []SweepPlotPoint `json:"trajectory,omitempty"`
}

type SweepReport struct {
	ExperimentID   string            `json:"experiment_id"`
	ReportName     string            `json:"report_name"`
	GeneratedAtUTC string            `json:"generated_at_utc"`
	Experiment     SweepExperiment   `json:"experiment"`
	Cells          []SweepCell       `json:"cells"`
	Faults         []FaultSweepStats `json:"faults"`
}

// BuildFaultSweepStats groups cells by fault, preserving first-seen fault
// order, and aggregates the per-seed deviation maxima.
func BuildFaultSweepStats(cells []SweepCell) []FaultSweepStats {
	order := make([]string, 0, len(cells))
	grouped := make(map[string][]SweepCell)
	for _, cell := range cells {
		if _, ok := grouped[cell.Fault]; !ok {
			order = append(order, cell.Fault)
		}
		grouped[cell.Fault] = append(grouped[cell.Fault], cell)
	}

	out := make([]FaultSweepStats, 0, len(order))
	for _, fault := range order {
		group := grouped[fault]
		maxima := make([]float64, 0, len(group))
		leads := make(map[string]int, len(group))
		for _, cell := range group {
			maxima = append(maxima, cell.MaxDeviationPercent)
			if cell.LeadChannel != "" {
				leads[cell.LeadChannel]++
			}
		}

		fs := FaultSweepStats{
			Fault:            fault,
			Runs:             len(group),
			MeanMaxDeviation: stat.Mean(maxima, nil),
			MinMaxDeviation:  maxima[0],
			MaxMaxDeviation:  maxima[0],
			LeadChannel:      mostFrequentLead(leads),
		}
		if len(maxima) > 1 {
			fs.StdMaxDeviation = stat.StdDev(maxima, nil)
		}
		for _, v := range maxima[1:] {
			if v < fs.MinMaxDeviation {
				fs.MinMaxDeviation = v
			}
			if v > fs.MaxMaxDeviation {
				fs.MaxMaxDeviation = v
			}
		}
		out = append(out, fs)
	}
	return out
}

// DeviationTrajectory computes, per sample, the largest baseline-relative
// percent deviation across all measurement channels. Channels without a
// baseline contribute their absolute deviation, matching the feature rule.
func DeviationTrajectory(table *series.Table) ([]float64, error) {
	if table == nil {
		return nil, fmt.Errorf("nil table")
	}
	out := make([]float64, table.Len())
	for m := 0; m < process.MeasurementCount; m++ {
		spec, err := process.MeasurementSpec(m)
		if err != nil {
			return nil, err
		}
		values, err := table.Column(spec.Code)
		if err != nil {
			return nil, fmt.Errorf("trajectory %s: %w", spec.Code, err)
		}
		for i, v := range values {
			dev := v - spec.Baseline
			if spec.Baseline != 0 {
				dev = 100 * dev / spec.Baseline
			}
			if d := math.Abs(dev); d > out[i] {
				out[i] = d
			}
		}
	}
	return out, nil
}

// BuildSweepPlot averages several trajectories position by position. Lists
// may have ragged lengths; exhausted lists simply drop out of the average.
func BuildSweepPlot(lists [][]float64, startIndex, step int) []SweepPlotPoint {
	if step <= 0 {
		step = 1
	}
	if startIndex < 0 {
		startIndex = 0
	}
	points := make([]SweepPlotPoint, 0, 64)
	index := startIndex
	current := cloneLists(lists)
	for {
		values := make([]float64, 0, len(current))
		next := make([][]float64, 0, len(current))
		for _, list := range current {
			if len(list) == 0 {
				continue
			}
			values = append(values, list[0])
			if len(list) > 1 {
				tail := append([]float64(nil), list[1:]...)
				next = append(next, tail)
			}
		}
		if len(values) == 0 {
			break
		}
		points = append(points, SweepPlotPoint{Index: index, Value: stat.Mean(values, nil)})
		index += step
		current = next
	}
	return points
}

// WriteSweepReport writes the report bundle into the experiment directory:
// the full report JSON, the per-fault aggregates, the cells as JSON lines
// for downstream analysis, and the flat deviations CSV.
func WriteSweepReport(baseDir string, report SweepReport) (string, error) {
	if report.ExperimentID == "" {
		return "", fmt.Errorf("report experiment id is required")
	}
	name := report.ReportName
	if name == "" {
		name = "sweep"
	}
	reportDir := filepath.Join(baseDir, sweepExperimentsDir, report.ExperimentID)
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return "", err
	}
	if report.GeneratedAtUTC == "" {
		report.GeneratedAtUTC = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if err := writeJSON(filepath.Join(reportDir, name+"_report.json"), report); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(reportDir, name+"_faults.json"), report.Faults); err != nil {
		return "", err
	}
	if err := writeCellsJSONL(filepath.Join(reportDir, name+"_cells.jsonl"), report.Cells); err != nil {
		return "", err
	}
	if err := writeDeviationsCSV(filepath.Join(reportDir, name+"_deviations.csv"), report.Cells); err != nil {
		return "", err
	}
	return reportDir, nil
}

// ReadSweepReport loads a previously written report by experiment id.
func ReadSweepReport(baseDir, experimentID, name string) (SweepReport, bool, error) {
	if experimentID == "" {
		return SweepReport{}, false, fmt.Errorf("experiment id is required")
	}
	if name == "" {
		name = "sweep"
	}
	path := filepath.Join(baseDir, sweepExperimentsDir, experimentID, name+"_report.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return SweepReport{}, false, nil
		}
		return SweepReport{}, false, err
	}
	var report SweepReport
	if err := json.Unmarshal(data, &report); err != nil {
		return SweepReport{}, false, err
	}
	return report, true, nil
}

func writeCellsJSONL(path string, cells []SweepCell) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	for _, cell := range cells {
		data, err := json.Marshal(cell)
		if err != nil {
			return err
		}
		if _, err := file.Write(data); err != nil {
			return err
		}
		if _, err := file.Write([]byte("\n")); err != nil {
			return err
		}
	}
	return file.Sync()
}

func writeDeviationsCSV(path string, cells []SweepCell) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"fault", "seed", "run_id", "max_deviation_pct", "lead_channel"}); err != nil {
		return err
	}
	for _, cell := range cells {
		record := []string{
			cell.Fault,
			strconv.FormatInt(cell.Seed, 10),
			cell.RunID,
			strconv.FormatFloat(cell.MaxDeviationPercent, 'g', -1, 64),
			cell.LeadChannel,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return file.Sync()
}

func mostFrequentLead(counts map[string]int) string {
	best := ""
	bestCount := 0
	for code, count := range counts {
		if count > bestCount || (count == bestCount && best != "" && code < best) {
			best = code
			bestCount = count
		}
	}
	return best
}

func cloneLists(lists [][]float64) [][]float64 {
	cloned := make([][]float64, 0, len(lists))
	for _, list := range lists {
		cloned = append(cloned, append([]float64(nil), list...))
	}
	return cloned
}
