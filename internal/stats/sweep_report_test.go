package stats

import (
	"bufio"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"eidolon/internal/process"
	"eidolon/internal/series"
)

func TestBuildFaultSweepStats(t *testing.T) {
	cells := []SweepCell{
		{Fault: "IDV(1)", Seed: 1, RunID: "run-1", MaxDeviationPercent: 4.0, LeadChannel: "XMEAS(7)"},
		{Fault: "IDV(1)", Seed: 2, RunID: "run-2", MaxDeviationPercent: 6.0, LeadChannel: "XMEAS(7)"},
		{Fault: "IDV(4)", Seed: 1, RunID: "run-3", MaxDeviationPercent: 10.0, LeadChannel: "XMEAS(9)"},
	}

	stats := BuildFaultSweepStats(cells)
	if len(stats) != 2 {
		t.Fatalf("expected 2 fault groups, got %d", len(stats))
	}

	first := stats[0]
	if first.Fault != "IDV(1)" || first.Runs != 2 {
		t.Fatalf("unexpected first group: %+v", first)
	}
	if first.MeanMaxDeviation != 5.0 || first.MinMaxDeviation != 4.0 || first.MaxMaxDeviation != 6.0 {
		t.Fatalf("aggregates wrong: %+v", first)
	}
	if math.Abs(first.StdMaxDeviation-math.Sqrt2) > 1e-12 {
		t.Fatalf("std: got %v, want sqrt(2)", first.StdMaxDeviation)
	}
	if first.LeadChannel != "XMEAS(7)" {
		t.Fatalf("lead channel: got %s", first.LeadChannel)
	}

	second := stats[1]
	if second.Fault != "IDV(4)" || second.Runs != 1 || second.StdMaxDeviation != 0 {
		t.Fatalf("unexpected second group: %+v", second)
	}
	if second.LeadChannel != "XMEAS(9)" {
		t.Fatalf("lead channel: got %s", second.LeadChannel)
	}
}

func TestBuildSweepPlotAveragesRaggedLists(t *testing.T) {
	lists := [][]float64{
		{1, 2, 3},
		{3, 4},
	}
	points := BuildSweepPlot(lists, 0, 1)
	want := []SweepPlotPoint{
		{Index: 0, Value: 2},
		{Index: 1, Value: 3},
		{Index: 2, Value: 3},
	}
	if len(points) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(points))
	}
	for i := range want {
		if points[i] != want[i] {
			t.Fatalf("point %d: got %+v, want %+v", i, points[i], want[i])
		}
	}
}

func TestDeviationTrajectory(t *testing.T) {
	pressure, err := process.ChannelByCode("XMEAS(7)")
	if err != nil {
		t.Fatalf("channel lookup: %v", err)
	}

	baselineRow := make([]float64, process.SlotCount)
	for m := 0; m < process.MeasurementCount; m++ {
		spec, err := process.MeasurementSpec(m)
		if err != nil {
			t.Fatalf("spec %d: %v", m, err)
		}
		baselineRow[spec.Slot] = spec.Baseline
	}

	bumped := append([]float64(nil), baselineRow...)
	bumped[pressure.Slot] = pressure.Baseline * 1.1

	table := series.New(process.ChannelCodes(), series.DefaultInterval)
	if err := table.Append(baselineRow); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := table.Append(bumped); err != nil {
		t.Fatalf("append: %v", err)
	}

	trajectory, err := DeviationTrajectory(table)
	if err != nil {
		t.Fatalf("trajectory: %v", err)
	}
	if len(trajectory) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(trajectory))
	}
	if trajectory[0] != 0 {
		t.Fatalf("baseline row should not deviate: %v", trajectory[0])
	}
	if math.Abs(trajectory[1]-10.0) > 1e-9 {
		t.Fatalf("bumped row: got %v, want 10", trajectory[1])
	}

	if _, err := DeviationTrajectory(nil); err == nil {
		t.Fatal("expected error for nil table")
	}
}

func TestWriteAndReadSweepReport(t *testing.T) {
	dir := t.TempDir()

	cells := []SweepCell{
		{Fault: "IDV(1)", Seed: 1, RunID: "run-1", MaxDeviationPercent: 4.0, LeadChannel: "XMEAS(7)"},
		{Fault: "IDV(1)", Seed: 2, RunID: "run-2", MaxDeviationPercent: 6.0, LeadChannel: "XMEAS(7)"},
	}
	report := SweepReport{
		ExperimentID: "sweep-7",
		Experiment:   SweepExperiment{ID: "sweep-7", ProgressFlag: SweepCompleted, TotalRuns: 2},
		Cells:        cells,
		Faults:       BuildFaultSweepStats(cells),
	}

	reportDir, err := WriteSweepReport(dir, report)
	if err != nil {
		t.Fatalf("write report: %v", err)
	}
	for _, name := range []string{"sweep_report.json", "sweep_faults.json", "sweep_cells.jsonl", "sweep_deviations.csv"} {
		if _, err := os.Stat(filepath.Join(reportDir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}

	csvFile, err := os.Open(filepath.Join(reportDir, "sweep_deviations.csv"))
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer csvFile.Close()
	scanner := bufio.NewScanner(csvFile)
	lines := 0
	for scanner.Scan() {
		if lines == 0 && scanner.Text() != "fault,seed,run_id,max_deviation_pct,lead_channel" {
			t.Fatalf("unexpected csv header: %s", scanner.Text())
		}
		lines++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan csv: %v", err)
	}
	if lines != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", lines)
	}

	jsonl, err := os.ReadFile(filepath.Join(reportDir, "sweep_cells.jsonl"))
	if err != nil {
		t.Fatalf("read jsonl: %v", err)
	}
	if got := strings.Count(string(jsonl), "\n"); got != 2 {
		t.Fatalf("expected 2 jsonl lines, got %d", got)
	}

	back, ok, err := ReadSweepReport(dir, "sweep-7", "")
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !ok {
		t.Fatal("expected report to exist")
	}
	if back.ExperimentID != "sweep-7" || len(back.Cells) != 2 || len(back.Faults) != 1 {
		t.Fatalf("unexpected report: %+v", back)
	}
	if back.GeneratedAtUTC == "" {
		t.Fatal("expected generated timestamp")
	}

	_, ok, err = ReadSweepReport(dir, "sweep-missing", "")
	if err != nil {
		t.Fatalf("read missing: %v", err)
	}
	if ok {
		t.Fatal("expected missing report")
	}
}
