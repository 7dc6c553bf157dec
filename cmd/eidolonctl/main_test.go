package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"eidolon/internal/stats"
)

func chdirTempDir(t *testing.T) string {
	t.Helper()
	origWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	workdir := t.TempDir()
	if err := os.Chdir(workdir); err != nil {
		t.Fatalf("chdir tempdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(origWD)
	})
	return workdir
}

func TestRunCommandCreatesArtifacts(t *testing.T) {
	chdirTempDir(t)

	output, err := captureStdout(func() error {
		return run(context.Background(), []string{
			"run",
			"--scenario", "ac-feed-step",
			"--samples", "8",
			"--seed", "5",
		})
	})
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if !strings.Contains(output, "run completed run_id=") {
		t.Fatalf("run output missing completion line: %s", output)
	}
	if !strings.Contains(output, "scenario=ac-feed-step") {
		t.Fatalf("run output missing scenario: %s", output)
	}
	if !strings.Contains(output, "source=surrogate") {
		t.Fatalf("run output missing source: %s", output)
	}

	entries, err := stats.ListRunIndex("artifacts")
	if err != nil {
		t.Fatalf("list run index: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one indexed run, got %d", len(entries))
	}
	for _, file := range []string{"config.json", "series.csv", "features.json", "summary.json"} {
		path := filepath.Join("artifacts", entries[0].RunID, file)
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected artifact %s: %v", path, err)
		}
	}
}

func TestRunsCommandListsIndexedRuns(t *testing.T) {
	chdirTempDir(t)

	if _, err := captureStdout(func() error {
		return run(context.Background(), []string{"run", "--samples", "5", "--seed", "9"})
	}); err != nil {
		t.Fatalf("run command: %v", err)
	}

	entries, err := stats.ListRunIndex("artifacts")
	if err != nil {
		t.Fatalf("list run index: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected indexed run")
	}

	output, err := captureStdout(func() error {
		return run(context.Background(), []string{"runs", "--limit", "1"})
	})
	if err != nil {
		t.Fatalf("runs command: %v", err)
	}
	if !strings.Contains(output, "run_id="+entries[0].RunID) {
		t.Fatalf("runs output missing run id %s: %s", entries[0].RunID, output)
	}

	jsonOutput, err := captureStdout(func() error {
		return run(context.Background(), []string{"runs", "--json"})
	})
	if err != nil {
		t.Fatalf("runs --json command: %v", err)
	}
	var items []struct {
		RunID    string `json:"run_id"`
		Scenario string `json:"scenario"`
	}
	if err := json.Unmarshal([]byte(jsonOutput), &items); err != nil {
		t.Fatalf("decode runs json: %v", err)
	}
	if len(items) != 1 || items[0].RunID != entries[0].RunID {
		t.Fatalf("unexpected runs json: %+v", items)
	}
	if items[0].Scenario != "normal-operation" {
		t.Fatalf("expected default scenario, got %s", items[0].Scenario)
	}
}

func TestRunsCommandEmptyIndex(t *testing.T) {
	chdirTempDir(t)

	output, err := captureStdout(func() error {
		return run(context.Background(), []string{"runs"})
	})
	if err != nil {
		t.Fatalf("runs command: %v", err)
	}
	if !strings.Contains(output, "no runs found") {
		t.Fatalf("expected empty message, got: %s", output)
	}
}

func TestExportLatestCopiesArtifacts(t *testing.T) {
	chdirTempDir(t)

	if _, err := captureStdout(func() error {
		return run(context.Background(), []string{"run", "--samples", "5", "--seed", "4"})
	}); err != nil {
		t.Fatalf("run command: %v", err)
	}
	entries, err := stats.ListRunIndex("artifacts")
	if err != nil || len(entries) == 0 {
		t.Fatalf("list run index: entries=%d err=%v", len(entries), err)
	}

	output, err := captureStdout(func() error {
		return run(context.Background(), []string{"export", "--latest"})
	})
	if err != nil {
		t.Fatalf("export command: %v", err)
	}
	if !strings.Contains(output, "exported run_id="+entries[0].RunID) {
		t.Fatalf("export output missing run id: %s", output)
	}
	for _, file := range []string{"config.json", "series.csv", "summary.json"} {
		path := filepath.Join("exports", entries[0].RunID, file)
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected exported %s: %v", path, err)
		}
	}
}

func TestFeaturesLatestReadsRunArtifacts(t *testing.T) {
	chdirTempDir(t)

	if _, err := captureStdout(func() error {
		return run(context.Background(), []string{"run", "--scenario", "ac-feed-step", "--samples", "6", "--seed", "2"})
	}); err != nil {
		t.Fatalf("run command: %v", err)
	}

	// The features invocation builds a fresh client, so the vector has to
	// come back from the run's artifact files.
	output, err := captureStdout(func() error {
		return run(context.Background(), []string{"features", "--latest", "--top", "3"})
	})
	if err != nil {
		t.Fatalf("features command: %v", err)
	}
	if !strings.Contains(output, "samples=6") {
		t.Fatalf("features output missing sample count: %s", output)
	}
	if strings.Count(output, "code=") != 3 {
		t.Fatalf("expected 3 ranked channels: %s", output)
	}
}

func TestScenariosCommandListsBuiltins(t *testing.T) {
	chdirTempDir(t)

	output, err := captureStdout(func() error {
		return run(context.Background(), []string{"scenarios"})
	})
	if err != nil {
		t.Fatalf("scenarios command: %v", err)
	}
	for _, want := range []string{"name=normal-operation", "name=ac-feed-step", "faults=IDV(1)"} {
		if !strings.Contains(output, want) {
			t.Fatalf("scenarios output missing %q: %s", want, output)
		}
	}
}

func TestAddScenarioCommandValidatesDefinition(t *testing.T) {
	workdir := chdirTempDir(t)

	path := filepath.Join(workdir, "drift.yaml")
	def := "name: slow-drift\ndescription: kinetics drift probe\nsamples: 6\nfaults:\n  - idv: 13\n    intensity: 0.5\n    onset_sample: 1\n"
	if err := os.WriteFile(path, []byte(def), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}

	output, err := captureStdout(func() error {
		return run(context.Background(), []string{"add-scenario", path})
	})
	if err != nil {
		t.Fatalf("add-scenario command: %v", err)
	}
	if !strings.Contains(output, "added scenario name=slow-drift samples=6 faults=1") {
		t.Fatalf("unexpected add-scenario output: %s", output)
	}

	if err := run(context.Background(), []string{"add-scenario"}); err == nil {
		t.Fatal("expected error for missing path argument")
	}
	bad := filepath.Join(workdir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("name: broken\nsamples: 3\nfaults:\n  - idv: 99\n"), 0o644); err != nil {
		t.Fatalf("write bad scenario: %v", err)
	}
	if err := run(context.Background(), []string{"add-scenario", bad}); err == nil {
		t.Fatal("expected error for out-of-range fault index")
	}
}

func TestChannelsAndFaultsCommands(t *testing.T) {
	output, err := captureStdout(func() error {
		return run(context.Background(), []string{"channels", "--kind", "measurement"})
	})
	if err != nil {
		t.Fatalf("channels command: %v", err)
	}
	if !strings.Contains(output, "code=XMEAS(7)") || strings.Contains(output, "code=XMV(") {
		t.Fatalf("unexpected channels output: %s", output)
	}

	output, err = captureStdout(func() error {
		return run(context.Background(), []string{"faults"})
	})
	if err != nil {
		t.Fatalf("faults command: %v", err)
	}
	if !strings.Contains(output, "code=IDV(1)") || !strings.Contains(output, "code=IDV(20)") {
		t.Fatalf("unexpected faults output: %s", output)
	}
}

func TestEnginesCommandEmptyRegistry(t *testing.T) {
	output, err := captureStdout(func() error {
		return run(context.Background(), []string{"engines"})
	})
	if err != nil {
		t.Fatalf("engines command: %v", err)
	}
	if !strings.Contains(output, "no engines registered") {
		t.Fatalf("unexpected engines output: %s", output)
	}
}

func TestBenchCommandWritesSweepReport(t *testing.T) {
	chdirTempDir(t)

	output, err := captureStdout(func() error {
		return run(context.Background(), []string{
			"bench",
			"--faults", "1,IDV(4)",
			"--samples", "6",
			"--seeds", "2",
			"--base-seed", "3",
		})
	})
	if err != nil {
		t.Fatalf("bench command: %v", err)
	}
	if !strings.Contains(output, "bench completed experiment_id=sweep-") || !strings.Contains(output, "runs=4") {
		t.Fatalf("bench output missing completion line: %s", output)
	}
	for _, want := range []string{"fault=IDV(1)", "fault=IDV(4)", "report_dir="} {
		if !strings.Contains(output, want) {
			t.Fatalf("bench output missing %q: %s", want, output)
		}
	}

	experiments, err := stats.ListSweepExperiments("artifacts")
	if err != nil {
		t.Fatalf("list experiments: %v", err)
	}
	if len(experiments) != 1 {
		t.Fatalf("expected one experiment, got %d", len(experiments))
	}
	if experiments[0].ProgressFlag != stats.SweepCompleted {
		t.Fatalf("expected completed experiment, got %s", experiments[0].ProgressFlag)
	}
	reportDir := filepath.Join("artifacts", "experiments", experiments[0].ID)
	for _, file := range []string{"experiment.json", "sweep_report.json", "sweep_faults.json", "sweep_cells.jsonl", "sweep_deviations.csv"} {
		path := filepath.Join(reportDir, file)
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected report file %s: %v", path, err)
		}
	}

	listed, err := captureStdout(func() error {
		return run(context.Background(), []string{"sweeps", "list"})
	})
	if err != nil {
		t.Fatalf("sweeps list: %v", err)
	}
	if !strings.Contains(listed, "experiment_id="+experiments[0].ID) || !strings.Contains(listed, "progress=completed") {
		t.Fatalf("sweeps list output missing experiment: %s", listed)
	}

	shown, err := captureStdout(func() error {
		return run(context.Background(), []string{"sweeps", "show", "--id", experiments[0].ID})
	})
	if err != nil {
		t.Fatalf("sweeps show: %v", err)
	}
	for _, want := range []string{"runs=4/4", "fault=IDV(1)", "fault=IDV(4)"} {
		if !strings.Contains(shown, want) {
			t.Fatalf("sweeps show output missing %q: %s", want, shown)
		}
	}

	if err := run(context.Background(), []string{"sweeps", "show", "--id", "sweep-0"}); err == nil || !strings.Contains(err.Error(), "no sweep report") {
		t.Fatalf("expected missing-report error, got %v", err)
	}
}

func TestCommandValidation(t *testing.T) {
	if err := run(context.Background(), nil); err == nil || !strings.Contains(err.Error(), "usage:") {
		t.Fatalf("expected usage error for missing command, got %v", err)
	}
	if err := run(context.Background(), []string{"nonsense"}); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
	if err := run(context.Background(), []string{"features"}); err == nil || !strings.Contains(err.Error(), "--run-id or --latest") {
		t.Fatalf("expected features selection error, got %v", err)
	}
	if err := run(context.Background(), []string{"features", "--run-id", "x", "--latest"}); err == nil || !strings.Contains(err.Error(), "not both") {
		t.Fatalf("expected either/or error, got %v", err)
	}
	if err := run(context.Background(), []string{"export"}); err == nil || !strings.Contains(err.Error(), "--run-id or --latest") {
		t.Fatalf("expected export selection error, got %v", err)
	}
	if err := run(context.Background(), []string{"bench", "--faults", "1,x"}); err == nil || !strings.Contains(err.Error(), "parse fault list") {
		t.Fatalf("expected fault list parse error, got %v", err)
	}
	if err := run(context.Background(), []string{"bench", "--seeds", "0"}); err == nil || !strings.Contains(err.Error(), "seeds must be") {
		t.Fatalf("expected seeds validation error, got %v", err)
	}
	if err := run(context.Background(), []string{"runs", "--limit", "0"}); err == nil || !strings.Contains(err.Error(), "limit must be") {
		t.Fatalf("expected limit validation error, got %v", err)
	}
	if err := run(context.Background(), []string{"sweeps"}); err == nil || !strings.Contains(err.Error(), "list|show") {
		t.Fatalf("expected sweeps subcommand error, got %v", err)
	}
	if err := run(context.Background(), []string{"sweeps", "show"}); err == nil || !strings.Contains(err.Error(), "requires --id") {
		t.Fatalf("expected sweeps show id error, got %v", err)
	}
}

func captureStdout(fn func() error) (string, error) {
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}

	os.Stdout = w
	runErr := fn()
	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		_ = r.Close()
		return "", err
	}
	_ = r.Close()
	return buf.String(), runErr
}
