// Package eidolon exposes the fault simulation pipeline as an embeddable
// client: scenario resolution, engine execution with surrogate fallback,
// persistence, artifacts, and streaming.
package eidolon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"time"

	"eidolon/internal/engine"
	"eidolon/internal/features"
	"eidolon/internal/model"
	"eidolon/internal/process"
	"eidolon/internal/publish"
	"eidolon/internal/scenario"
	"eidolon/internal/series"
	"eidolon/internal/stats"
	"eidolon/internal/storage"
	"eidolon/internal/surrogate"

	"github.com/google/uuid"
)

const (
	defaultArtifactsDir = "artifacts"
	defaultExportsDir   = "exports"
	defaultDBPath       = "eidolon.db"
	defaultScenario     = "normal-operation"
	defaultTopic        = "eidolon.samples"
	summaryTopChannels  = 5
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string

	// Engine is the physics backend to try before the surrogate. EngineName
	// resolves one from the engine registry instead. Neither set means every
	// run is produced by the surrogate.
	Engine     engine.Engine
	EngineName string
}

type Client struct {
	store  storage.Store
	engine engine.Engine

	artifactsDir string
	exportsDir   string

	initialized bool
}

type RunRequest struct {
	Scenario     string
	ScenarioPath string
	Samples      int
	Seed         int64
}

type RunSummary struct {
	RunID               string
	Scenario            string
	Samples             int
	Seed                int64
	Source              string
	EngineError         string
	ArtifactsDir        string
	MaxDeviationPercent float64
	TopDeviations       []stats.ChannelDeviation
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID               string
	CreatedAtUTC        string
	Scenario            string
	Samples             int
	Seed                int64
	Source              string
	MaxDeviationPercent float64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type FeaturesRequest struct {
	RunID  string
	Latest bool
}

type ScenarioItem struct {
	Name        string
	Description string
	Samples     int
	Faults      []string
	Builtin     bool
}

type StreamRequest struct {
	Scenario     string
	ScenarioPath string
	Samples      int
	Seed         int64
	Brokers      []string
	Topic        string
	Rate         time.Duration
	Logger       *slog.Logger
}

type StreamSummary struct {
	SessionID string
	Scenario  string
	Published int
}

// BenchRequest configures a fault sweep. Faults lists 1-based IDV numbers;
// empty means the full catalog. Each fault runs with Seeds consecutive seeds
// starting at BaseSeed.
type BenchRequest struct {
	Faults    []int
	Samples   int
	Seeds     int
	BaseSeed  int64
	Intensity float64
	Onset     int
	Notes     string
}

type BenchSummary struct {
	ExperimentID string
	ReportDir    string
	Runs         int
	Faults       []stats.FaultSweepStats
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	eng := opts.Engine
	if eng == nil && opts.EngineName != "" {
		resolved, err := engine.Resolve(opts.EngineName)
		if err != nil {
			return nil, err
		}
		eng = resolved
	}

	return &Client{
		store:        store,
		engine:       eng,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensureStore(ctx)
	return err
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	sc, err := c.resolveScenario(ctx, req.Scenario, req.ScenarioPath, req.Samples, req.Seed)
	if err != nil {
		return RunSummary{}, err
	}
	summary, _, err := c.runScenario(ctx, sc)
	return summary, err
}

// runScenario executes one scenario end to end: fallback runner, feature
// extraction, persistence, artifacts, run index. The produced table is
// returned alongside the summary for callers that post-process it.
func (c *Client) runScenario(ctx context.Context, sc scenario.Scenario) (RunSummary, *series.Table, error) {
	if err := sc.Validate(); err != nil {
		return RunSummary{}, nil, err
	}

	store, err := c.ensureStore(ctx)
	if err != nil {
		return RunSummary{}, nil, err
	}

	now := time.Now().UTC()
	runID := fmt.Sprintf("%s-%d-%d", sc.Name, sc.Seed, now.Unix())

	runner := engine.NewRunner(c.engine, sc.Seed)
	result, err := runner.Run(ctx, sc.Schedule(), sc.Manipulated())
	if err != nil {
		return RunSummary{}, nil, err
	}

	vector, err := features.Extract(result.Table)
	if err != nil {
		return RunSummary{}, nil, err
	}

	engineErr := ""
	if result.EngineErr != nil {
		engineErr = result.EngineErr.Error()
	}

	if err := store.SaveScenario(ctx, model.ScenarioRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: storage.CurrentSchemaVersion, CodecVersion: storage.CurrentCodecVersion},
		Name:            sc.Name,
		Definition:      sc,
		CreatedAtUTC:    now,
	}); err != nil {
		return RunSummary{}, nil, err
	}
	if err := store.SaveRun(ctx, model.RunRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: storage.CurrentSchemaVersion, CodecVersion: storage.CurrentCodecVersion},
		RunID:           runID,
		Scenario:        sc.Name,
		Seed:            sc.Seed,
		Samples:         sc.Samples,
		Source:          result.Source,
		EngineError:     engineErr,
		FaultCodes:      sc.FaultCodes(),
		CreatedAtUTC:    now,
		Series:          result.Table.File(),
	}); err != nil {
		return RunSummary{}, nil, err
	}
	if err := store.SaveFeatures(ctx, model.FeatureRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: storage.CurrentSchemaVersion, CodecVersion: storage.CurrentCodecVersion},
		RunID:           runID,
		Vector:          vector,
		CreatedAtUTC:    now,
	}); err != nil {
		return RunSummary{}, nil, err
	}

	cfg := stats.RunConfig{
		RunID:           runID,
		Scenario:        sc.Name,
		Samples:         sc.Samples,
		Seed:            sc.Seed,
		IntervalMinutes: series.DefaultInterval.Minutes(),
		Source:          result.Source,
		EngineError:     engineErr,
		FaultCodes:      sc.FaultCodes(),
		CreatedAtUTC:    now.Format(time.RFC3339Nano),
	}
	summaryDoc := stats.BuildRunSummary(cfg, vector, summaryTopChannels)
	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Config:   cfg,
		Series:   result.Table,
		Features: vector,
		Summary:  summaryDoc,
	})
	if err != nil {
		return RunSummary{}, nil, err
	}

	maxDeviation := maxAbsDeviation(vector)
	if err := stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:               runID,
		Scenario:            sc.Name,
		Samples:             sc.Samples,
		Seed:                sc.Seed,
		Source:              result.Source,
		MaxDeviationPercent: maxDeviation,
		CreatedAtUTC:        now.Format(time.RFC3339Nano),
	}); err != nil {
		return RunSummary{}, nil, err
	}

	return RunSummary{
		RunID:               runID,
		Scenario:            sc.Name,
		Samples:             sc.Samples,
		Seed:                sc.Seed,
		Source:              result.Source,
		EngineError:         engineErr,
		ArtifactsDir:        filepath.Clean(runDir),
		MaxDeviationPercent: maxDeviation,
		TopDeviations:       summaryDoc.TopDeviations,
	}, result.Table, nil
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		store, err := c.ensureStore(ctx)
		if err != nil {
			return nil, err
		}
		stored, err := store.ListRuns(ctx)
		if err != nil {
			return nil, err
		}
		for _, run := range stored {
			entries = append(entries, stats.RunIndexEntry{
				RunID:        run.RunID,
				Scenario:     run.Scenario,
				Samples:      run.Samples,
				Seed:         run.Seed,
				Source:       run.Source,
				CreatedAtUTC: run.CreatedAtUTC.Format(time.RFC3339Nano),
			})
		}
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:               e.RunID,
			CreatedAtUTC:        e.CreatedAtUTC,
			Scenario:            e.Scenario,
			Samples:             e.Samples,
			Seed:                e.Seed,
			Source:              e.Source,
			MaxDeviationPercent: e.MaxDeviationPercent,
		})
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(entries) == 0 {
			return ExportSummary{}, errors.New("no runs available to export")
		}
		runID = entries[0].RunID
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) Features(ctx context.Context, req FeaturesRequest) (features.Vector, error) {
	if req.RunID != "" && req.Latest {
		return features.Vector{}, errors.New("use either run id or latest")
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return features.Vector{}, err
		}
		if len(entries) == 0 {
			return features.Vector{}, errors.New("no runs available")
		}
		runID = entries[0].RunID
	}
	if runID == "" {
		return features.Vector{}, errors.New("features requires run id or latest")
	}

	store, err := c.ensureStore(ctx)
	if err != nil {
		return features.Vector{}, err
	}
	record, ok, err := store.GetFeatures(ctx, runID)
	if err != nil {
		return features.Vector{}, err
	}
	if ok {
		return record.Vector, nil
	}

	run, ok, err := store.GetRun(ctx, runID)
	if err != nil {
		return features.Vector{}, err
	}
	if ok {
		table, err := series.FromFile(run.Series)
		if err != nil {
			return features.Vector{}, err
		}
		return features.Extract(table)
	}

	// Not in the store (e.g. a fresh memory store): fall back to the run's
	// artifact files, which outlive the process.
	vector, ok, err := stats.ReadFeatures(c.artifactsDir, runID)
	if err != nil {
		return features.Vector{}, err
	}
	if ok {
		return vector, nil
	}
	table, ok, err := stats.ReadSeriesCSV(c.artifactsDir, runID)
	if err != nil {
		return features.Vector{}, err
	}
	if ok {
		return features.Extract(table)
	}

	return features.Vector{}, fmt.Errorf("run not found: %s", runID)
}

func (c *Client) Scenarios(ctx context.Context) ([]ScenarioItem, error) {
	store, err := c.ensureStore(ctx)
	if err != nil {
		return nil, err
	}
	stored, err := store.ListScenarios(ctx)
	if err != nil {
		return nil, err
	}

	items := make(map[string]ScenarioItem)
	for _, sc := range scenario.Builtin() {
		items[sc.Name] = scenarioItem(sc, true)
	}
	for _, record := range stored {
		if _, ok := items[record.Name]; ok {
			continue
		}
		items[record.Name] = scenarioItem(record.Definition, false)
	}

	out := make([]ScenarioItem, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *Client) AddScenario(ctx context.Context, path string) (ScenarioItem, error) {
	sc, err := scenario.Load(path)
	if err != nil {
		return ScenarioItem{}, err
	}
	store, err := c.ensureStore(ctx)
	if err != nil {
		return ScenarioItem{}, err
	}
	if err := store.SaveScenario(ctx, model.ScenarioRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: storage.CurrentSchemaVersion, CodecVersion: storage.CurrentCodecVersion},
		Name:            sc.Name,
		Definition:      sc,
		CreatedAtUTC:    time.Now().UTC(),
	}); err != nil {
		return ScenarioItem{}, err
	}
	return scenarioItem(sc, false), nil
}

func (c *Client) Stream(ctx context.Context, req StreamRequest) (StreamSummary, error) {
	sc, err := c.resolveScenario(ctx, req.Scenario, req.ScenarioPath, req.Samples, req.Seed)
	if err != nil {
		return StreamSummary{}, err
	}
	if err := sc.Validate(); err != nil {
		return StreamSummary{}, err
	}
	if len(req.Brokers) == 0 {
		req.Brokers = []string{"localhost:9092"}
	}
	if req.Topic == "" {
		req.Topic = defaultTopic
	}
	if req.Rate <= 0 {
		req.Rate = time.Second
	}
	log := req.Logger
	if log == nil {
		log = slog.Default()
	}

	sessionID := uuid.NewString()
	writer := publish.NewWriter(req.Brokers, req.Topic)
	defer func() {
		_ = writer.Close()
	}()

	mv := sc.Manipulated()
	columns := process.ChannelCodes()
	m := surrogate.New(sc.Seed)
	log.Info("stream started", "sessionId", sessionID, "scenario", sc.Name, "topic", req.Topic, "rate", req.Rate.String())

	ticker := time.NewTicker(req.Rate)
	defer ticker.Stop()

	published := 0
	for step := 0; sc.Samples == 0 || step < sc.Samples; step++ {
		row, err := m.Step(mv, sc.ScheduleRow(step), step)
		if err != nil {
			return StreamSummary{SessionID: sessionID, Scenario: sc.Name, Published: published}, err
		}
		sample := publish.NewSample(sessionID, sc.Name, step, series.DefaultInterval, columns, row, time.Now().UTC())
		if err := publish.Publish(ctx, log, writer, sample); err == nil {
			published++
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			log.Info("stream stopped", "sessionId", sessionID, "published", published)
			return StreamSummary{SessionID: sessionID, Scenario: sc.Name, Published: published}, nil
		}
	}
	log.Info("stream complete", "sessionId", sessionID, "published", published)
	return StreamSummary{SessionID: sessionID, Scenario: sc.Name, Published: published}, nil
}

// Bench sweeps faults against seeds, pushing every run through the regular
// pipeline, then writes an experiment record and a report bundle under the
// artifacts directory. The experiment record is rewritten after each run so
// an interrupted sweep leaves an inspectable trail.
func (c *Client) Bench(ctx context.Context, req BenchRequest) (BenchSummary, error) {
	if req.Samples <= 0 {
		req.Samples = 20
	}
	if req.Seeds <= 0 {
		req.Seeds = 3
	}
	if req.BaseSeed == 0 {
		req.BaseSeed = 1
	}
	if req.Intensity == 0 {
		req.Intensity = 1.0
	}
	faults := req.Faults
	if len(faults) == 0 {
		faults = make([]int, process.DisturbanceCount)
		for i := range faults {
			faults[i] = i + 1
		}
	}

	codes := make([]string, 0, len(faults))
	for _, idv := range faults {
		spec, err := process.FaultSpecByIndex(idv - 1)
		if err != nil {
			return BenchSummary{}, err
		}
		codes = append(codes, spec.Code)
	}
	seeds := make([]int64, req.Seeds)
	for i := range seeds {
		seeds[i] = req.BaseSeed + int64(i)
	}

	now := time.Now().UTC()
	exp := stats.SweepExperiment{
		ID:           fmt.Sprintf("sweep-%d", now.Unix()),
		Notes:        req.Notes,
		ProgressFlag: stats.SweepInProgress,
		TotalRuns:    len(faults) * len(seeds),
		Samples:      req.Samples,
		Intensity:    req.Intensity,
		FaultCodes:   codes,
		Seeds:        seeds,
		StartedAtUTC: now.Format(time.RFC3339Nano),
	}
	if err := stats.WriteSweepExperiment(c.artifactsDir, exp); err != nil {
		return BenchSummary{}, err
	}

	cells := make([]stats.SweepCell, 0, exp.TotalRuns)
	trajectories := make(map[string][][]float64, len(faults))
	for i, idv := range faults {
		for _, seed := range seeds {
			sc := scenario.Scenario{
				Name:    fmt.Sprintf("sweep-idv-%d", idv),
				Samples: req.Samples,
				Seed:    seed,
				Faults:  []scenario.FaultEntry{{IDV: idv, Intensity: req.Intensity, OnsetSample: req.Onset}},
			}
			summary, table, err := c.runScenario(ctx, sc)
			if err != nil {
				return BenchSummary{}, err
			}
			trajectory, err := stats.DeviationTrajectory(table)
			if err != nil {
				return BenchSummary{}, err
			}
			trajectories[codes[i]] = append(trajectories[codes[i]], trajectory)

			cell := stats.SweepCell{
				Fault:               codes[i],
				Seed:                seed,
				RunID:               summary.RunID,
				MaxDeviationPercent: summary.MaxDeviationPercent,
			}
			if len(summary.TopDeviations) > 0 {
				cell.LeadChannel = summary.TopDeviations[0].Code
			}
			cells = append(cells, cell)

			exp.RunIndex = len(cells)
			exp.RunIDs = append(exp.RunIDs, summary.RunID)
			if err := stats.WriteSweepExperiment(c.artifactsDir, exp); err != nil {
				return BenchSummary{}, err
			}
		}
	}

	exp.ProgressFlag = stats.SweepCompleted
	exp.CompletedAtUTC = time.Now().UTC().Format(time.RFC3339Nano)
	if err := stats.WriteSweepExperiment(c.artifactsDir, exp); err != nil {
		return BenchSummary{}, err
	}

	faultStats := stats.BuildFaultSweepStats(cells)
	for i := range faultStats {
		faultStats[i].Trajectory = stats.BuildSweepPlot(trajectories[faultStats[i].Fault], 0, 1)
	}
	reportDir, err := stats.WriteSweepReport(c.artifactsDir, stats.SweepReport{
		ExperimentID: exp.ID,
		Experiment:   exp,
		Cells:        cells,
		Faults:       faultStats,
	})
	if err != nil {
		return BenchSummary{}, err
	}

	return BenchSummary{
		ExperimentID: exp.ID,
		ReportDir:    filepath.Clean(reportDir),
		Runs:         len(cells),
		Faults:       faultStats,
	}, nil
}

func (c *Client) ensureStore(ctx context.Context) (storage.Store, error) {
	if c.initialized {
		return c.store, nil
	}
	if err := c.store.Init(ctx); err != nil {
		return nil, err
	}
	c.initialized = true
	return c.store, nil
}

func (c *Client) resolveScenario(ctx context.Context, name, path string, samples int, seed int64) (scenario.Scenario, error) {
	if name != "" && path != "" {
		return scenario.Scenario{}, errors.New("use either scenario name or scenario file")
	}

	var sc scenario.Scenario
	switch {
	case path != "":
		loaded, err := scenario.Load(path)
		if err != nil {
			return scenario.Scenario{}, err
		}
		sc = loaded
	case name != "":
		builtin, err := scenario.BuiltinByName(name)
		if err == nil {
			sc = builtin
			break
		}
		if !errors.Is(err, scenario.ErrUnknownScenario) {
			return scenario.Scenario{}, err
		}
		store, err := c.ensureStore(ctx)
		if err != nil {
			return scenario.Scenario{}, err
		}
		record, ok, err := store.GetScenario(ctx, name)
		if err != nil {
			return scenario.Scenario{}, err
		}
		if !ok {
			return scenario.Scenario{}, fmt.Errorf("%w: %s", scenario.ErrUnknownScenario, name)
		}
		sc = record.Definition
	default:
		builtin, err := scenario.BuiltinByName(defaultScenario)
		if err != nil {
			return scenario.Scenario{}, err
		}
		sc = builtin
	}

	if samples > 0 {
		sc.Samples = samples
	}
	if seed != 0 {
		sc.Seed = seed
	}
	return sc, nil
}

func scenarioItem(sc scenario.Scenario, builtin bool) ScenarioItem {
	return ScenarioItem{
		Name:        sc.Name,
		Description: sc.Description,
		Samples:     sc.Samples,
		Faults:      sc.FaultCodes(),
		Builtin:     builtin,
	}
}

func maxAbsDeviation(vector features.Vector) float64 {
	best := 0.0
	for _, channel := range vector.Channels {
		if d := math.Abs(channel.DeviationPercent); d > best {
			best = d
		}
	}
	return best
}
