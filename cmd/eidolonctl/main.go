package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"eidolon/internal/engine"
	"eidolon/internal/features"
	"eidolon/internal/process"
	"eidolon/internal/stats"
	"eidolon/internal/storage"
	eidolonapi "eidolon/pkg/eidolon"
)

const (
	artifactsDir = "artifacts"
	exportsDir   = "exports"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "scenarios":
		return runScenarios(ctx, args[1:])
	case "add-scenario":
		return runAddScenario(ctx, args[1:])
	case "channels":
		return runChannels(ctx, args[1:])
	case "faults":
		return runFaults(ctx, args[1:])
	case "engines":
		return runEngines(ctx, args[1:])
	case "features":
		return runFeatures(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "stream":
		return runStream(ctx, args[1:])
	case "bench":
		return runBench(ctx, args[1:])
	case "sweeps":
		return runSweeps(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "eidolon.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := eidolonapi.New(eidolonapi.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: artifactsDir,
		ExportsDir:   exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	scenarioName := fs.String("scenario", "", "builtin or stored scenario name (default normal-operation)")
	scenarioFile := fs.String("scenario-file", "", "scenario definition YAML path")
	samples := fs.Int("samples", 0, "override sample count (0 keeps the scenario value)")
	seed := fs.Int64("seed", 0, "override rng seed (0 keeps the scenario value)")
	engineName := fs.String("engine", "", "registered engine to try before the surrogate")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "eidolon.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := eidolonapi.New(eidolonapi.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: artifactsDir,
		ExportsDir:   exportsDir,
		EngineName:   *engineName,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, eidolonapi.RunRequest{
		Scenario:     *scenarioName,
		ScenarioPath: *scenarioFile,
		Samples:      *samples,
		Seed:         *seed,
	})
	if err != nil {
		return err
	}

	fmt.Printf("run completed run_id=%s scenario=%s samples=%d seed=%d source=%s\n",
		summary.RunID, summary.Scenario, summary.Samples, summary.Seed, summary.Source)
	if summary.EngineError != "" {
		fmt.Printf("engine_error=%q\n", summary.EngineError)
	}
	for _, d := range summary.TopDeviations {
		fmt.Printf("channel=%s name=%q deviation_pct=%.3f\n", d.Code, d.Name, d.DeviationPercent)
	}
	fmt.Printf("max_deviation_pct=%.3f\n", summary.MaxDeviationPercent)
	fmt.Printf("artifacts_dir=%s\n", summary.ArtifactsDir)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "eidolon.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := eidolonapi.New(eidolonapi.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: artifactsDir,
		ExportsDir:   exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, eidolonapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	if *jsonOut {
		type runsItem struct {
			RunID               string  `json:"run_id"`
			CreatedAtUTC        string  `json:"created_at_utc"`
			Scenario            string  `json:"scenario"`
			Samples             int     `json:"samples"`
			Seed                int64   `json:"seed"`
			Source              string  `json:"source"`
			MaxDeviationPercent float64 `json:"max_deviation_percent"`
		}
		items := make([]runsItem, 0, len(runs))
		for _, r := range runs {
			items = append(items, runsItem{
				RunID:               r.RunID,
				CreatedAtUTC:        r.CreatedAtUTC,
				Scenario:            r.Scenario,
				Samples:             r.Samples,
				Seed:                r.Seed,
				Source:              r.Source,
				MaxDeviationPercent: r.MaxDeviationPercent,
			})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	for _, r := range runs {
		fmt.Printf("run_id=%s created_at=%s scenario=%s samples=%d seed=%d source=%s max_deviation_pct=%.3f\n",
			r.RunID, r.CreatedAtUTC, r.Scenario, r.Samples, r.Seed, r.Source, r.MaxDeviationPercent)
	}
	return nil
}

func runScenarios(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scenarios", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit scenario list as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "eidolon.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := eidolonapi.New(eidolonapi.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: artifactsDir,
		ExportsDir:   exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Scenarios(ctx)
	if err != nil {
		return err
	}

	if *jsonOut {
		type scenarioItem struct {
			Name        string   `json:"name"`
			Description string   `json:"description,omitempty"`
			Samples     int      `json:"samples"`
			Faults      []string `json:"faults,omitempty"`
			Builtin     bool     `json:"builtin"`
		}
		out := make([]scenarioItem, 0, len(items))
		for _, item := range items {
			out = append(out, scenarioItem{
				Name:        item.Name,
				Description: item.Description,
				Samples:     item.Samples,
				Faults:      item.Faults,
				Builtin:     item.Builtin,
			})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, item := range items {
		faults := "none"
		if len(item.Faults) > 0 {
			faults = strings.Join(item.Faults, ",")
		}
		fmt.Printf("name=%s builtin=%t samples=%d faults=%s description=%q\n",
			item.Name, item.Builtin, item.Samples, faults, item.Description)
	}
	return nil
}

func runAddScenario(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-scenario", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "eidolon.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path := fs.Arg(0)
	if path == "" {
		return errors.New("add-scenario requires a scenario YAML path")
	}

	client, err := eidolonapi.New(eidolonapi.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: artifactsDir,
		ExportsDir:   exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	item, err := client.AddScenario(ctx, path)
	if err != nil {
		return err
	}

	fmt.Printf("added scenario name=%s samples=%d faults=%d\n", item.Name, item.Samples, len(item.Faults))
	return nil
}

func runChannels(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("channels", flag.ContinueOnError)
	kindFilter := fs.String("kind", "all", "filter: measurement|composition|manipulated|all")
	jsonOut := fs.Bool("json", false, "emit channel list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	channels := process.Channels()
	if *kindFilter != "all" {
		filtered := channels[:0]
		for _, c := range channels {
			if c.Kind.String() == *kindFilter {
				filtered = append(filtered, c)
			}
		}
		if len(filtered) == 0 {
			return fmt.Errorf("unknown channel kind: %s", *kindFilter)
		}
		channels = filtered
	}

	if *jsonOut {
		type channelItem struct {
			Slot     int     `json:"slot"`
			Code     string  `json:"code"`
			Name     string  `json:"name"`
			Unit     string  `json:"unit,omitempty"`
			Kind     string  `json:"kind"`
			Baseline float64 `json:"baseline"`
		}
		items := make([]channelItem, 0, len(channels))
		for _, c := range channels {
			items = append(items, channelItem{
				Slot:     c.Slot,
				Code:     c.Code,
				Name:     c.Name,
				Unit:     c.Unit,
				Kind:     c.Kind.String(),
				Baseline: c.Baseline,
			})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	for _, c := range channels {
		fmt.Printf("slot=%d code=%s kind=%s baseline=%v unit=%s name=%q\n",
			c.Slot, c.Code, c.Kind, c.Baseline, c.Unit, c.Name)
	}
	return nil
}

func runFaults(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("faults", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit fault list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	faults := process.Faults()
	if *jsonOut {
		type faultItem struct {
			Code string `json:"code"`
			Name string `json:"name"`
			Type string `json:"type"`
		}
		items := make([]faultItem, 0, len(faults))
		for _, f := range faults {
			items = append(items, faultItem{Code: f.Code, Name: f.Name, Type: string(f.Type)})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	for _, f := range faults {
		fmt.Printf("code=%s type=%s name=%q\n", f.Code, f.Type, f.Name)
	}
	return nil
}

func runEngines(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("engines", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	names := engine.Registered()
	if len(names) == 0 {
		fmt.Println("no engines registered")
		return nil
	}
	for _, name := range names {
		fmt.Printf("engine=%s\n", name)
	}
	return nil
}

func runFeatures(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("features", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show features for the most recent run from run index")
	top := fs.Int("top", 0, "show only the N strongest movers by deviation (0 shows all in channel order)")
	jsonOut := fs.Bool("json", false, "emit the feature vector as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "eidolon.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("features requires --run-id or --latest")
	}

	client, err := eidolonapi.New(eidolonapi.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: artifactsDir,
		ExportsDir:   exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	vector, err := client.Features(ctx, eidolonapi.FeaturesRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(vector)
	}

	channels := vector.Channels
	if *top > 0 {
		ranked := features.RankByDeviation(vector)
		if len(ranked) > *top {
			ranked = ranked[:*top]
		}
		channels = ranked
	}
	fmt.Printf("samples=%d channels=%d\n", vector.Samples, len(vector.Channels))
	for _, c := range channels {
		fmt.Printf("code=%s mean=%.4f std_dev=%.4f min=%.4f max=%.4f slope_per_min=%.5f deviation_pct=%.3f\n",
			c.Code, c.Mean, c.StdDev, c.Min, c.Max, c.Slope, c.DeviationPercent)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", exportsDir, "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}

	client, err := eidolonapi.New(eidolonapi.Options{
		ArtifactsDir: artifactsDir,
		ExportsDir:   exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, eidolonapi.ExportRequest{
		RunID:  *runID,
		Latest: *latest,
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}

	fmt.Printf("exported run_id=%s to=%s\n", exported.RunID, exported.Directory)
	return nil
}

func runStream(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stream", flag.ContinueOnError)
	scenarioName := fs.String("scenario", "", "builtin or stored scenario name (default normal-operation)")
	scenarioFile := fs.String("scenario-file", "", "scenario definition YAML path")
	samples := fs.Int("samples", 0, "samples to publish before stopping (0 streams until interrupted)")
	seed := fs.Int64("seed", 0, "override rng seed (0 keeps the scenario value)")
	brokers := fs.String("brokers", "localhost:9092", "comma-separated Kafka broker addresses")
	topic := fs.String("topic", "eidolon.samples", "Kafka topic for published samples")
	rate := fs.Duration("rate", time.Second, "wall-clock delay between published samples")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "eidolon.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := eidolonapi.New(eidolonapi.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: artifactsDir,
		ExportsDir:   exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	summary, err := client.Stream(ctx, eidolonapi.StreamRequest{
		Scenario:     *scenarioName,
		ScenarioPath: *scenarioFile,
		Samples:      *samples,
		Seed:         *seed,
		Brokers:      strings.Split(*brokers, ","),
		Topic:        *topic,
		Rate:         *rate,
		Logger:       log,
	})
	if err != nil {
		return err
	}

	fmt.Printf("stream finished session_id=%s scenario=%s published=%d\n",
		summary.SessionID, summary.Scenario, summary.Published)
	return nil
}

func runBench(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	faultList := fs.String("faults", "", "comma-separated fault numbers or IDV codes (empty sweeps all 20)")
	samples := fs.Int("samples", 20, "samples per run")
	seeds := fs.Int("seeds", 3, "seeds per fault")
	baseSeed := fs.Int64("base-seed", 1, "first seed; later runs increment from here")
	intensity := fs.Float64("intensity", 1.0, "fault intensity applied to every sweep run")
	onset := fs.Int("onset", 0, "0-based sample at which each fault becomes active")
	notes := fs.String("notes", "", "free-form note stored on the experiment record")
	engineName := fs.String("engine", "", "registered engine to try before the surrogate")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "eidolon.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *seeds <= 0 {
		return errors.New("seeds must be > 0")
	}
	faults, err := parseFaultList(*faultList)
	if err != nil {
		return err
	}

	client, err := eidolonapi.New(eidolonapi.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: artifactsDir,
		ExportsDir:   exportsDir,
		EngineName:   *engineName,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	bench, err := client.Bench(ctx, eidolonapi.BenchRequest{
		Faults:    faults,
		Samples:   *samples,
		Seeds:     *seeds,
		BaseSeed:  *baseSeed,
		Intensity: *intensity,
		Onset:     *onset,
		Notes:     *notes,
	})
	if err != nil {
		return err
	}

	fmt.Printf("bench completed experiment_id=%s runs=%d\n", bench.ExperimentID, bench.Runs)
	for _, fstats := range bench.Faults {
		fmt.Printf("fault=%s runs=%d mean_max_deviation_pct=%.3f std=%.3f min=%.3f max=%.3f lead_channel=%s\n",
			fstats.Fault, fstats.Runs, fstats.MeanMaxDeviation, fstats.StdMaxDeviation,
			fstats.MinMaxDeviation, fstats.MaxMaxDeviation, fstats.LeadChannel)
	}
	fmt.Printf("report_dir=%s\n", bench.ReportDir)
	return nil
}

func runSweeps(_ context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("sweeps requires a subcommand: list|show")
	}
	switch args[0] {
	case "list":
		exps, err := stats.ListSweepExperiments(artifactsDir)
		if err != nil {
			return err
		}
		if len(exps) == 0 {
			fmt.Println("no sweep experiments")
			return nil
		}
		for _, exp := range exps {
			faults := "none"
			if len(exp.FaultCodes) > 0 {
				faults = strings.Join(exp.FaultCodes, ",")
			}
			fmt.Printf("experiment_id=%s progress=%s runs=%d/%d samples=%d intensity=%g faults=%s started_at=%s\n",
				exp.ID, exp.ProgressFlag, exp.RunIndex, exp.TotalRuns, exp.Samples, exp.Intensity, faults, exp.StartedAtUTC)
		}
		return nil
	case "show":
		fs := flag.NewFlagSet("sweeps show", flag.ContinueOnError)
		id := fs.String("id", "", "experiment id")
		jsonOut := fs.Bool("json", false, "emit the full sweep report as JSON")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *id == "" {
			return errors.New("sweeps show requires --id")
		}

		report, ok, err := stats.ReadSweepReport(artifactsDir, *id, "")
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no sweep report for experiment: %s", *id)
		}

		if *jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		exp := report.Experiment
		fmt.Printf("experiment_id=%s progress=%s runs=%d/%d generated_at=%s\n",
			report.ExperimentID, exp.ProgressFlag, exp.RunIndex, exp.TotalRuns, report.GeneratedAtUTC)
		for _, fstats := range report.Faults {
			fmt.Printf("fault=%s runs=%d mean_max_deviation_pct=%.3f std=%.3f min=%.3f max=%.3f lead_channel=%s\n",
				fstats.Fault, fstats.Runs, fstats.MeanMaxDeviation, fstats.StdMaxDeviation,
				fstats.MinMaxDeviation, fstats.MaxMaxDeviation, fstats.LeadChannel)
		}
		return nil
	default:
		return fmt.Errorf("unsupported sweeps subcommand: %s", args[0])
	}
}

func parseFaultList(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		n, err := strconv.Atoi(part)
		if err != nil {
			spec, codeErr := process.FaultByCode(part)
			if codeErr != nil {
				return nil, fmt.Errorf("parse fault list %q: %w", raw, err)
			}
			n = spec.Index + 1
		}
		out = append(out, n)
	}
	return out, nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: eidolonctl <init|run|runs|scenarios|add-scenario|channels|faults|engines|features|export|stream|bench|sweeps> [flags]", msg)
}
