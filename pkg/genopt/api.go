package genopt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"genopt/internal/evo"
	"genopt/internal/metrics"
	"genopt/internal/model"
	"genopt/internal/objective"
	"genopt/internal/stats"
	"genopt/internal/storage"
)

var ErrRunNotFound = errors.New("run not found")

type Options struct {
	StoreKind string
	Logger    *slog.Logger
	// Registerer receives the run metrics. Nil disables metrics.
	Registerer prometheus.Registerer
	// RetainRuns caps the number of stored runs; the oldest are dropped
	// first. Zero keeps every run.
	RetainRuns int
}

type Client struct {
	store   storage.Store
	logger  *slog.Logger
	metrics *metrics.Collector
	retain  int
	now     func() time.Time
}

// RunRequest describes one optimization run. Every field is used as given;
// start from DefaultRunRequest to get the standard configuration.
type RunRequest struct {
	Objective                  string      `yaml:"objective"`
	ChromosomeSize             int         `yaml:"chromosome_size"`
	LowerBound                 float64     `yaml:"lower_bound"`
	UpperBound                 float64     `yaml:"upper_bound"`
	Population                 int         `yaml:"population"`
	Generations                int         `yaml:"generations"`
	Selection                  string      `yaml:"selection"`
	SelectionRate              float64     `yaml:"selection_rate"`
	StepOrder                  string      `yaml:"step_order"`
	DisableCrossover           bool        `yaml:"disable_crossover"`
	CrossoverRate              float64     `yaml:"crossover_rate"`
	DisableMutation            bool        `yaml:"disable_mutation"`
	MutationRate               int         `yaml:"mutation_rate"`
	Elitism                    bool        `yaml:"elitism"`
	KeepPopulationSizeConstant bool        `yaml:"keep_population_size_constant"`
	DisableHomogeneityCheck    bool        `yaml:"disable_homogeneity_check"`
	Seed                       int64       `yaml:"seed"`
	Initial                    [][]float64 `yaml:"initial"`

	Observer evo.Observer `yaml:"-"`
}

// DefaultRunRequest returns the standard part1 run: 16 genes in [5, 7], 50
// chromosomes over 50 generations, rank selection keeping 90% before
// crossover (0.8) and mutation (1/20).
func DefaultRunRequest() RunRequest {
	cfg := evo.DefaultConfig()
	return RunRequest{
		Objective:      "part1",
		ChromosomeSize: cfg.ChromosomeSize,
		LowerBound:     cfg.Bounds.Lower,
		UpperBound:     cfg.Bounds.Upper,
		Population:     cfg.PopulationSize,
		Generations:    cfg.Generations,
		Selection:      cfg.Selection.Kind.String(),
		SelectionRate:  cfg.Selection.Rate,
		StepOrder:      cfg.Order.String(),
		CrossoverRate:  cfg.Crossover.Rate,
		MutationRate:   cfg.Mutation.Rate,
		Seed:           1,
	}
}

type RunSummary struct {
	RunID         string
	Objective     string
	StopReason    string
	Generations   int
	Evaluations   int
	TargetFitness float64
	Best          model.Chromosome
	BestHistory   []float64
	Duration      time.Duration
}

type RunsRequest struct {
	Limit     int
	Objective string
}

type RunItem struct {
	RunID            string
	CreatedAtUTC     string
	Objective        string
	Seed             int64
	Population       int
	Generations      int
	GenerationsRun   int
	StopReason       string
	Evaluations      int
	FinalBestFitness float64
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type FunctionsRequest struct {
	ChromosomeSize int
	LowerBound     float64
	UpperBound     float64
}

type FunctionInfo struct {
	Name          string
	MinimalValue  float64
	TargetFitness float64
}

type BenchmarkRequest struct {
	Run  RunRequest
	Runs int
	// ReportDir, when set, receives a JSON report of the benchmark.
	ReportDir string
}

type BenchmarkSummary struct {
	Objective  string
	Stats      stats.BenchmarkStats
	ReportPath string
	Duration   time.Duration
}

func New(opts Options) (*Client, error) {
	if opts.RetainRuns < 0 {
		return nil, errors.New("retain runs must be >= 0")
	}
	store, err := storage.NewStore(opts.StoreKind)
	if err != nil {
		return nil, err
	}
	if err := store.Init(context.Background()); err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	client := &Client{
		store:  store,
		logger: logger,
		retain: opts.RetainRuns,
		now:    time.Now,
	}
	if opts.Registerer != nil {
		collector, err := metrics.NewCollector(opts.Registerer)
		if err != nil {
			return nil, err
		}
		client.metrics = collector
	}
	return client, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Functions describes every objective a RunRequest may name, with its
// minimal value and target fitness for the requested chromosome size and
// bounds.
func (c *Client) Functions(req FunctionsRequest) ([]FunctionInfo, error) {
	if req.ChromosomeSize <= 0 {
		return nil, fmt.Errorf("%w: chromosome size must be > 0, got %d", evo.ErrInvalidConfig, req.ChromosomeSize)
	}
	names := objective.List()
	out := make([]FunctionInfo, 0, len(names))
	for _, name := range names {
		fn, err := objective.Resolve(name, req.LowerBound, req.UpperBound)
		if err != nil {
			return nil, err
		}
		out = append(out, FunctionInfo{
			Name:          name,
			MinimalValue:  fn.MinimalValue(),
			TargetFitness: fn.MaximalFitness(req.ChromosomeSize),
		})
	}
	return out, nil
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	cfg, err := configFromRequest(req)
	if err != nil {
		return RunSummary{}, err
	}
	fn, err := objective.Resolve(req.Objective, cfg.Bounds.Lower, cfg.Bounds.Upper)
	if err != nil {
		return RunSummary{}, err
	}

	runID := uuid.NewString()
	logger := c.logger.With("run_id", runID, "objective", req.Objective)
	recorder := &runRecorder{}
	observers := []evo.Observer{recorder, req.Observer}
	if c.metrics != nil {
		observers = append(observers, c.metrics)
	}
	cfg.Logger = logger
	cfg.Observer = evo.Observers(observers...)

	started := c.now()
	result, err := evo.Run(ctx, fn, cfg)
	if err != nil {
		logger.Error("run failed", "error", err)
		return RunSummary{}, fmt.Errorf("run %s: %w", runID, err)
	}
	elapsed := c.now().Sub(started)

	record := model.RunRecord{
		RunID:          runID,
		CreatedAtUTC:   started.UTC().Format(time.RFC3339Nano),
		Objective:      req.Objective,
		Seed:           cfg.Seed,
		PopulationSize: cfg.PopulationSize,
		Generations:    cfg.Generations,
		GenerationsRun: result.Generations,
		StopReason:     result.StopReason.String(),
		Evaluations:    result.Evaluations,
		Best:           result.Best.Clone(),
		BestHistory:    append([]float64(nil), result.BestHistory...),
	}
	if err := c.store.SaveRun(ctx, record); err != nil {
		return RunSummary{}, fmt.Errorf("save run %s: %w", runID, err)
	}
	if err := c.store.SaveGenerationDiagnostics(ctx, runID, recorder.diagnostics); err != nil {
		return RunSummary{}, fmt.Errorf("save diagnostics %s: %w", runID, err)
	}
	if err := c.pruneRuns(ctx); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:         runID,
		Objective:     req.Objective,
		StopReason:    record.StopReason,
		Generations:   result.Generations,
		Evaluations:   result.Evaluations,
		TargetFitness: fn.MaximalFitness(cfg.ChromosomeSize),
		Best:          record.Best,
		BestHistory:   append([]float64(nil), result.BestHistory...),
		Duration:      elapsed,
	}, nil
}

// Runs lists stored runs, most recent first.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	records, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]RunItem, 0, len(records))
	for i := len(records) - 1; i >= 0 && len(out) < req.Limit; i-- {
		r := records[i]
		if req.Objective != "" && r.Objective != req.Objective {
			continue
		}
		out = append(out, RunItem{
			RunID:            r.RunID,
			CreatedAtUTC:     r.CreatedAtUTC,
			Objective:        r.Objective,
			Seed:             r.Seed,
			Population:       r.PopulationSize,
			Generations:      r.Generations,
			GenerationsRun:   r.GenerationsRun,
			StopReason:       r.StopReason,
			Evaluations:      r.Evaluations,
			FinalBestFitness: r.Best.Fitness,
		})
	}
	return out, nil
}

// Record returns the stored record of a finished run.
func (c *Client) Record(ctx context.Context, runID string) (model.RunRecord, error) {
	record, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return record, nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.GenerationDiagnostics, error) {
	if req.RunID != "" && req.Latest {
		return nil, errors.New("use either run id or latest")
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}

	runID := req.RunID
	if req.Latest {
		runs, err := c.Runs(ctx, RunsRequest{Limit: 1})
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, fmt.Errorf("%w: no runs available", ErrRunNotFound)
		}
		runID = runs[0].RunID
	}
	if runID == "" {
		return nil, errors.New("diagnostics requires run id or latest")
	}

	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	return diagnostics, nil
}

// Benchmark repeats a run over consecutive seeds starting at req.Run.Seed and
// summarizes the outcomes. A run succeeds when it reaches the target fitness.
func (c *Client) Benchmark(ctx context.Context, req BenchmarkRequest) (BenchmarkSummary, error) {
	if req.Runs <= 0 {
		return BenchmarkSummary{}, errors.New("benchmark runs must be > 0")
	}
	started := c.now()
	runs := make([]stats.BenchmarkRun, 0, req.Runs)
	for i := 0; i < req.Runs; i++ {
		runReq := req.Run
		runReq.Seed = req.Run.Seed + int64(i)
		summary, err := c.Run(ctx, runReq)
		if err != nil {
			return BenchmarkSummary{}, fmt.Errorf("benchmark run %d: %w", i+1, err)
		}
		runs = append(runs, stats.BenchmarkRun{
			RunID:       summary.RunID,
			Seed:        runReq.Seed,
			StopReason:  summary.StopReason,
			Success:     summary.StopReason == evo.StopTargetReached.String(),
			Generations: summary.Generations,
			Evaluations: summary.Evaluations,
			BestFitness: summary.Best.Fitness,
		})
	}

	out := BenchmarkSummary{
		Objective: req.Run.Objective,
		Stats:     stats.BuildBenchmarkStats(runs),
		Duration:  c.now().Sub(started),
	}
	if req.ReportDir != "" {
		path, err := stats.WriteBenchmarkReport(req.ReportDir, stats.BenchmarkReport{
			Name:        req.Run.Objective,
			Objective:   req.Run.Objective,
			GeneratedAt: c.now().UTC().Format(time.RFC3339Nano),
			Stats:       out.Stats,
		})
		if err != nil {
			return BenchmarkSummary{}, err
		}
		out.ReportPath = path
	}
	c.logger.Info("benchmark finished",
		"objective", out.Objective,
		"runs", out.Stats.TotalRuns,
		"success_rate", out.Stats.SuccessRate,
	)
	return out, nil
}

// pruneRuns drops the oldest runs beyond the retention limit.
func (c *Client) pruneRuns(ctx context.Context) error {
	if c.retain == 0 {
		return nil
	}
	records, err := c.store.ListRuns(ctx)
	if err != nil {
		return err
	}
	for i := 0; i < len(records)-c.retain; i++ {
		if err := c.store.DeleteRun(ctx, records[i].RunID); err != nil {
			return fmt.Errorf("prune run %s: %w", records[i].RunID, err)
		}
		c.logger.Debug("run pruned", "run_id", records[i].RunID)
	}
	return nil
}

// configFromRequest maps a request onto the engine config field by field.
// Nothing is defaulted here; evo.Config.Validate rejects what is invalid.
func configFromRequest(req RunRequest) (evo.Config, error) {
	kind, err := evo.ParseSelectionKind(req.Selection)
	if err != nil {
		return evo.Config{}, err
	}
	order, err := evo.ParseStepOrder(req.StepOrder)
	if err != nil {
		return evo.Config{}, err
	}
	cfg := evo.Config{
		ChromosomeSize: req.ChromosomeSize,
		Bounds:         model.Bounds{Lower: req.LowerBound, Upper: req.UpperBound},
		PopulationSize: req.Population,
		Generations:    req.Generations,
		Selection:      evo.SelectionConfig{Kind: kind, Rate: req.SelectionRate},
		Order:          order,
		Crossover:      evo.CrossoverConfig{Enabled: !req.DisableCrossover, Rate: req.CrossoverRate},
		Mutation:       evo.MutationConfig{Enabled: !req.DisableMutation, Rate: req.MutationRate},
	}
	cfg.Elitism = req.Elitism
	cfg.KeepPopulationSizeConstant = req.KeepPopulationSizeConstant
	cfg.CheckHomogeneity = !req.DisableHomogeneityCheck
	cfg.Seed = req.Seed

	for _, genes := range req.Initial {
		cfg.Initial = append(cfg.Initial, model.NewChromosome(genes))
	}
	if err := cfg.Validate(); err != nil {
		return evo.Config{}, err
	}
	return cfg, nil
}

// runRecorder keeps the per-generation diagnostics of one run.
type runRecorder struct {
	diagnostics []model.GenerationDiagnostics
}

func (r *runRecorder) OnGeneration(report evo.GenerationReport) {
	r.diagnostics = append(r.diagnostics, report.Diagnostics)
}

func (r *runRecorder) OnStop(evo.Result) {}
