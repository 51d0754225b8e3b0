package pipeline

import (
	"context"
	"sync"
	"time"

	"hermes/internal/adapters/kafka"
	"hermes/internal/domain/bias"
	"hermes/internal/domain/correlation"
	"hermes/internal/domain/diagnosis"
	"hermes/internal/domain/event"
	"hermes/internal/domain/quality"
	"hermes/internal/metrics"
	biassvc "hermes/internal/services/bias"
	corrsvc "hermes/internal/services/correlation"
	diagsvc "hermes/internal/services/diagnosis"
	qualitysvc "hermes/internal/services/quality"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

const (
	runLockKey       = "pipeline_run"
	snapshotCacheKey = "snapshot:latest"
	snapshotCacheTTL = 2 * time.Hour
)

// Locker is the run-level mutual exclusion: acquire-or-no-op, never a queue
type Locker interface {
	TryAcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// SnapshotCache stores the latest combined snapshot for external readers
type SnapshotCache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Runner orchestrates one batch pass: diagnosis, then per-symbol
// correlation and bias under bounded concurrency, then quality checks.
type Runner struct {
	diagEngine *diagsvc.Engine
	corrEngine *corrsvc.Engine
	biasEngine *biassvc.Engine
	checker    *qualitysvc.Checker

	diagRepo  diagnosis.Repository
	corrRepo  correlation.Repository
	biasRepo  bias.Repository
	eventRepo event.Repository

	locker   Locker
	cache    SnapshotCache
	producer *kafka.Producer

	symbols          []string
	pairs            map[string]biassvc.Pair
	benchmark        string
	maxConcurrency   int
	surpriseValidity time.Duration
	lockTTL          time.Duration

	// In-process fallback when no distributed locker is configured
	localLock sync.Mutex

	log *logger.Logger
}

// Deps bundles the runner's collaborators
type Deps struct {
	DiagEngine *diagsvc.Engine
	CorrEngine *corrsvc.Engine
	BiasEngine *biassvc.Engine
	Checker    *qualitysvc.Checker

	DiagRepo  diagnosis.Repository
	CorrRepo  correlation.Repository
	BiasRepo  bias.Repository
	EventRepo event.Repository

	Locker   Locker
	Cache    SnapshotCache
	Producer *kafka.Producer
}

// Options carries the runner's static configuration
type Options struct {
	Symbols          []string
	Pairs            map[string]biassvc.Pair
	Benchmark        string
	MaxConcurrency   int
	SurpriseValidity time.Duration
	LockTTL          time.Duration
}

// NewRunner creates a new pipeline runner
func NewRunner(deps Deps, opts Options) *Runner {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 4
	}
	return &Runner{
		diagEngine:       deps.DiagEngine,
		corrEngine:       deps.CorrEngine,
		biasEngine:       deps.BiasEngine,
		checker:          deps.Checker,
		diagRepo:         deps.DiagRepo,
		corrRepo:         deps.CorrRepo,
		biasRepo:         deps.BiasRepo,
		eventRepo:        deps.EventRepo,
		locker:           deps.Locker,
		cache:            deps.Cache,
		producer:         deps.Producer,
		symbols:          opts.Symbols,
		pairs:            opts.Pairs,
		benchmark:        opts.Benchmark,
		maxConcurrency:   opts.MaxConcurrency,
		surpriseValidity: opts.SurpriseValidity,
		lockTTL:          opts.LockTTL,
		log:              logger.Get().With("component", "pipeline_runner"),
	}
}

// Report summarizes one completed run
type Report struct {
	SymbolsProcessed int
	SymbolsFailed    int
	Quality          quality.Report
	Duration         time.Duration
}

// Run executes one full pipeline pass. A second overlapping call no-ops
// with ErrRunInProgress. Per-symbol failures are counted, not fatal:
// partial success is the expected outcome on imperfect data.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	acquired, release, err := r.acquireLock(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "acquire run lock")
	}
	if !acquired {
		r.log.Info("Pipeline run already in progress, skipping")
		return nil, errors.ErrRunInProgress
	}
	defer release()

	start := time.Now()
	r.log.Info("Pipeline run starting", "symbols", len(r.symbols))

	// Diagnosis must complete before bias scoring consumes it
	diagStart := time.Now()
	diagOut, err := r.diagEngine.Compute(ctx)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, "diagnosis pass")
	}
	metrics.RecordEngineDuration("diagnosis", time.Since(diagStart))
	if err := r.persistScores(ctx, diagOut.Diagnosis.CurrencyScores); err != nil {
		metrics.PipelineRuns.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, "persist currency scores")
	}

	now := diagOut.Diagnosis.ComputedAt
	bench, benchReason := r.corrEngine.PrepareBenchmark(ctx, now)

	// Per-symbol work shares no mutable state and is bounded to respect
	// collaborator rate limits
	type symbolOutput struct {
		correlations []correlation.Result
		bias         *bias.MacroBias
		err          error
	}
	outputs := make([]symbolOutput, len(r.symbols))

	sem := make(chan struct{}, r.maxConcurrency)
	var wg sync.WaitGroup
	for i, symbol := range r.symbols {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, symbol string) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if rec := recover(); rec != nil {
					outputs[i].err = errors.Newf("panic in symbol %s: %v", symbol, rec)
				}
			}()

			corrStart := time.Now()
			corr := r.corrEngine.ComputeSymbol(ctx, symbol, bench, benchReason, now)
			metrics.RecordEngineDuration("correlation", time.Since(corrStart))

			biasStart := time.Now()
			b, err := r.scoreBias(ctx, symbol, diagOut.Diagnosis.CurrencyScores, corr, now)
			metrics.RecordEngineDuration("bias", time.Since(biasStart))

			outputs[i] = symbolOutput{correlations: corr, bias: b, err: err}
		}(i, symbol)
	}
	wg.Wait()

	report := &Report{}
	var allCorrelations []correlation.Result
	var allBiases []bias.MacroBias
	var renderedRows []quality.RenderedRow

	for i, symbol := range r.symbols {
		out := outputs[i]
		if out.err != nil {
			report.SymbolsFailed++
			metrics.SymbolsFailed.Inc()
			r.log.Error("Symbol computation failed", "symbol", symbol, "error", out.err)
			continue
		}
		report.SymbolsProcessed++
		allCorrelations = append(allCorrelations, out.correlations...)
		allBiases = append(allBiases, *out.bias)
		renderedRows = append(renderedRows, renderRow(*out.bias))
	}

	if err := r.persistResults(ctx, allCorrelations, allBiases); err != nil {
		metrics.PipelineRuns.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, "persist run results")
	}

	snapshot := quality.CombinedSnapshot{
		Diagnosis:     diagOut.Diagnosis,
		Correlations:  allCorrelations,
		Biases:        allBiases,
		RenderedRows:  renderedRows,
		IndicatorAges: indicatorAges(diagOut),
		Benchmark:     r.benchmark,
		SnapshotTime:  now,
	}
	qualityStart := time.Now()
	report.Quality = r.checker.Run(snapshot)
	metrics.RecordEngineDuration("quality", time.Since(qualityStart))
	r.publishQualityFailures(ctx, report.Quality)

	if r.cache != nil {
		if err := r.cache.Set(ctx, snapshotCacheKey, snapshot, snapshotCacheTTL); err != nil {
			r.log.Warn("Failed to cache snapshot", "error", err)
		}
	}

	report.Duration = time.Since(start)
	metrics.PipelineRuns.WithLabelValues("success").Inc()
	metrics.PipelineDuration.Observe(report.Duration.Seconds())
	r.log.Info("Pipeline run complete",
		"processed", report.SymbolsProcessed,
		"failed", report.SymbolsFailed,
		"quality_failures", len(report.Quality.Failed()),
		"duration", report.Duration,
	)
	return report, nil
}

// ComputeBias recomputes one symbol's bias from stored state, outside a
// full run. Used by the targeted post-release path.
func (r *Runner) ComputeBias(ctx context.Context, symbol string) (*bias.MacroBias, error) {
	scores, err := r.diagRepo.GetLatestScores(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load currency scores")
	}
	correlations, err := r.corrRepo.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, errors.Wrapf(err, "load correlations for %s", symbol)
	}
	b, err := r.scoreBias(ctx, symbol, scores, correlations, time.Now())
	if err != nil {
		return nil, err
	}
	if err := r.biasRepo.Upsert(ctx, b); err != nil {
		return nil, errors.Wrapf(err, "persist bias for %s", symbol)
	}
	r.publishBias(ctx, b)
	return b, nil
}

// CurrentState implements surprise.Reruner: the stored state for a
// currency before any rerun.
func (r *Runner) CurrentState(ctx context.Context, currency string) (diagnosis.CurrencyScore, string, error) {
	scores, err := r.diagRepo.GetLatestScores(ctx)
	if err != nil {
		return diagnosis.CurrencyScore{}, "", errors.Wrap(err, "load currency scores")
	}
	return scores[currency], diagsvc.USDBias(scores), nil
}

// RerunForCurrency implements surprise.Reruner: a targeted diagnosis pass
// for one currency followed by bias recomputation for the symbols it touches.
func (r *Runner) RerunForCurrency(ctx context.Context, currency string) (diagnosis.CurrencyScore, string, error) {
	out, err := r.diagEngine.ComputeForCurrency(ctx, currency)
	if err != nil {
		return diagnosis.CurrencyScore{}, "", errors.Wrapf(err, "targeted diagnosis for %s", currency)
	}
	if err := r.persistScores(ctx, out.Diagnosis.CurrencyScores); err != nil {
		return diagnosis.CurrencyScore{}, "", errors.Wrap(err, "persist targeted scores")
	}

	for _, symbol := range r.symbols {
		pair, ok := r.pairs[symbol]
		if !ok || (pair.Base != currency && pair.Quote != currency) {
			continue
		}
		if _, err := r.ComputeBias(ctx, symbol); err != nil {
			// One symbol's failure must not abort the rest of the rerun
			r.log.Error("Post-release bias recompute failed", "symbol", symbol, "error", err)
		}
	}

	scores, err := r.diagRepo.GetLatestScores(ctx)
	if err != nil {
		return diagnosis.CurrencyScore{}, "", errors.Wrap(err, "reload currency scores")
	}
	return scores[currency], diagsvc.USDBias(scores), nil
}

// scoreBias assembles the bias inputs for a symbol and runs the engine
func (r *Runner) scoreBias(
	ctx context.Context,
	symbol string,
	scores map[string]diagnosis.CurrencyScore,
	correlations []correlation.Result,
	now time.Time,
) (*bias.MacroBias, error) {
	pair, ok := r.pairs[symbol]
	if !ok {
		pair = biassvc.Pair{Symbol: symbol}
	}

	cutoff := now.Add(-r.surpriseValidity)
	var releases []event.EconomicRelease
	for _, currency := range []string{pair.Base, pair.Quote} {
		if currency == "" {
			continue
		}
		rs, err := r.eventRepo.GetUnexpiredReleases(ctx, currency, cutoff)
		if err != nil {
			// Missing surprises degrade the driver set, they do not fail the symbol
			r.log.Warn("Failed to load releases", "currency", currency, "error", err)
			continue
		}
		releases = append(releases, rs...)
	}

	in := biassvc.Inputs{
		Scores:       scores,
		Correlations: correlations,
		Releases:     releases,
	}
	return r.biasEngine.Compute(symbol, in, now), nil
}

func (r *Runner) persistScores(ctx context.Context, scores map[string]diagnosis.CurrencyScore) error {
	rows := make([]diagnosis.CurrencyScore, 0, len(scores))
	for _, s := range scores {
		rows = append(rows, s)
	}
	return r.diagRepo.UpsertScores(ctx, rows)
}

func (r *Runner) persistResults(ctx context.Context, correlations []correlation.Result, biases []bias.MacroBias) error {
	if err := r.corrRepo.UpsertResults(ctx, correlations); err != nil {
		return err
	}
	for i := range biases {
		if err := r.biasRepo.Upsert(ctx, &biases[i]); err != nil {
			return err
		}
		r.publishBias(ctx, &biases[i])
	}
	return nil
}

func (r *Runner) publishBias(ctx context.Context, b *bias.MacroBias) {
	if r.producer == nil {
		return
	}
	if err := r.producer.Publish(ctx, kafka.TopicBiasUpdated, b.Symbol, b); err != nil {
		r.log.Warn("Failed to publish bias update", "symbol", b.Symbol, "error", err)
	}
}

func (r *Runner) publishQualityFailures(ctx context.Context, report quality.Report) {
	if r.producer == nil {
		return
	}
	for _, failed := range report.Failed() {
		metrics.QualityResults.WithLabelValues(failed.Name, failed.Level.String()).Inc()
		if err := r.producer.Publish(ctx, kafka.TopicQualityFailed, failed.Name, failed); err != nil {
			r.log.Warn("Failed to publish quality failure", "check", failed.Name, "error", err)
		}
	}
}

// acquireLock takes the run lock, preferring the distributed locker and
// falling back to the in-process mutex. Both are try-acquire: contention
// is a no-op, never a queue.
func (r *Runner) acquireLock(ctx context.Context) (bool, func(), error) {
	if r.locker != nil {
		ok, err := r.locker.TryAcquireLock(ctx, runLockKey, r.lockTTL)
		if err != nil {
			return false, nil, err
		}
		if !ok {
			return false, nil, nil
		}
		return true, func() {
			if err := r.locker.ReleaseLock(context.Background(), runLockKey); err != nil {
				r.log.Warn("Failed to release run lock", "error", err)
			}
		}, nil
	}

	if !r.localLock.TryLock() {
		return false, nil, nil
	}
	return true, r.localLock.Unlock, nil
}

// renderRow is the single code path producing externally rendered rows.
// table_vs_bias exists to catch anything else producing them.
func renderRow(b bias.MacroBias) quality.RenderedRow {
	return quality.RenderedRow{
		Symbol:     b.Symbol,
		Action:     qualitysvc.ActionForDirection(b.Direction),
		Score:      b.Score,
		Confidence: b.Confidence,
		Narrative:  b.Narrative,
	}
}

func indicatorAges(out *diagsvc.Output) []quality.IndicatorAge {
	ages := make([]quality.IndicatorAge, 0, len(out.Snapshots))
	for _, snap := range out.Snapshots {
		if !snap.Usable() {
			continue
		}
		ages = append(ages, quality.IndicatorAge{
			Key:       snap.Definition.Key,
			Currency:  snap.Definition.Currency,
			Frequency: snap.Definition.Frequency.String(),
			AsOf:      snap.AsOf,
		})
	}
	return ages
}
