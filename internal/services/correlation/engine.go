package correlation

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"hermes/internal/domain/correlation"
	"hermes/internal/domain/price"
	"hermes/pkg/logger"
)

// materialDelta is the magnitude change that separates a real trend shift
// from sampling noise when comparing the short and long windows
const materialDelta = 0.15

// Engine computes rolling correlations of traded symbols against the
// reference benchmark.
type Engine struct {
	priceRepo    price.Repository
	benchmark    string
	short        correlation.Window
	long         correlation.Window
	benchMaxAge  time.Duration
	lookbackDays int
	log          *logger.Logger
}

// NewEngine creates a new correlation engine
func NewEngine(
	priceRepo price.Repository,
	benchmark string,
	short, long correlation.Window,
	benchMaxAge time.Duration,
	lookbackDays int,
) *Engine {
	return &Engine{
		priceRepo:    priceRepo,
		benchmark:    benchmark,
		short:        short,
		long:         long,
		benchMaxAge:  benchMaxAge,
		lookbackDays: lookbackDays,
		log:          logger.Get().With("component", "correlation_engine"),
	}
}

// PrepareBenchmark fetches the benchmark series once per run. A non-empty
// reason means every symbol must degrade to null results instead of
// silently correlating against missing or stale data.
func (e *Engine) PrepareBenchmark(ctx context.Context, now time.Time) (price.Series, string) {
	since := now.AddDate(0, 0, -e.lookbackDays)

	bench, err := e.priceRepo.GetPrices(ctx, e.benchmark, since)
	switch {
	case err != nil:
		e.log.Error("Failed to fetch benchmark prices", "benchmark", e.benchmark, "error", err)
		return bench, "benchmark unavailable"
	case bench.Len() == 0:
		return bench, "no benchmark data"
	case now.Sub(bench.LastDate()) > e.benchMaxAge:
		return bench, "benchmark stale"
	}
	return bench, ""
}

// ComputeAll computes both windows for every symbol. Missing or stale data
// degrades to null-valued results with the reason recorded; it never errors
// out of the batch.
func (e *Engine) ComputeAll(ctx context.Context, symbols []string) []correlation.Result {
	now := time.Now()
	bench, benchReason := e.PrepareBenchmark(ctx, now)

	results := make([]correlation.Result, 0, len(symbols)*2)
	for _, symbol := range symbols {
		results = append(results, e.ComputeSymbol(ctx, symbol, bench, benchReason, now)...)
	}
	return results
}

// ComputeSymbol computes short and long window results for one symbol
func (e *Engine) ComputeSymbol(ctx context.Context, symbol string, bench price.Series, benchReason string, now time.Time) []correlation.Result {
	if benchReason != "" {
		return []correlation.Result{
			e.nullResult(symbol, e.short, 0, benchReason, now),
			e.nullResult(symbol, e.long, 0, benchReason, now),
		}
	}

	since := now.AddDate(0, 0, -e.lookbackDays)
	series, err := e.priceRepo.GetPrices(ctx, symbol, since)
	if err != nil {
		e.log.Error("Failed to fetch prices", "symbol", symbol, "error", err)
		return []correlation.Result{
			e.nullResult(symbol, e.short, 0, "prices unavailable", now),
			e.nullResult(symbol, e.long, 0, "prices unavailable", now),
		}
	}
	if series.Len() == 0 {
		return []correlation.Result{
			e.nullResult(symbol, e.short, 0, "no price data", now),
			e.nullResult(symbol, e.long, 0, "no price data", now),
		}
	}

	symbolReturns, benchReturns := alignReturns(series, bench)

	shortRes := e.windowResult(symbol, e.short, symbolReturns, benchReturns, now)
	longRes := e.windowResult(symbol, e.long, symbolReturns, benchReturns, now)

	// The trend is a property of the short-vs-long comparison, stamped on
	// both rows so either one carries the consumable signal.
	trend := classifyTrend(shortRes.Value, longRes.Value)
	shortRes.Trend = trend
	longRes.Trend = trend

	return []correlation.Result{shortRes, longRes}
}

// windowResult computes one window, degrading to null below the minimum
// observation count
func (e *Engine) windowResult(symbol string, w correlation.Window, symbolReturns, benchReturns []float64, now time.Time) correlation.Result {
	n := len(symbolReturns)
	if n > w.TradingDays {
		symbolReturns = symbolReturns[n-w.TradingDays:]
		benchReturns = benchReturns[n-w.TradingDays:]
		n = w.TradingDays
	}

	if n < w.MinObs {
		return e.nullResult(symbol, w, n, "insufficient aligned observations", now)
	}

	value := pearson(symbolReturns, benchReturns)
	return correlation.Result{
		ID:            uuid.New(),
		Symbol:        symbol,
		Benchmark:     e.benchmark,
		Window:        w.Name,
		Value:         &value,
		NObservations: n,
		AsOfDate:      now,
		Trend:         correlation.TrendInconclusive,
		ComputedAt:    now,
	}
}

func (e *Engine) nullResult(symbol string, w correlation.Window, n int, reason string, now time.Time) correlation.Result {
	return correlation.Result{
		ID:            uuid.New(),
		Symbol:        symbol,
		Benchmark:     e.benchmark,
		Window:        w.Name,
		Value:         nil,
		NObservations: n,
		AsOfDate:      now,
		Trend:         correlation.TrendInconclusive,
		Reason:        reason,
		ComputedAt:    now,
	}
}

// alignReturns intersects two daily return series by date, ascending
func alignReturns(a, b price.Series) ([]float64, []float64) {
	aReturns := a.Returns()
	bReturns := b.Returns()

	dates := make([]string, 0, len(aReturns))
	for date := range aReturns {
		if _, ok := bReturns[date]; ok {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)

	alignedA := make([]float64, 0, len(dates))
	alignedB := make([]float64, 0, len(dates))
	for _, date := range dates {
		alignedA = append(alignedA, aReturns[date])
		alignedB = append(alignedB, bReturns[date])
	}
	return alignedA, alignedB
}

// pearson computes the Pearson correlation coefficient of two equal-length
// return series
func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	if n < 2 {
		return 0
	}

	var xMean, yMean float64
	for i := range xs {
		xMean += xs[i]
		yMean += ys[i]
	}
	xMean /= n
	yMean /= n

	var covariance, xVariance, yVariance float64
	for i := range xs {
		xDiff := xs[i] - xMean
		yDiff := ys[i] - yMean
		covariance += xDiff * yDiff
		xVariance += xDiff * xDiff
		yVariance += yDiff * yDiff
	}

	xStdDev := math.Sqrt(xVariance / n)
	yStdDev := math.Sqrt(yVariance / n)
	if xStdDev == 0 || yStdDev == 0 {
		return 0
	}

	return (covariance / n) / (xStdDev * yStdDev)
}

// classifyTrend compares the short window against the long window baseline
func classifyTrend(short, long *float64) correlation.TrendType {
	if short == nil || long == nil {
		return correlation.TrendInconclusive
	}

	// A sign flip is always a weakening relationship, whatever the magnitudes
	if *short**long < 0 {
		return correlation.TrendWeakening
	}

	delta := math.Abs(*short) - math.Abs(*long)
	switch {
	case delta > materialDelta:
		return correlation.TrendStrengthening
	case delta < -materialDelta:
		return correlation.TrendWeakening
	default:
		return correlation.TrendStable
	}
}
