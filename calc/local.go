package calc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/itqwq/stockviz/feed"
	"github.com/itqwq/stockviz/model"
	"github.com/itqwq/stockviz/service"
	"github.com/itqwq/stockviz/tools/log"
	"github.com/itqwq/stockviz/tools/metrics"
	"github.com/itqwq/stockviz/wordgraph"
)

const (
	DefaultBenchmark    = "SPY"
	DefaultRiskFreeRate = 0.02
)

// Local computes reports from the daily candles of a feeder and a set of scored tweets.
type Local struct {
	feed           service.Feeder
	tweets         []model.Tweet
	settings       model.Settings
	analyzeOptions []wordgraph.Option
	validator      *Validator
	concurrency    int
}

// LocalOption customizes a Local calculator.
type LocalOption func(*Local)

// WithUniverse sets the tickers used for ranks and correlations. The feeder tickers are used
// when empty.
func WithUniverse(tickers ...string) LocalOption {
	return func(l *Local) {
		l.settings.Tickers = tickers
	}
}

// WithBenchmark sets the market ticker used for beta and correlation.
func WithBenchmark(ticker string) LocalOption {
	return func(l *Local) {
		l.settings.Benchmark = ticker
	}
}

// WithRiskFreeRate sets the annual risk free rate.
func WithRiskFreeRate(rate float64) LocalOption {
	return func(l *Local) {
		l.settings.RiskFreeRate = rate
	}
}

// WithSettings takes the ticker universe and benchmark from settings.
func WithSettings(settings model.Settings) LocalOption {
	return func(l *Local) {
		if len(settings.Tickers) > 0 {
			l.settings.Tickers = settings.Tickers
		}
		if settings.Benchmark != "" {
			l.settings.Benchmark = settings.Benchmark
		}
		if settings.RiskFreeRate != 0 {
			l.settings.RiskFreeRate = settings.RiskFreeRate
		}
	}
}

// WithAnalyzeOptions customizes the keyword analysis of tweets.
func WithAnalyzeOptions(options ...wordgraph.Option) LocalOption {
	return func(l *Local) {
		l.analyzeOptions = options
	}
}

// WithConcurrency bounds how many tickers are evaluated at once.
func WithConcurrency(n int) LocalOption {
	return func(l *Local) {
		l.concurrency = n
	}
}

// NewLocal computes reports from the candles of feeder and the given tweets.
func NewLocal(feeder service.Feeder, tweets []model.Tweet, options ...LocalOption) *Local {
	local := &Local{
		feed:   feeder,
		tweets: tweets,
		settings: model.Settings{
			Benchmark:    DefaultBenchmark,
			RiskFreeRate: DefaultRiskFreeRate,
		},
		validator:   NewValidator(),
		concurrency: 8,
	}
	for _, option := range options {
		option(local)
	}
	return local
}

func (l *Local) universe() []string {
	if len(l.settings.Tickers) > 0 {
		return l.settings.Tickers
	}
	return l.feed.Tickers()
}

func (l *Local) closes(ctx context.Context, ticker string, window model.Window) ([]float64, error) {
	candles, err := l.feed.CandlesByPeriod(ctx, ticker, window.Start, window.End)
	if errors.Is(err, feed.ErrUnknownTicker) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTicker, ticker)
	}
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrNoData, ticker, window)
	}
	return lo.Map(candles, func(c model.Candle, _ int) float64 { return c.Close }), nil
}

// Calculate builds the performance, correlation and sentiment report of the requested ticker.
func (l *Local) Calculate(ctx context.Context, request model.Request) (model.Report, error) {
	if err := l.validator.Validate(request); err != nil {
		return model.Report{}, err
	}
	window, _ := request.Window()
	ticker := request.StockTicker

	stockCloses, err := l.closes(ctx, ticker, window)
	if err != nil {
		return model.Report{}, err
	}
	marketCloses, err := l.closes(ctx, l.settings.Benchmark, window)
	if err != nil {
		return model.Report{}, fmt.Errorf("benchmark: %w", err)
	}

	performance, err := metrics.Performance(stockCloses, marketCloses, l.settings.RiskFreeRate)
	if err != nil {
		return model.Report{}, err
	}
	stockReturns, err := metrics.Returns(stockCloses)
	if err != nil {
		return model.Report{}, err
	}

	var mu sync.Mutex
	all := map[string]model.Metrics{ticker: performance}
	returns := map[string][]float64{ticker: stockReturns}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(l.concurrency)
	for _, other := range l.universe() {
		if other == ticker {
			continue
		}
		group.Go(func() error {
			closes, err := l.closes(groupCtx, other, window)
			if err != nil {
				log.WithField("ticker", other).WithError(err).Debug("calc: ticker skipped")
				return nil
			}
			result, err := metrics.Performance(closes, marketCloses, l.settings.RiskFreeRate)
			if err != nil {
				log.WithField("ticker", other).WithError(err).Debug("calc: ticker skipped")
				return nil
			}
			daily, err := metrics.Returns(closes)
			if err != nil {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			all[other] = result
			returns[other] = daily
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return model.Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.Report{}, err
	}

	metric := func(get func(model.Metrics) float64) map[string]float64 {
		return lo.MapValues(all, func(m model.Metrics, _ string) float64 { return get(m) })
	}
	alphas := metric(func(m model.Metrics) float64 { return m.Alpha })
	betas := metric(func(m model.Metrics) float64 { return m.Beta })
	sharpes := metric(func(m model.Metrics) float64 { return m.SharpeRatio })
	treynors := metric(func(m model.Metrics) float64 { return m.TreynorRatio })

	market := all[l.settings.Benchmark]

	report := model.Report{
		Performance: model.Performance{
			Alpha:              performance.Alpha,
			AlphaRank:          metrics.Rank(alphas, ticker),
			MarketAlpha:        0,
			Beta:               performance.Beta,
			BetaRank:           metrics.Rank(betas, ticker),
			MarketBeta:         1,
			SharpeRatio:        performance.SharpeRatio,
			SharpeRatioRank:    metrics.Rank(sharpes, ticker),
			MarketSharpeRatio:  market.SharpeRatio,
			TreynorRatio:       performance.TreynorRatio,
			TreynorRatioRank:   metrics.Rank(treynors, ticker),
			MarketTreynorRatio: market.TreynorRatio,
		},
		Correlation: metrics.Correlation(ticker, returns),
		Sentiment:   wordgraph.Analyze(wordgraph.Filter(l.tweets, ticker, window), l.analyzeOptions...).Sentiment,
	}

	log.WithFields(log.Fields{
		"ticker": ticker,
		"window": window.String(),
		"peers":  len(all) - 1,
	}).Debug("calc: report computed")

	return report, nil
}
