package stockviz

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/itqwq/stockviz/feed"
	"github.com/itqwq/stockviz/model"
	"github.com/itqwq/stockviz/service"
	"github.com/itqwq/stockviz/tools/log"
)

// MinGap is the smallest distance, in percent, between the two slider handles.
const MinGap = 5.0

var (
	ErrNoTicker      = errors.New("no ticker selected")
	ErrInvalidSlider = errors.New("invalid slider position")
)

func init() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04",
	})
}

// Session is the state of one dashboard view: the selected ticker, the slider handles and the
// data already loaded for it. It replaces the page globals of a browser dashboard and is safe
// for concurrent use.
type Session struct {
	mu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc

	settings   model.Settings
	feeder     service.Feeder
	calculator service.Calculator

	display      model.Window
	ticker       string
	startPercent float64
	endPercent   float64

	weekly map[string][]model.Candle
	report *model.Report
}

// Option customizes a Session.
type Option func(*Session)

// WithDisplayWindow bounds the data the slider moves over.
func WithDisplayWindow(window model.Window) Option {
	return func(s *Session) {
		s.display = window
	}
}

// WithTicker selects the first ticker shown instead of the first of the universe.
func WithTicker(ticker string) Option {
	return func(s *Session) {
		s.ticker = ticker
	}
}

// WithLogLevel sets the level of the package logger.
func WithLogLevel(level log.Level) Option {
	return func(_ *Session) {
		log.SetLevel(level)
	}
}

// NewSession starts a session over the settings universe. The session ends when ctx is done
// or Close is called.
func NewSession(ctx context.Context, settings model.Settings, feeder service.Feeder,
	calculator service.Calculator, options ...Option) (*Session, error) {

	ctx, cancel := context.WithCancel(ctx)
	session := &Session{
		ctx:        ctx,
		cancel:     cancel,
		settings:   settings,
		feeder:     feeder,
		calculator: calculator,
		endPercent: 100,
		weekly:     make(map[string][]model.Candle),
	}

	for _, option := range options {
		option(session)
	}

	if session.ticker == "" {
		tickers := settings.Tickers
		if len(tickers) == 0 {
			tickers = feeder.Tickers()
		}
		if len(tickers) == 0 {
			cancel()
			return nil, ErrNoTicker
		}
		session.ticker = tickers[0]
	}

	if session.display.Start.IsZero() {
		session.display = model.Window{End: time.Now().UTC()}
	}

	return session, nil
}

// Ticker returns the selected ticker.
func (s *Session) Ticker() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticker
}

// SelectTicker switches the view to another ticker. The slider keeps its position; the last
// report is dropped.
func (s *Session) SelectTicker(ticker string) error {
	if ticker == "" {
		return ErrNoTicker
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticker != s.ticker {
		s.ticker = ticker
		s.report = nil
	}
	return nil
}

// Slider returns the handle positions in percent.
func (s *Session) Slider() (start, end float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startPercent, s.endPercent
}

// SetWindow places both slider handles. Positions are percentages in [0, 100] at least MinGap
// apart.
func (s *Session) SetWindow(start, end float64) error {
	if start < 0 || end > 100 || math.IsNaN(start) || math.IsNaN(end) {
		return fmt.Errorf("%w: %g..%g out of [0, 100]", ErrInvalidSlider, start, end)
	}
	if end-start < MinGap {
		return fmt.Errorf("%w: handles %g and %g closer than %g", ErrInvalidSlider, start, end, MinGap)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.startPercent, s.endPercent = start, end
	return nil
}

// MoveStart drags the start handle, stopping MinGap before the end handle.
func (s *Session) MoveStart(percent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startPercent = math.Max(0, math.Min(s.endPercent-MinGap, clampPercent(percent)))
}

// MoveEnd drags the end handle, stopping MinGap after the start handle.
func (s *Session) MoveEnd(percent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endPercent = math.Min(100, math.Max(s.startPercent+MinGap, clampPercent(percent)))
}

func clampPercent(percent float64) float64 {
	if math.IsNaN(percent) {
		return 0
	}
	return math.Min(100, math.Max(0, percent))
}

// sliderIndex maps a handle position to a bar index.
func sliderIndex(percent float64, size int) int {
	if size <= 1 {
		return 0
	}
	return int(math.Floor(percent / 100 * float64(size-1)))
}

// weeklyBars returns the weekly bars of the display window for ticker, loading them once.
func (s *Session) weeklyBars(ctx context.Context, ticker string) ([]model.Candle, error) {
	s.mu.Lock()
	bars, ok := s.weekly[ticker]
	s.mu.Unlock()
	if ok {
		return bars, nil
	}

	daily, err := s.feeder.CandlesByPeriod(ctx, ticker, s.display.Start, s.display.End)
	if err != nil {
		return nil, err
	}
	bars = feed.Weekly(daily)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s has no candles in %s", feed.ErrInsufficientData, ticker, s.display)
	}

	s.mu.Lock()
	s.weekly[ticker] = bars
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"ticker": ticker,
		"weeks":  len(bars),
	}).Debug("weekly data loaded")
	return bars, nil
}

// Window returns the dates under the slider handles for the selected ticker.
func (s *Session) Window(ctx context.Context) (model.Window, error) {
	bars, err := s.weeklyBars(ctx, s.Ticker())
	if err != nil {
		return model.Window{}, err
	}
	start, end := s.Slider()
	return s.windowOf(bars, sliderIndex(start, len(bars)), sliderIndex(end, len(bars))), nil
}

// windowOf spans from the first day of the start bar to the last day of the end bar. Bars
// are stamped with the Sunday that opens their week, so the end runs six days past it,
// bounded by the display window.
func (s *Session) windowOf(bars []model.Candle, startIndex, endIndex int) model.Window {
	end := bars[endIndex].Time.AddDate(0, 0, 7).Add(-time.Nanosecond)
	if !s.display.End.IsZero() && end.After(s.display.End) {
		end = s.display.End
	}
	return model.Window{Start: bars[startIndex].Time, End: end}
}

// Result holds what each chart of the view needs. A failing chart carries its own error and
// does not prevent the others from drawing.
type Result struct {
	Ticker string
	Window model.Window

	// Weekly holds every bar of the display window, Selected the bars under the slider.
	Weekly       []model.Candle
	Selected     []model.Candle
	CandlesErr   error
	Benchmark    []model.Candle
	BenchmarkErr error
	Report       model.Report
	ReportErr    error
}

// Failed reports whether no chart of the view can be drawn.
func (r Result) Failed() bool {
	return r.CandlesErr != nil && r.ReportErr != nil
}

// Refresh loads the view of the selected ticker: its weekly bars first, since the slider dates
// come from them, then the report and the benchmark bars concurrently.
func (s *Session) Refresh(ctx context.Context) Result {
	ctx, cancel := mergeContext(ctx, s.ctx)
	defer cancel()

	ticker := s.Ticker()
	result := Result{Ticker: ticker}

	bars, err := s.weeklyBars(ctx, ticker)
	if err != nil {
		result.CandlesErr = err
		result.ReportErr = fmt.Errorf("no window for %s: %w", ticker, err)
		log.WithField("ticker", ticker).WithError(err).Warn("candles unavailable")
		return result
	}

	start, end := s.Slider()
	startIndex, endIndex := sliderIndex(start, len(bars)), sliderIndex(end, len(bars))
	result.Weekly = bars
	result.Selected = bars[startIndex : endIndex+1]
	result.Window = s.windowOf(bars, startIndex, endIndex)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		result.Report, result.ReportErr = s.calculate(ctx, ticker, result.Window)
	}()
	go func() {
		defer wg.Done()
		result.Benchmark, result.BenchmarkErr = s.benchmark(ctx, result.Window)
	}()
	wg.Wait()

	if result.ReportErr != nil {
		log.WithFields(log.Fields{
			"ticker": ticker,
			"window": result.Window.String(),
		}).WithError(result.ReportErr).Warn("report unavailable")
	} else {
		report := result.Report
		s.mu.Lock()
		if s.ticker == ticker {
			s.report = &report
		}
		s.mu.Unlock()
	}

	return result
}

func (s *Session) calculate(ctx context.Context, ticker string, window model.Window) (model.Report, error) {
	if s.calculator == nil {
		return model.Report{}, errors.New("no calculator configured")
	}
	return s.calculator.Calculate(ctx, model.Request{
		StockTicker: ticker,
		StartDate:   window.Start.Format(model.DateLayout),
		EndDate:     window.End.Format(model.DateLayout),
	})
}

func (s *Session) benchmark(ctx context.Context, window model.Window) ([]model.Candle, error) {
	if s.settings.Benchmark == "" {
		return nil, nil
	}
	bars, err := s.weeklyBars(ctx, s.settings.Benchmark)
	if err != nil {
		return nil, err
	}
	selected := make([]model.Candle, 0)
	for _, bar := range bars {
		if window.Contains(bar.Time) {
			selected = append(selected, bar)
		}
	}
	return selected, nil
}

// Report returns the last report loaded for the selected ticker.
func (s *Session) Report() (model.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.report == nil {
		return model.Report{}, false
	}
	return *s.report, true
}

// Close ends the session. Pending refreshes are cancelled.
func (s *Session) Close() {
	s.cancel()
}

// mergeContext is done when either parent is done.
func mergeContext(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
