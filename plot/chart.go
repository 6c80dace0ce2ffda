package plot

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/itqwq/stockviz/bubble"
	"github.com/itqwq/stockviz/calc"
	"github.com/itqwq/stockviz/model"
	"github.com/itqwq/stockviz/service"
	"github.com/itqwq/stockviz/tools/log"
)

var (
	//go:embed assets
	staticFiles embed.FS

	scripts = []string{"chart.js", "bubbles.js"}
)

// Chart serves the dashboard: weekly candles with moving averages, the calculation API and
// live word bubble layouts.
type Chart struct {
	sync.Mutex
	port           int
	debug          bool
	feeder         service.Feeder
	calculator     service.Calculator
	validator      *calc.Validator
	indicators     []Indicator
	window         model.Window
	lookback       time.Duration
	companies      map[string]string
	words          []model.Word
	links          []model.Link
	bubbleOptions  []bubble.Option
	frameInterval  time.Duration
	attachTimeout  time.Duration
	maxSessions    int
	allowedOrigins []string
	sessions       map[string]*layoutSession
	scriptContent  map[string]string
	indexHTML      *template.Template
	bubblesHTML    *template.Template
	metrics        *serverMetrics
	ctx            context.Context
	cancel         context.CancelFunc
}

// Indicator is a line drawn over the weekly candles, computed from the daily dataframe.
type Indicator interface {
	Name() string
	Overlay() bool
	Warmup() int
	Metrics() []IndicatorMetric
	Load(dataframe *model.Dataframe)
}

// IndicatorMetric is one line of an indicator.
type IndicatorMetric struct {
	Name   string
	Color  string
	Style  string
	Values model.Series[float64]
	Time   []time.Time
}

type indicatorMetric struct {
	Name   string      `json:"name"`
	Time   []time.Time `json:"time"`
	Values []float64   `json:"value"`
	Color  string      `json:"color"`
	Style  string      `json:"style"`
}

type plotIndicator struct {
	Name    string            `json:"name"`
	Overlay bool              `json:"overlay"`
	Metrics []indicatorMetric `json:"metrics"`
	Warmup  int               `json:"-"`
}

// Option customizes a Chart.
type Option func(*Chart)

// WithPort sets the listening port.
func WithPort(port int) Option {
	return func(chart *Chart) {
		chart.port = port
	}
}

// WithDebug serves the scripts without minification.
func WithDebug() Option {
	return func(chart *Chart) {
		chart.debug = true
	}
}

// WithCustomIndicators sets the lines drawn over the candles.
func WithCustomIndicators(indicators ...Indicator) Option {
	return func(chart *Chart) {
		chart.indicators = indicators
	}
}

// WithCalculator serves reports from calculator.
func WithCalculator(calculator service.Calculator) Option {
	return func(chart *Chart) {
		chart.calculator = calculator
	}
}

// WithDisplayWindow sets the dates shown when a request does not choose its own.
func WithDisplayWindow(window model.Window) Option {
	return func(chart *Chart) {
		chart.window = window
	}
}

// WithLookback loads extra daily data before the window so indicators start warm.
func WithLookback(lookback time.Duration) Option {
	return func(chart *Chart) {
		chart.lookback = lookback
	}
}

// WithCompanies names the tickers in the search suggestions.
func WithCompanies(companies map[string]string) Option {
	return func(chart *Chart) {
		chart.companies = companies
	}
}

// WithWordGraph sets the dataset of bubble layouts created without a ticker.
func WithWordGraph(words []model.Word, links []model.Link) Option {
	return func(chart *Chart) {
		chart.words = words
		chart.links = links
	}
}

// WithBubbleOptions customizes every layout session.
func WithBubbleOptions(options ...bubble.Option) Option {
	return func(chart *Chart) {
		chart.bubbleOptions = options
	}
}

// WithFrameInterval sets the time between simulation frames.
func WithFrameInterval(interval time.Duration) Option {
	return func(chart *Chart) {
		chart.frameInterval = interval
	}
}

// WithAttachTimeout ends layout sessions that no websocket client joins within timeout.
func WithAttachTimeout(timeout time.Duration) Option {
	return func(chart *Chart) {
		chart.attachTimeout = timeout
	}
}

// WithMaxSessions limits the number of live layout sessions.
func WithMaxSessions(size int) Option {
	return func(chart *Chart) {
		chart.maxSessions = size
	}
}

// WithAllowedOrigins lists the origins accepted by CORS and the websocket.
func WithAllowedOrigins(origins ...string) Option {
	return func(chart *Chart) {
		chart.allowedOrigins = origins
	}
}

// NewChart prepares the templates and scripts of the dashboard.
func NewChart(feeder service.Feeder, options ...Option) (*Chart, error) {
	ctx, cancel := context.WithCancel(context.Background())
	chart := &Chart{
		port:           8080,
		feeder:         feeder,
		validator:      calc.NewValidator(),
		lookback:       90 * 24 * time.Hour,
		companies:      DefaultCompanies,
		frameInterval:  33 * time.Millisecond,
		attachTimeout:  pongWait,
		maxSessions:    64,
		allowedOrigins: []string{"*"},
		sessions:       make(map[string]*layoutSession),
		scriptContent:  make(map[string]string),
		metrics:        newServerMetrics(),
		ctx:            ctx,
		cancel:         cancel,
	}
	for _, option := range options {
		option(chart)
	}

	if chart.window.Start.IsZero() {
		window, err := defaultWindow(feeder)
		if err != nil {
			cancel()
			return nil, err
		}
		chart.window = window
	}

	for _, name := range scripts {
		content, err := staticFiles.ReadFile("assets/" + name)
		if err != nil {
			cancel()
			return nil, err
		}

		transpiled := api.Transform(string(content), api.TransformOptions{
			Loader:            api.LoaderJS,
			Target:            api.ES2015,
			MinifySyntax:      !chart.debug,
			MinifyIdentifiers: !chart.debug,
			MinifyWhitespace:  !chart.debug,
		})
		if len(transpiled.Errors) > 0 {
			cancel()
			return nil, fmt.Errorf("%s failed with: %v", name, transpiled.Errors)
		}
		chart.scriptContent[name] = string(transpiled.Code)
	}

	var err error
	chart.indexHTML, err = template.ParseFS(staticFiles, "assets/chart.html")
	if err != nil {
		cancel()
		return nil, err
	}
	chart.bubblesHTML, err = template.ParseFS(staticFiles, "assets/bubbles.html")
	if err != nil {
		cancel()
		return nil, err
	}

	return chart, nil
}

// defaultWindow spans the data of the first ticker when no window is configured.
func defaultWindow(feeder service.Feeder) (model.Window, error) {
	tickers := feeder.Tickers()
	if len(tickers) == 0 {
		return model.Window{}, errors.New("plot: no tickers and no display window")
	}
	candles, err := feeder.CandlesByLimit(context.Background(), tickers[0], 1)
	if err != nil || len(candles) == 0 {
		return model.Window{}, fmt.Errorf("plot: no data to derive a display window: %v", err)
	}
	end := candles[0].Time
	return model.Window{Start: end.AddDate(-1, 0, 0), End: end}, nil
}

// Start serves until ctx is done, then shuts the server down and ends every layout session.
func (c *Chart) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.port),
		Handler:           c.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Infof("Chart available at http://localhost:%d", c.port)
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		c.Close()
		return err
	case <-ctx.Done():
	}

	c.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// Close ends every layout session.
func (c *Chart) Close() {
	c.cancel()

	c.Lock()
	defer c.Unlock()
	for id, session := range c.sessions {
		session.cancel()
		delete(c.sessions, id)
	}
	c.metrics.sessions.Set(0)
}
