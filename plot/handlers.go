package plot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/samber/lo"

	"github.com/itqwq/stockviz/calc"
	"github.com/itqwq/stockviz/download"
	"github.com/itqwq/stockviz/feed"
	"github.com/itqwq/stockviz/model"
	"github.com/itqwq/stockviz/tools/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors to HTTP status codes: missing data is a 404, a failing
// calculation service a 502.
func statusFor(err error) int {
	switch {
	case errors.Is(err, calc.ErrInvalidRequest), errors.Is(err, model.ErrInvalidWindow):
		return http.StatusBadRequest
	case errors.Is(err, calc.ErrUnknownTicker), errors.Is(err, feed.ErrUnknownTicker),
		errors.Is(err, calc.ErrNoData), errors.Is(err, feed.ErrInsufficientData):
		return http.StatusNotFound
	case errors.Is(err, calc.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func renderError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.WithField("path", r.URL.Path).WithError(err).Error("request failed")
	}
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: err.Error()})
}

// Handler returns the router of the dashboard.
func (c *Chart) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(c.metrics.instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: c.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", c.handleIndex)
	r.Get("/bubbles", c.handleBubblesPage)
	r.Get("/assets/chart.js", c.handleScript("chart.js"))
	r.Get("/assets/bubbles.js", c.handleScript("bubbles.js"))
	r.Handle("/assets/*", http.FileServer(http.FS(staticFiles)))
	r.Get("/history", c.handleHistory)
	r.Get("/health", c.handleHealth)
	r.Handle("/metrics", c.metrics.handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/tickers", c.handleTickers)
		r.Get("/candles", c.handleCandles)
		r.Post("/calculate", c.handleCalculate)
		r.Post("/bubbles", c.handleCreateBubbles)
		r.Delete("/bubbles/{id}", c.handleDeleteBubbles)
		r.Get("/bubbles/{id}/ws", c.handleBubblesSocket)
	})

	return r
}

func (c *Chart) handleScript(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-type", "application/javascript")
		fmt.Fprint(w, c.scriptContent[name])
	}
}

func (c *Chart) handleHealth(w http.ResponseWriter, r *http.Request) {
	c.Lock()
	sessions := len(c.sessions)
	c.Unlock()

	render.JSON(w, r, map[string]interface{}{
		"status":   "ok",
		"tickers":  len(c.feeder.Tickers()),
		"sessions": sessions,
	})
}

func (c *Chart) handleIndex(w http.ResponseWriter, r *http.Request) {
	tickers := c.feeder.Tickers()
	ticker := r.URL.Query().Get("ticker")
	if ticker == "" && len(tickers) > 0 {
		http.Redirect(w, r, fmt.Sprintf("/?ticker=%s", tickers[0]), http.StatusFound)
		return
	}

	w.Header().Add("Content-Type", "text/html")
	err := c.indexHTML.Execute(w, map[string]interface{}{
		"ticker":  ticker,
		"tickers": suggest(tickers, c.companies, ""),
		"start":   c.window.Start.Format(model.DateLayout),
		"end":     c.window.End.Format(model.DateLayout),
	})
	if err != nil {
		log.Error(err)
	}
}

func (c *Chart) handleBubblesPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "text/html")
	err := c.bubblesHTML.Execute(w, map[string]interface{}{
		"ticker": r.URL.Query().Get("ticker"),
	})
	if err != nil {
		log.Error(err)
	}
}

func (c *Chart) handleTickers(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, suggest(c.feeder.Tickers(), c.companies, r.URL.Query().Get("q")))
}

// requestWindow reads the optional start and end query parameters, falling back to the
// display window.
func (c *Chart) requestWindow(r *http.Request) (model.Window, error) {
	start, end := r.URL.Query().Get("start"), r.URL.Query().Get("end")
	if start == "" && end == "" {
		return c.window, nil
	}
	if start == "" {
		start = c.window.Start.Format(model.DateLayout)
	}
	if end == "" {
		end = c.window.End.Format(model.DateLayout)
	}
	return model.ParseWindow(start, end)
}

type candlesResponse struct {
	Ticker     string          `json:"ticker"`
	Name       string          `json:"name"`
	Window     model.Window    `json:"window"`
	Candles    []model.Candle  `json:"candles"`
	Indicators []plotIndicator `json:"indicators"`
	Low        float64         `json:"low"`
	High       float64         `json:"high"`
}

// candles loads the daily candles of ticker from lookback before the window start, and returns
// the weekly candles of the window along with the indicators computed on the daily closes.
func (c *Chart) candles(ctx context.Context, ticker string, window model.Window) (candlesResponse, error) {
	daily, err := c.feeder.CandlesByPeriod(ctx, ticker, window.Start.Add(-c.lookback), window.End)
	if err != nil {
		return candlesResponse{}, err
	}

	visible := lo.Filter(daily, func(candle model.Candle, _ int) bool {
		return window.Contains(candle.Time)
	})
	if len(visible) == 0 {
		return candlesResponse{}, fmt.Errorf("%w: %s %s", calc.ErrNoData, ticker, window)
	}

	weekly := feed.Weekly(visible)
	name, ok := c.companies[ticker]
	if !ok {
		name = "Unknown Stock"
	}

	return candlesResponse{
		Ticker:     ticker,
		Name:       name,
		Window:     window,
		Candles:    weekly,
		Indicators: c.indicatorsFor(model.NewDataframe(ticker, daily), window.Start),
		Low:        lo.MinBy(weekly, func(a, b model.Candle) bool { return a.Low < b.Low }).Low,
		High:       lo.MaxBy(weekly, func(a, b model.Candle) bool { return a.High > b.High }).High,
	}, nil
}

func (c *Chart) indicatorsFor(dataframe *model.Dataframe, from time.Time) []plotIndicator {
	indicators := make([]plotIndicator, 0, len(c.indicators))

	c.Lock()
	defer c.Unlock()
	for _, i := range c.indicators {
		i.Load(dataframe)
		indicator := plotIndicator{
			Name:    i.Name(),
			Overlay: i.Overlay(),
			Warmup:  i.Warmup(),
			Metrics: make([]indicatorMetric, 0),
		}

		for _, metric := range i.Metrics() {
			line := indicatorMetric{
				Name:   metric.Name,
				Color:  metric.Color,
				Style:  metric.Style,
				Time:   make([]time.Time, 0, len(metric.Time)),
				Values: make([]float64, 0, len(metric.Values)),
			}
			for n, t := range metric.Time {
				if t.Before(from) || n >= len(metric.Values) {
					continue
				}
				line.Time = append(line.Time, t)
				line.Values = append(line.Values, metric.Values[n])
			}
			indicator.Metrics = append(indicator.Metrics, line)
		}

		indicators = append(indicators, indicator)
	}
	return indicators
}

func (c *Chart) handleCandles(w http.ResponseWriter, r *http.Request) {
	ticker := r.URL.Query().Get("ticker")
	if ticker == "" {
		renderError(w, r, http.StatusBadRequest, errors.New("missing ticker"))
		return
	}

	window, err := c.requestWindow(r)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err)
		return
	}

	response, err := c.candles(r.Context(), ticker, window)
	if err != nil {
		renderError(w, r, statusFor(err), err)
		return
	}
	render.JSON(w, r, response)
}

func (c *Chart) handleHistory(w http.ResponseWriter, r *http.Request) {
	ticker := r.URL.Query().Get("ticker")
	if ticker == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	window, err := c.requestWindow(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	daily, err := c.feeder.CandlesByPeriod(r.Context(), ticker, window.Start, window.End)
	if err != nil {
		w.WriteHeader(statusFor(err))
		return
	}

	buffer := bytes.NewBuffer(nil)
	if err := download.WriteCSV(buffer, feed.Weekly(daily)); err != nil {
		log.Errorf("failed writing history: %s", err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment;filename=weekly_"+ticker+".csv")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buffer.Bytes()); err != nil {
		log.Errorf("failed writing response: %s", err.Error())
	}
}

func (c *Chart) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var request model.Request
	if err := render.DecodeJSON(r.Body, &request); err != nil {
		c.metrics.calculations.WithLabelValues("invalid").Inc()
		renderError(w, r, http.StatusBadRequest, fmt.Errorf("%w: %s", calc.ErrInvalidRequest, err))
		return
	}

	report, err := c.calculate(r, request)
	if err != nil {
		renderError(w, r, statusFor(err), err)
		return
	}
	render.JSON(w, r, report)
}

func (c *Chart) calculate(r *http.Request, request model.Request) (model.Report, error) {
	if c.calculator == nil {
		c.metrics.calculations.WithLabelValues("unavailable").Inc()
		return model.Report{}, fmt.Errorf("%w: no calculator configured", calc.ErrUpstream)
	}
	if err := c.validator.Validate(request); err != nil {
		c.metrics.calculations.WithLabelValues("invalid").Inc()
		return model.Report{}, err
	}

	report, err := c.calculator.Calculate(r.Context(), request)
	if err != nil {
		c.metrics.calculations.WithLabelValues("error").Inc()
		return model.Report{}, err
	}
	c.metrics.calculations.WithLabelValues("ok").Inc()
	return report, nil
}
