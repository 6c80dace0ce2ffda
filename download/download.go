package download

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/xhit/go-str2duration/v2"

	"github.com/itqwq/stockviz/feed"
	"github.com/itqwq/stockviz/model"
	"github.com/itqwq/stockviz/service"
	"github.com/itqwq/stockviz/tools/log"
)

// Exporter writes the candles of a feeder to CSV files.
type Exporter struct {
	feeder service.Feeder
}

// NewExporter writes the candles of feeder as CSV.
func NewExporter(feeder service.Feeder) Exporter {
	return Exporter{
		feeder: feeder,
	}
}

// Parameters select the candles of an export.
type Parameters struct {
	Start  time.Time
	End    time.Time
	Weekly bool
}

// Option customizes the Parameters of an export.
type Option func(*Parameters)

// WithInterval exports the candles between start and end.
func WithInterval(start, end time.Time) Option {
	return func(parameters *Parameters) {
		parameters.Start = start
		parameters.End = end
	}
}

// WithDays exports the last days up to today.
func WithDays(days int) Option {
	return func(parameters *Parameters) {
		parameters.Start = time.Now().AddDate(0, 0, -days)
		parameters.End = time.Now()
	}
}

// WithLookback moves the start back by a duration such as "90d" or "2w".
func WithLookback(lookback string) Option {
	return func(parameters *Parameters) {
		duration, err := str2duration.ParseDuration(lookback)
		if err != nil {
			log.WithField("lookback", lookback).WithError(err).Warn("download: invalid lookback ignored")
			return
		}
		parameters.Start = parameters.Start.Add(-duration)
	}
}

// WithWeekly aggregates the daily candles into calendar weeks.
func WithWeekly() Option {
	return func(parameters *Parameters) {
		parameters.Weekly = true
	}
}

// Candles returns the candles of ticker selected by the options.
func (e Exporter) Candles(ctx context.Context, ticker string, options ...Option) ([]model.Candle, error) {
	now := time.Now()
	parameters := &Parameters{
		Start: now.AddDate(-1, 0, 0),
		End:   now,
	}
	for _, option := range options {
		option(parameters)
	}

	parameters.Start = time.Date(parameters.Start.Year(), parameters.Start.Month(), parameters.Start.Day(),
		0, 0, 0, 0, time.UTC)
	parameters.End = time.Date(parameters.End.Year(), parameters.End.Month(), parameters.End.Day(),
		23, 59, 59, 0, time.UTC)

	candles, err := e.feeder.CandlesByPeriod(ctx, ticker, parameters.Start, parameters.End)
	if err != nil {
		return nil, err
	}
	if parameters.Weekly {
		candles = feed.Weekly(candles)
	}
	return candles, nil
}

// WriteCSV writes candles as date,open,high,low,close,volume rows.
func WriteCSV(w io.Writer, candles []model.Candle) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"date", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, candle := range candles {
		if err := writer.Write(candle.ToSlice(4)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Export writes the candles of every ticker to output, one file per ticker when output holds
// a %s verb.
func (e Exporter) Export(ctx context.Context, output string, tickers []string, options ...Option) error {
	progressBar := progressbar.Default(int64(len(tickers)))
	defer progressBar.Close()

	for _, ticker := range tickers {
		candles, err := e.Candles(ctx, ticker, options...)
		if err != nil {
			return fmt.Errorf("%s: %w", ticker, err)
		}

		file := output
		if len(tickers) > 1 {
			file = fmt.Sprintf(output, ticker)
		}
		recordFile, err := os.Create(file)
		if err != nil {
			return err
		}
		err = WriteCSV(recordFile, candles)
		recordFile.Close()
		if err != nil {
			return err
		}

		log.WithFields(log.Fields{"ticker": ticker, "candles": len(candles)}).Infof("exported %s", file)
		_ = progressBar.Add(1)
	}

	return nil
}
