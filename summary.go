package stockviz

import (
	"fmt"
	"io"
	"strconv"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/olekukonko/tablewriter"

	"github.com/itqwq/stockviz/tools/metrics"
)

// bootstrapSamples is the number of resamples behind the confidence interval.
const bootstrapSamples = 10000

func rank(value int) string {
	if value == 0 {
		return "-"
	}
	return strconv.Itoa(value)
}

// Summary writes the performance table of the result, the distribution of its weekly returns
// and a 95% confidence interval of the mean weekly return.
func (r Result) Summary(w io.Writer) error {
	if r.CandlesErr != nil {
		return r.CandlesErr
	}

	fmt.Fprintf(w, "%s %s\n", r.Ticker, r.Window)
	if r.ReportErr == nil {
		performance := r.Report.Performance
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Metric", r.Ticker, "Rank", "Market"})
		table.SetFooterAlignment(tablewriter.ALIGN_RIGHT)
		table.Append([]string{"Alpha", fmt.Sprintf("%.4f", performance.Alpha),
			rank(performance.AlphaRank), fmt.Sprintf("%.4f", performance.MarketAlpha)})
		table.Append([]string{"Beta", fmt.Sprintf("%.4f", performance.Beta),
			rank(performance.BetaRank), fmt.Sprintf("%.4f", performance.MarketBeta)})
		table.Append([]string{"Sharpe", fmt.Sprintf("%.4f", performance.SharpeRatio),
			rank(performance.SharpeRatioRank), fmt.Sprintf("%.4f", performance.MarketSharpeRatio)})
		table.Append([]string{"Treynor", fmt.Sprintf("%.4f", performance.TreynorRatio),
			rank(performance.TreynorRatioRank), fmt.Sprintf("%.4f", performance.MarketTreynorRatio)})

		correlation := r.Report.Correlation
		table.SetFooter([]string{
			"Correlated",
			fmt.Sprintf("%s %.2f", correlation.MostCorrelatedStock, correlation.MostCorrelatedStockCorrelation),
			"",
			fmt.Sprintf("%s %.2f", correlation.LeastCorrelatedStock, correlation.LeastCorrelatedStockCorrelation),
		})
		table.Render()
	} else {
		fmt.Fprintf(w, "performance: N/A (%s)\n", r.ReportErr)
	}

	closes := make([]float64, 0, len(r.Selected))
	for _, bar := range r.Selected {
		closes = append(closes, bar.Close)
	}
	returns, err := metrics.Returns(closes)
	if err != nil {
		return err
	}
	if len(returns) == 0 {
		fmt.Fprintln(w, "not enough weeks for returns")
		return nil
	}

	percent := make([]float64, 0, len(returns))
	for _, value := range returns {
		percent = append(percent, value*100)
	}

	fmt.Fprintln(w, "------ WEEKLY RETURN (%) -------")
	if err := histogram.Fprint(w, histogram.Hist(15, percent), histogram.Linear(10)); err != nil {
		return err
	}

	interval := metrics.Bootstrap(returns, metrics.Mean, bootstrapSamples, 0.95)
	fmt.Fprintln(w, "------ CONFIDENCE INTERVAL (95%) -------")
	fmt.Fprintf(w, "MEAN RETURN: %.2f%% (%.2f%% ~ %.2f%%)\n",
		interval.Mean*100, interval.Lower*100, interval.Upper*100)
	return nil
}

// Rows flattens the selected weekly bars for tabular exports.
func (r Result) Rows() [][]string {
	rows := make([][]string, 0, len(r.Selected)+1)
	rows = append(rows, []string{"date", "open", "high", "low", "close", "volume"})
	for _, bar := range r.Selected {
		rows = append(rows, bar.ToSlice(4))
	}
	return rows
}
