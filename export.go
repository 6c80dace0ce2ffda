package stockviz

import (
	"strconv"

	"github.com/xuri/excelize/v2"
)

const (
	weeklySheet      = "Weekly"
	performanceSheet = "Performance"
)

// SaveXLSX writes the selected weekly bars and, when available, the performance table of the
// result to a spreadsheet.
func (r Result) SaveXLSX(path string) error {
	if r.CandlesErr != nil {
		return r.CandlesErr
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", weeklySheet); err != nil {
		return err
	}
	for i, row := range r.Rows() {
		values := make([]interface{}, 0, len(row))
		for j, value := range row {
			if i > 0 && j > 0 {
				if number, err := strconv.ParseFloat(value, 64); err == nil {
					values = append(values, number)
					continue
				}
			}
			values = append(values, value)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(weeklySheet, cell, &values); err != nil {
			return err
		}
	}

	if r.ReportErr == nil {
		if _, err := f.NewSheet(performanceSheet); err != nil {
			return err
		}
		performance := r.Report.Performance
		rows := [][]interface{}{
			{"metric", r.Ticker, "rank", "market"},
			{"alpha", performance.Alpha, performance.AlphaRank, performance.MarketAlpha},
			{"beta", performance.Beta, performance.BetaRank, performance.MarketBeta},
			{"sharpe_ratio", performance.SharpeRatio, performance.SharpeRatioRank, performance.MarketSharpeRatio},
			{"treynor_ratio", performance.TreynorRatio, performance.TreynorRatioRank, performance.MarketTreynorRatio},
		}
		for i := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(performanceSheet, cell, &rows[i]); err != nil {
				return err
			}
		}
	}

	return f.SaveAs(path)
}
