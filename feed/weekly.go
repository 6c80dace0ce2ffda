package feed

import (
	"math"
	"sort"
	"time"

	"github.com/itqwq/stockviz/model"
)

// WeekStart returns Sunday 00:00 UTC of the calendar week containing t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// Weekly groups daily candles by calendar week. Each bar is stamped with the week start and
// keeps the first open, the last close, the highest high, the lowest low and the summed volume
// and dividends of its days.
func Weekly(candles []model.Candle) []model.Candle {
	sorted := append([]model.Candle(nil), candles...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	weeks := make([]model.Candle, 0, len(sorted)/5+1)
	for _, candle := range sorted {
		week := WeekStart(candle.Time)
		lastIndex := len(weeks) - 1
		if lastIndex >= 0 && weeks[lastIndex].Time.Equal(week) {
			last := &weeks[lastIndex]
			last.High = math.Max(last.High, candle.High)
			last.Low = math.Min(last.Low, candle.Low)
			last.Close = candle.Close
			last.Volume += candle.Volume
			last.Dividends += candle.Dividends
			if candle.Splits != 0 {
				last.Splits = candle.Splits
			}
			continue
		}

		candle.Time = week
		weeks = append(weeks, candle)
	}

	return weeks
}
