package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itqwq/stockviz/model"
)

func backends(t *testing.T) map[string]Storage {
	bunt, err := FromMemory()
	require.NoError(t, err)

	buntFile, err := FromFile(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)

	sql, err := FromSQL(sqlite.Open(filepath.Join(t.TempDir(), "reports.sqlite")))
	require.NoError(t, err)

	return map[string]Storage{"bunt": bunt, "bunt-file": buntFile, "sql": sql}
}

func storedReport(t *testing.T, ticker, start, end string, created time.Time) *model.StoredReport {
	request := model.Request{StockTicker: ticker, StartDate: start, EndDate: end}
	report, err := model.NewStoredReport(request, model.Report{
		Performance: model.Performance{Alpha: 0.25, AlphaRank: 3},
		Correlation: model.Correlation{MostCorrelatedStock: "MSFT", LeastCorrelatedStock: "XOM"},
	})
	require.NoError(t, err)
	report.CreatedAt = created
	return report
}

func TestStorage(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			first := storedReport(t, "AAPL", "2020-01-01", "2020-06-30", now.Add(-time.Hour))
			second := storedReport(t, "TSLA", "2020-01-01", "2020-06-30", now)
			require.NoError(t, store.SaveReport(first))
			require.NoError(t, store.SaveReport(second))

			found, err := store.Report(first.Key)
			require.NoError(t, err)
			assert.Equal(t, "AAPL", found.Ticker)

			report, err := found.Report()
			require.NoError(t, err)
			assert.Equal(t, 0.25, report.Performance.Alpha)
			assert.Equal(t, "MSFT", report.Correlation.MostCorrelatedStock)

			_, err = store.Report("missing")
			assert.ErrorIs(t, err, ErrNotFound)

			all, err := store.Reports()
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "AAPL", all[0].Ticker)

			tsla, err := store.Reports(WithTicker("TSLA"))
			require.NoError(t, err)
			require.Len(t, tsla, 1)
			assert.Equal(t, second.Key, tsla[0].Key)

			recent, err := store.Reports(WithCreatedAfter(now.Add(-time.Minute)))
			require.NoError(t, err)
			require.Len(t, recent, 1)
			assert.Equal(t, "TSLA", recent[0].Ticker)

			second.Payload = `{"performance":{"alpha":1}}`
			require.NoError(t, store.SaveReport(second))
			updated, err := store.Report(second.Key)
			require.NoError(t, err)
			assert.Equal(t, second.Payload, updated.Payload)

			require.NoError(t, store.DeleteReport(first.Key))
			assert.ErrorIs(t, store.DeleteReport(first.Key), ErrNotFound)
			_, err = store.Report(first.Key)
			assert.ErrorIs(t, err, ErrNotFound)

			assert.NoError(t, store.Close())
		})
	}
}
