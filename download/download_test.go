package download

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itqwq/stockviz/feed"
	"github.com/itqwq/stockviz/model"
)

func testServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/words.csv", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("word,counts\nai,10\n"))
	})
	mux.HandleFunc("/matrix.csv", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(",ai\nai,0\n"))
	})
	mux.HandleFunc("/broken.csv", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	return httptest.NewServer(mux)
}

func TestFetch(t *testing.T) {
	server := testServer()
	defer server.Close()

	dir := t.TempDir()
	downloader := NewDownloader(server.Client(), WithProgress(false))

	err := downloader.Fetch(context.Background(), dir,
		File{URL: server.URL + "/words.csv", Name: "words.csv"},
		File{URL: server.URL + "/matrix.csv", Name: "matrix.csv"},
	)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "words.csv"))
	require.NoError(t, err)
	assert.Equal(t, "word,counts\nai,10\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestFetchAllOrNothing(t *testing.T) {
	server := testServer()
	defer server.Close()

	dir := t.TempDir()
	downloader := NewDownloader(server.Client(), WithProgress(false))

	err := downloader.Fetch(context.Background(), dir,
		File{URL: server.URL + "/words.csv", Name: "words.csv"},
		File{URL: server.URL + "/broken.csv", Name: "broken.csv"},
	)
	require.ErrorIs(t, err, ErrDownload)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetchRestoresReplacedFiles(t *testing.T) {
	server := testServer()
	defer server.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "words.csv"), []byte("word,counts\nold,1\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "matrix.csv", "nested"), 0o755))

	downloader := NewDownloader(server.Client(), WithProgress(false))
	err := downloader.Fetch(context.Background(), dir,
		File{URL: server.URL + "/words.csv", Name: "words.csv"},
		File{URL: server.URL + "/matrix.csv", Name: "matrix.csv"},
	)
	require.Error(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "words.csv"))
	require.NoError(t, err)
	assert.Equal(t, "word,counts\nold,1\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	assert.ElementsMatch(t, []string{"words.csv", "matrix.csv"}, names)
}

func TestFetchReplacesFiles(t *testing.T) {
	server := testServer()
	defer server.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "words.csv"), []byte("stale"), 0o644))

	downloader := NewDownloader(server.Client(), WithProgress(false))
	require.NoError(t, downloader.Fetch(context.Background(), dir,
		File{URL: server.URL + "/words.csv", Name: "words.csv"},
	))

	data, err := os.ReadFile(filepath.Join(dir, "words.csv"))
	require.NoError(t, err)
	assert.Equal(t, "word,counts\nai,10\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoad(t *testing.T) {
	server := testServer()
	defer server.Close()

	downloader := NewDownloader(server.Client(), WithProgress(false))

	bodies, err := downloader.Load(context.Background(), server.URL+"/words.csv", server.URL+"/matrix.csv")
	require.NoError(t, err)
	require.Len(t, bodies, 2)
	assert.Equal(t, ",ai\nai,0\n", string(bodies[1]))

	bodies, err = downloader.Load(context.Background(), server.URL+"/words.csv", server.URL+"/missing.csv")
	assert.ErrorIs(t, err, ErrDownload)
	assert.Nil(t, bodies)
}

func TestExporter(t *testing.T) {
	csvFeed := &feed.CSVFeed{Feeds: map[string]feed.TickerFeed{}, Candles: map[string][]model.Candle{}}
	monday := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	closes := []float64{10, 11, 12, 13, 14}
	candles := make([]model.Candle, 0, len(closes))
	for i, price := range closes {
		candles = append(candles, model.Candle{
			Ticker: "AAPL", Time: monday.AddDate(0, 0, i),
			Open: price, High: price + 1, Low: price - 1, Close: price, Volume: 100,
		})
	}
	csvFeed.Add("AAPL", candles)

	exporter := NewExporter(csvFeed)
	weekly, err := exporter.Candles(context.Background(), "AAPL",
		WithInterval(monday, monday.AddDate(0, 0, 6)), WithWeekly())
	require.NoError(t, err)
	require.Len(t, weekly, 1)
	assert.Equal(t, 10.0, weekly[0].Open)
	assert.Equal(t, 14.0, weekly[0].Close)
	assert.Equal(t, 500.0, weekly[0].Volume)

	lookback, err := exporter.Candles(context.Background(), "AAPL",
		WithInterval(monday.AddDate(0, 0, 4), monday.AddDate(0, 0, 4)), WithLookback("2d"))
	require.NoError(t, err)
	assert.Len(t, lookback, 3)

	var buffer bytes.Buffer
	require.NoError(t, WriteCSV(&buffer, weekly))
	assert.Equal(t, "date,open,high,low,close,volume\n2023-12-31,10.0000,15.0000,9.0000,14.0000,500\n", buffer.String())

	output := filepath.Join(t.TempDir(), "aapl.csv")
	require.NoError(t, exporter.Export(context.Background(), output, []string{"AAPL"}, WithInterval(monday, monday)))
	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "2024-01-01,10.0000")

	_, err = exporter.Candles(context.Background(), "NOPE")
	assert.ErrorIs(t, err, feed.ErrUnknownTicker)
}
