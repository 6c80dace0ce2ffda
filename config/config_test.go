package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 33*time.Millisecond, cfg.Server.FrameInterval)
	assert.Equal(t, "SPY", cfg.Calculation.Benchmark)
	assert.Equal(t, 0.02, cfg.Calculation.RiskFreeRate)
	assert.Equal(t, 90*24*time.Hour, cfg.LookbackDuration())
	assert.Empty(t, cfg.APIBaseURL)
	assert.Equal(t, "2017-01-01", cfg.DisplayWindow().Start.Format("2006-01-02"))
}

func TestLoadFileAndEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
api_base_url: http://file:8000
server:
  port: 9000
  frame_interval: 50ms
data:
  dir: /srv/data
  tickers: [AAPL, SPY]
  lookback: 2w
calculation:
  risk_free_rate: 0.03
`), 0o600))

	t.Setenv("STOCKVIZ_API_BASE_URL", "http://env:8000")
	t.Setenv("STOCKVIZ_CALCULATION_BENCHMARK", "QQQ")
	t.Setenv("STOCKVIZ_DATA_TICKERS", "TSLA,QQQ")

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "http://env:8000", cfg.APIBaseURL)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 50*time.Millisecond, cfg.Server.FrameInterval)
	assert.Equal(t, []string{"TSLA", "QQQ"}, cfg.Data.Tickers)
	assert.Equal(t, 14*24*time.Hour, cfg.LookbackDuration())
	assert.Equal(t, "/srv/data/tweets.csv", cfg.DataPath(cfg.Data.TweetsFile))
	assert.Equal(t, "/abs.csv", cfg.DataPath("/abs.csv"))

	settings := cfg.Settings()
	assert.Equal(t, "QQQ", settings.Benchmark)
	assert.Equal(t, 0.03, settings.RiskFreeRate)
}

func TestLoadInvalid(t *testing.T) {
	for name, content := range map[string]string{
		"port":     "server:\n  port: 70000\n",
		"lookback": "data:\n  lookback: soon\n",
		"window":   "data:\n  display_start: \"2023-01-01\"\n  display_end: \"2022-01-01\"\n",
		"rate":     "calculation:\n  risk_free_rate: 2\n",
		"format":   "logging:\n  format: xml\n",
		"yaml":     "server: [",
	} {
		t.Run(name, func(t *testing.T) {
			file := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
			_, err := Load(file)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
