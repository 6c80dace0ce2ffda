package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v2"

	"github.com/itqwq/stockviz/model"
)

// EnvPrefix prefixes every environment variable, e.g. STOCKVIZ_API_BASE_URL.
const EnvPrefix = "STOCKVIZ"

// ErrInvalidConfig is returned when the loaded configuration cannot be used.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the process configuration of the dashboard and the CLI.
type Config struct {
	// APIBaseURL points to a remote calculation service. Reports are computed locally when empty.
	APIBaseURL  string            `yaml:"api_base_url" envconfig:"API_BASE_URL"`
	Server      ServerConfig      `yaml:"server" envconfig:"SERVER"`
	Data        DataConfig        `yaml:"data" envconfig:"DATA"`
	Calculation CalculationConfig `yaml:"calculation" envconfig:"CALCULATION"`
	Logging     LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
}

// ServerConfig configures the dashboard server.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	// FrameInterval is the pause between two streamed layout frames.
	FrameInterval time.Duration `yaml:"frame_interval" envconfig:"FRAME_INTERVAL"`
}

// DataConfig locates the datasets and the display window.
type DataConfig struct {
	Dir        string   `yaml:"dir" envconfig:"DIR"`
	Tickers    []string `yaml:"tickers" envconfig:"TICKERS"`
	WordsFile  string   `yaml:"words_file" envconfig:"WORDS_FILE"`
	MatrixFile string   `yaml:"matrix_file" envconfig:"MATRIX_FILE"`
	TweetsFile string   `yaml:"tweets_file" envconfig:"TWEETS_FILE"`
	// Lookback is loaded before the display start so moving averages are warm, e.g. "90d".
	Lookback     string `yaml:"lookback" envconfig:"LOOKBACK"`
	DisplayStart string `yaml:"display_start" envconfig:"DISPLAY_START"`
	DisplayEnd   string `yaml:"display_end" envconfig:"DISPLAY_END"`
}

// CalculationConfig configures where reports come from and how long they are cached.
type CalculationConfig struct {
	Benchmark    string  `yaml:"benchmark" envconfig:"BENCHMARK"`
	RiskFreeRate float64 `yaml:"risk_free_rate" envconfig:"RISK_FREE_RATE"`
	// CacheFile is a BuntDB file; reports are cached in memory when empty.
	CacheFile   string        `yaml:"cache_file" envconfig:"CACHE_FILE"`
	CacheMaxAge time.Duration `yaml:"cache_max_age" envconfig:"CACHE_MAX_AGE"`
}

// LoggingConfig sets the log level and format.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

// Default returns the configuration used when no file or variable overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
			FrameInterval:   33 * time.Millisecond,
		},
		Data: DataConfig{
			Dir:          "data",
			Tickers:      []string{"AAPL", "AMZN", "GOOGL", "MSFT", "TSLA", "V", "XOM", "SPY"},
			WordsFile:    "word_frequency.csv",
			MatrixFile:   "adjacency_matrix.csv",
			TweetsFile:   "tweets.csv",
			Lookback:     "90d",
			DisplayStart: "2017-01-01",
			DisplayEnd:   "2020-07-31",
		},
		Calculation: CalculationConfig{
			Benchmark:    "SPY",
			RiskFreeRate: 0.02,
			CacheMaxAge:  24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the defaults, overlays the YAML file at path (optional) and then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %s", ErrInvalidConfig, path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("%w: env: %s", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the port, frame interval, lookback, display window, risk free rate and log format.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d", ErrInvalidConfig, c.Server.Port)
	}
	if c.Server.FrameInterval <= 0 {
		return fmt.Errorf("%w: frame interval must be positive", ErrInvalidConfig)
	}
	if _, err := str2duration.ParseDuration(c.Data.Lookback); err != nil {
		return fmt.Errorf("%w: lookback %q: %s", ErrInvalidConfig, c.Data.Lookback, err)
	}
	if _, err := model.ParseWindow(c.Data.DisplayStart, c.Data.DisplayEnd); err != nil {
		return fmt.Errorf("%w: display window: %s", ErrInvalidConfig, err)
	}
	if c.Calculation.RiskFreeRate < 0 || c.Calculation.RiskFreeRate >= 1 {
		return fmt.Errorf("%w: risk free rate %v", ErrInvalidConfig, c.Calculation.RiskFreeRate)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}

// LookbackDuration is Data.Lookback parsed; Validate guarantees it parses.
func (c *Config) LookbackDuration() time.Duration {
	duration, _ := str2duration.ParseDuration(c.Data.Lookback)
	return duration
}

// DisplayWindow is the date range shown by the dashboard.
func (c *Config) DisplayWindow() model.Window {
	window, _ := model.ParseWindow(c.Data.DisplayStart, c.Data.DisplayEnd)
	return window
}

// Settings returns the ticker universe and benchmark.
func (c *Config) Settings() model.Settings {
	return model.Settings{
		Tickers:      c.Data.Tickers,
		Benchmark:    c.Calculation.Benchmark,
		RiskFreeRate: c.Calculation.RiskFreeRate,
	}
}

// DataPath resolves a data file relative to Data.Dir.
func (c *Config) DataPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Data.Dir, name)
}
