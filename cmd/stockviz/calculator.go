package main

import (
	"os"
	"strings"

	"github.com/glebarez/sqlite"

	"github.com/itqwq/stockviz/calc"
	"github.com/itqwq/stockviz/config"
	"github.com/itqwq/stockviz/model"
	"github.com/itqwq/stockviz/service"
	"github.com/itqwq/stockviz/storage"
	"github.com/itqwq/stockviz/tools/log"
	"github.com/itqwq/stockviz/wordgraph"
)

// newCalculator builds the report source: the remote service when an API base URL is set,
// local data otherwise. Reports are cached either way.
func newCalculator(cfg *config.Config, feeder service.Feeder) (service.Calculator, func(), error) {
	var calculator service.Calculator
	if cfg.APIBaseURL != "" {
		log.WithField("url", cfg.APIBaseURL).Info("using remote calculation service")
		calculator = calc.NewClient(cfg.APIBaseURL)
	} else {
		calculator = calc.NewLocal(feeder, loadTweets(cfg), calc.WithSettings(cfg.Settings()))
	}

	cache, err := openCache(cfg.Calculation.CacheFile)
	if err != nil {
		return nil, nil, err
	}
	cached := calc.NewCached(calculator, cache, calc.WithMaxAge(cfg.Calculation.CacheMaxAge))
	return cached, func() {
		log.CheckErr(log.WarnLevel, cache.Close())
	}, nil
}

// openCache opens a BuntDB file, or an SQLite database for .sqlite files. An empty name keeps
// reports in memory.
func openCache(file string) (storage.Storage, error) {
	switch {
	case file == "":
		return storage.FromMemory()
	case strings.HasSuffix(file, ".sqlite"), strings.HasSuffix(file, ".sqlite3"):
		return storage.FromSQL(sqlite.Open(file))
	default:
		return storage.FromFile(file)
	}
}

func loadTweets(cfg *config.Config) []model.Tweet {
	file, err := os.Open(cfg.DataPath(cfg.Data.TweetsFile))
	if err != nil {
		log.WithError(err).Warn("tweets not loaded, reports will have no keywords")
		return nil
	}
	defer file.Close()

	tweets, err := wordgraph.ReadTweets(file)
	if err != nil {
		log.WithError(err).Warn("tweets not loaded, reports will have no keywords")
		return nil
	}
	return tweets
}
