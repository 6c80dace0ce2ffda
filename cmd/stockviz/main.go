package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/itqwq/stockviz"
	"github.com/itqwq/stockviz/bubble"
	"github.com/itqwq/stockviz/config"
	"github.com/itqwq/stockviz/download"
	"github.com/itqwq/stockviz/feed"
	"github.com/itqwq/stockviz/plot"
	"github.com/itqwq/stockviz/plot/indicator"
	"github.com/itqwq/stockviz/tools/log"
	"github.com/itqwq/stockviz/wordgraph"
)

func main() {
	app := &cli.App{
		Name:     "stockviz",
		HelpName: "stockviz",
		Usage:    "Stock dashboard, word bubbles and finance metrics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "eg. ./stockviz.yml",
				EnvVars: []string{config.EnvPrefix + "_CONFIG"},
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			log.Configure(cfg.Logging.Level, cfg.Logging.Format)
			c.App.Metadata = map[string]interface{}{"config": cfg}
			return nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			bubblesCommand(),
			weeklyCommand(),
			metricsCommand(),
			downloadCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func configFrom(c *cli.Context) *config.Config {
	return c.App.Metadata["config"].(*config.Config)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:     "serve",
		HelpName: "serve",
		Usage:    "Serve the dashboard and the calculation API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "eg. 8080 (default from config)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "serve scripts without minification",
			},
		},
		Action: func(c *cli.Context) error {
			cfg := configFrom(c)
			if port := c.Int("port"); port > 0 {
				cfg.Server.Port = port
			}

			feeder, err := feed.FromDir(cfg.Data.Dir, cfg.Data.Tickers...)
			if err != nil {
				return err
			}

			calculator, closeCalculator, err := newCalculator(cfg, feeder)
			if err != nil {
				return err
			}
			defer closeCalculator()

			options := []plot.Option{
				plot.WithPort(cfg.Server.Port),
				plot.WithCalculator(calculator),
				plot.WithDisplayWindow(cfg.DisplayWindow()),
				plot.WithLookback(cfg.LookbackDuration()),
				plot.WithFrameInterval(cfg.Server.FrameInterval),
				plot.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
				plot.WithCustomIndicators(
					indicator.SMA(20, "#ff7f0e"),
					indicator.EMA(50, "#2ca02c"),
				),
			}
			if c.Bool("debug") {
				options = append(options, plot.WithDebug())
			}

			words, links, err := wordgraph.LoadGraph(cfg.DataPath(cfg.Data.WordsFile), cfg.DataPath(cfg.Data.MatrixFile))
			if err != nil {
				log.WithError(err).Warn("word data not loaded, bubbles need a ticker")
			} else {
				options = append(options, plot.WithWordGraph(words, links))
			}

			chart, err := plot.NewChart(feeder, options...)
			if err != nil {
				return err
			}
			return chart.Start(c.Context)
		},
	}
}

func bubblesCommand() *cli.Command {
	return &cli.Command{
		Name:     "bubbles",
		HelpName: "bubbles",
		Usage:    "Settle a word bubble layout and write it as SVG",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "words",
				Aliases: []string{"w"},
				Usage:   "word frequency file or URL, CSV or JSON (default from config)",
			},
			&cli.StringFlag{
				Name:    "matrix",
				Aliases: []string{"m"},
				Usage:   "adjacency matrix file or URL, CSV or JSON (default from config)",
			},
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "eg. ./bubbles.svg",
				Required: true,
			},
			&cli.Float64Flag{
				Name:  "width",
				Value: 1000,
			},
			&cli.Float64Flag{
				Name:  "height",
				Value: 800,
			},
			&cli.IntFlag{
				Name:  "ticks",
				Usage: "simulation ticks before drawing",
				Value: 300,
			},
			&cli.Int64Flag{
				Name:  "seed",
				Usage: "seed of the jitter that separates nodes sitting on the same point",
				Value: 1,
			},
		},
		Action: func(c *cli.Context) error {
			cfg := configFrom(c)
			wordsSource := c.String("words")
			if wordsSource == "" {
				wordsSource = cfg.DataPath(cfg.Data.WordsFile)
			}
			matrixSource := c.String("matrix")
			if matrixSource == "" {
				matrixSource = cfg.DataPath(cfg.Data.MatrixFile)
			}

			var (
				words []stockviz.Word
				links []stockviz.Link
				err   error
			)
			if isURL(wordsSource) || isURL(matrixSource) {
				bodies, loadErr := download.NewDownloader(nil).Load(c.Context, wordsSource, matrixSource)
				if loadErr != nil {
					return loadErr
				}
				words, links, err = wordgraph.ParseGraph(wordsSource, bodies[0], matrixSource, bodies[1])
			} else {
				words, links, err = wordgraph.LoadGraph(wordsSource, matrixSource)
			}
			if err != nil {
				return err
			}

			layout, err := bubble.New(words, links,
				bubble.WithSize(c.Float64("width"), c.Float64("height")),
				bubble.WithSeed(c.Int64("seed")),
			)
			if err != nil {
				return err
			}
			layout.Settle(c.Int("ticks"))

			file, err := os.Create(c.String("output"))
			if err != nil {
				return err
			}
			defer file.Close()

			if err := bubble.NewSVGRenderer(file).Draw(layout.Frame()); err != nil {
				return err
			}
			log.WithFields(log.Fields{
				"nodes":  len(layout.Nodes()),
				"links":  len(layout.Edges()),
				"output": c.String("output"),
			}).Info("bubbles written")
			return nil
		},
	}
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func weeklyCommand() *cli.Command {
	return &cli.Command{
		Name:     "weekly",
		HelpName: "weekly",
		Usage:    "Export weekly candles to CSV",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "ticker",
				Aliases: []string{"t"},
				Usage:   "eg. AAPL (default every configured ticker)",
			},
			&cli.IntFlag{
				Name:    "days",
				Aliases: []string{"d"},
				Usage:   "eg. 100 (default 1 year)",
			},
			&cli.TimestampFlag{
				Name:    "start",
				Aliases: []string{"s"},
				Usage:   "eg. 2017-01-01",
				Layout:  stockviz.DateLayout,
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "eg. 2020-07-31",
				Layout:  stockviz.DateLayout,
			},
			&cli.StringFlag{
				Name:  "lookback",
				Usage: "extra history before the start, eg. 90d",
			},
			&cli.BoolFlag{
				Name:  "daily",
				Usage: "keep daily candles",
			},
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "eg. ./weekly_%s.csv, %s is replaced by the ticker when exporting many",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			cfg := configFrom(c)
			tickers := c.StringSlice("ticker")
			if len(tickers) == 0 {
				tickers = cfg.Data.Tickers
			}

			feeder, err := feed.FromDir(cfg.Data.Dir, tickers...)
			if err != nil {
				return err
			}

			var options []download.Option
			if days := c.Int("days"); days > 0 {
				options = append(options, download.WithDays(days))
			}
			start, end := c.Timestamp("start"), c.Timestamp("end")
			if start != nil && end != nil && !start.IsZero() && !end.IsZero() {
				options = append(options, download.WithInterval(*start, *end))
			} else if (start != nil && !start.IsZero()) || (end != nil && !end.IsZero()) {
				return errors.New("START and END must be informed together")
			}
			if lookback := c.String("lookback"); lookback != "" {
				options = append(options, download.WithLookback(lookback))
			}
			if !c.Bool("daily") {
				options = append(options, download.WithWeekly())
			}

			return download.NewExporter(feeder).Export(c.Context, c.String("output"), tickers, options...)
		},
	}
}

func metricsCommand() *cli.Command {
	return &cli.Command{
		Name:     "metrics",
		HelpName: "metrics",
		Usage:    "Print the performance report of a ticker",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "ticker",
				Aliases:  []string{"t"},
				Usage:    "eg. AAPL",
				Required: true,
			},
			&cli.Float64Flag{
				Name:  "from",
				Usage: "slider start in percent of the display window",
				Value: 0,
			},
			&cli.Float64Flag{
				Name:  "to",
				Usage: "slider end in percent of the display window",
				Value: 100,
			},
			&cli.StringFlag{
				Name:  "xlsx",
				Usage: "also save the weekly candles and the report, eg. ./aapl.xlsx",
			},
		},
		Action: func(c *cli.Context) error {
			cfg := configFrom(c)
			feeder, err := feed.FromDir(cfg.Data.Dir, cfg.Data.Tickers...)
			if err != nil {
				return err
			}

			calculator, closeCalculator, err := newCalculator(cfg, feeder)
			if err != nil {
				return err
			}
			defer closeCalculator()

			session, err := stockviz.NewSession(c.Context, cfg.Settings(), feeder, calculator,
				stockviz.WithDisplayWindow(cfg.DisplayWindow()),
				stockviz.WithTicker(strings.ToUpper(c.String("ticker"))),
			)
			if err != nil {
				return err
			}
			defer session.Close()

			if err := session.SetWindow(c.Float64("from"), c.Float64("to")); err != nil {
				return err
			}

			result := session.Refresh(c.Context)
			if result.Failed() {
				return fmt.Errorf("%s: %w", result.Ticker, result.CandlesErr)
			}
			if err := result.Summary(os.Stdout); err != nil {
				return err
			}
			if output := c.String("xlsx"); output != "" {
				return result.SaveXLSX(output)
			}
			return nil
		},
	}
}

func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:     "download",
		HelpName: "download",
		Usage:    "Download the datasets into the data directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "base-url",
				Aliases: []string{"b"},
				Usage:   "eg. https://example.com/data, fetches every ticker and word file below it",
			},
			&cli.StringSliceFlag{
				Name:    "url",
				Aliases: []string{"u"},
				Usage:   "extra file to fetch",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Value: 4,
			},
		},
		Action: func(c *cli.Context) error {
			cfg := configFrom(c)
			files := make([]download.File, 0)
			if base := strings.TrimSuffix(c.String("base-url"), "/"); base != "" {
				names := []string{cfg.Data.WordsFile, cfg.Data.MatrixFile, cfg.Data.TweetsFile}
				for _, ticker := range cfg.Data.Tickers {
					names = append(names, ticker+".csv")
				}
				for _, name := range names {
					if name == "" {
						continue
					}
					files = append(files, download.File{URL: base + "/" + name, Name: name})
				}
			}
			for _, url := range c.StringSlice("url") {
				files = append(files, download.File{URL: url, Name: path.Base(url)})
			}
			if len(files) == 0 {
				return errors.New("nothing to download: set --base-url or --url")
			}

			if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
				return err
			}
			downloader := download.NewDownloader(nil, download.WithConcurrency(c.Int("concurrency")))
			return downloader.Fetch(c.Context, cfg.Data.Dir, files...)
		},
	}
}
