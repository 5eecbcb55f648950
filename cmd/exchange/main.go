// Command exchange runs the trading core as a service: a market data feed
// driving per-symbol order books, an order registry, a portfolio and a
// read-only HTTP API.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-exchange/internal/api"
	"github.com/rxtech-lab/argo-exchange/internal/engine"
	"github.com/rxtech-lab/argo-exchange/internal/logger"
	"github.com/rxtech-lab/argo-exchange/internal/marketdata"
	"github.com/rxtech-lab/argo-exchange/internal/marketdata/provider"
	"github.com/rxtech-lab/argo-exchange/internal/marketdata/synthetic"
	"github.com/rxtech-lab/argo-exchange/internal/orderbook"
	"github.com/rxtech-lab/argo-exchange/internal/position"
	"github.com/rxtech-lab/argo-exchange/internal/types"
	"github.com/rxtech-lab/argo-exchange/internal/version"
)

func main() {
	cmd := &cli.Command{
		Name:    "exchange",
		Usage:   "Run the trading core service",
		Version: version.Version,
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Start the feed, order books and API server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to YAML config file",
					},
				},
				Action: runAction,
			},
			{
				Name:  "history",
				Usage: "Download historical data to CSV",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to YAML config file",
					},
					&cli.StringFlag{
						Name:  "period",
						Value: "1d",
						Usage: "Time period (1d, 5d, 1mo, ...)",
					},
					&cli.StringFlag{
						Name:  "interval",
						Value: "1m",
						Usage: "Bar granularity (1m, 5m, 1h, 1d, ...)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Value:   "history.csv",
						Usage:   "Output CSV path",
					},
				},
				Action: historyAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildFeed constructs the feed stack shared by both commands.
func buildFeed(cfg Config, log *logger.Logger) (*marketdata.Feed, error) {
	quotes, err := provider.NewQuoteProvider(provider.ProviderType(cfg.Feed.Provider), 10*time.Second)
	if err != nil {
		return nil, err
	}

	generator := synthetic.NewGenerator(log)
	feed := marketdata.NewFeed(cfg.FeedConfig(), quotes, generator, log)

	for _, symbol := range cfg.Symbols {
		feed.AddSymbol(symbol)
	}

	return feed, nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := LoadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	feed, err := buildFeed(cfg, log)
	if err != nil {
		return err
	}

	eng := engine.NewTradingEngine(log)
	books := orderbook.NewRegistry(log)
	positions := position.NewManager(cfg.Portfolio.InitialCapital, cfg.Portfolio.CommissionRate, log)

	for _, symbol := range cfg.Symbols {
		books.GetOrCreate(symbol)
	}

	// Every published snapshot marks the portfolio so unrealized P&L
	// tracks the market.
	feed.RegisterCallback(func(data types.MarketData) {
		positions.UpdatePrice(data.Symbol, data.LastPrice)
	})

	server := api.NewServer(eng, books, positions, feed, log)
	if err := server.Start(cfg.ListenAddr); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	feed.Start(ctx)

	log.Info("Exchange running",
		zap.String("listen_addr", server.Address()),
		zap.Strings("symbols", cfg.Symbols),
	)

	<-ctx.Done()

	log.Info("Shutting down")
	feed.Stop()

	return server.Stop()
}

func historyAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := LoadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	feed, err := buildFeed(cfg, log)
	if err != nil {
		return err
	}

	period := cmd.String("period")
	interval := cmd.String("interval")
	outputPath := cmd.String("output")

	output, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer output.Close()

	writer := csv.NewWriter(output)
	defer writer.Flush()

	if err := writer.Write([]string{"symbol", "time", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}

	bar := progressbar.Default(int64(len(cfg.Symbols)), "downloading")

	for _, symbol := range cfg.Symbols {
		series, err := feed.GetHistoricalData(ctx, symbol, period, interval)
		if err != nil {
			return err
		}

		for _, barData := range series {
			record := []string{
				barData.Symbol,
				barData.Time.Format(time.RFC3339),
				strconv.FormatFloat(barData.Open, 'f', -1, 64),
				strconv.FormatFloat(barData.High, 'f', -1, 64),
				strconv.FormatFloat(barData.Low, 'f', -1, 64),
				strconv.FormatFloat(barData.Close, 'f', -1, 64),
				strconv.FormatFloat(barData.Volume, 'f', -1, 64),
			}

			if err := writer.Write(record); err != nil {
				return err
			}
		}

		_ = bar.Add(1)
	}

	fmt.Printf("Wrote historical data for %d symbols to %s\n", len(cfg.Symbols), outputPath)

	return nil
}
