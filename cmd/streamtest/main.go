// streamtest connects to the market stream and prints parsed ticks to the
// console. With --value it also runs a bridge and prints the updates a
// browser client would receive.
// Usage: go run ./cmd/streamtest --config configs/relay.example.yaml --value
//
// Environment variables (only needed with --value):
//
//	BINANCE_API_KEY    - API key sent as X-MBX-APIKEY
//	BINANCE_API_SECRET - Secret used to sign account requests
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/portfolio-relay/internal/api"
	"github.com/rickgao/portfolio-relay/internal/auth"
	"github.com/rickgao/portfolio-relay/internal/bridge"
	"github.com/rickgao/portfolio-relay/internal/config"
	"github.com/rickgao/portfolio-relay/internal/connection"
	"github.com/rickgao/portfolio-relay/internal/portfolio"
	"github.com/rickgao/portfolio-relay/internal/ratelimit"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	value := flag.Bool("value", false, "value the portfolio on every tick (needs API credentials)")
	verbose := flag.Bool("verbose", false, "print raw message JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	if err := config.LoadDotEnv(""); err != nil {
		logger.Warn("failed to load .env", "error", err)
	}

	// Defaults only; credentials are checked below when needed.
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	limiter, err := ratelimit.New(cfg.RateLimit, ratelimit.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create rate limiter", "error", err)
		os.Exit(1)
	}
	defer limiter.Close()

	var creds *auth.Credentials
	if *value {
		creds, err = auth.NewCredentials(cfg.API.APIKey, cfg.API.APISecret)
		if err != nil {
			logger.Error("API credentials required for --value",
				"api_key_set", cfg.API.APIKey != "",
				"api_secret_set", cfg.API.APISecret != "",
			)
			logger.Info("Set environment variables: BINANCE_API_KEY and BINANCE_API_SECRET")
			os.Exit(1)
		}
	}

	aggregator := portfolio.NewAggregator(
		api.NewClient(cfg.API.RestURL, creds, api.WithLogger(logger), api.WithTimeout(cfg.API.Timeout)),
		limiter,
		portfolio.Config{Assets: cfg.Portfolio.Assets, Quote: cfg.Portfolio.Quote},
		logger,
	)

	clientCfg := connection.DefaultClientConfig()
	clientCfg.URL = connection.CombinedStreamURL(cfg.API.WSURL, bridge.StreamNames(aggregator.Assets(), aggregator.Quote()))
	clientCfg.BufferSize = cfg.Stream.BufferSize
	client := connection.NewClient(clientCfg, logger)
	defer client.Close()

	logger.Info("streaming started - press Ctrl+C to stop", "url", clientCfg.URL)

	if *value {
		b := bridge.New(bridge.Config{Coalesce: cfg.Stream.Coalesce}, client, aggregator, consoleSink{}, logger)

		// Stats printer
		go printStats(ctx, b, limiter, logger)

		if err := b.Run(ctx); err != nil {
			logger.Error("bridge stopped", "error", err)
			os.Exit(1)
		}
		logger.Info("shutdown complete")
		return
	}

	if err := client.Connect(ctx); err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	printTicks(ctx, client, *verbose, logger)

	logger.Info("shutdown complete")
}

// consoleSink prints what a browser client would receive.
type consoleSink struct{}

func (consoleSink) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Printf("[UPDATE] %s\n", data)
	return nil
}

func printTicks(ctx context.Context, client connection.Client, verbose bool, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-client.Errors():
			logger.Error("stream failed", "error", err)
			return
		case msg := <-client.Messages():
			if verbose {
				fmt.Printf("[RAW] %s\n", msg.Data)
			}
			tick, err := bridge.ParseTick(msg.Data)
			if err != nil {
				logger.Warn("unparsable message", "error", err)
				continue
			}
			fmt.Printf("[TICK] %-12s price=%-16s event=%s latency=%s\n",
				tick.Symbol,
				tick.LastPrice.String(),
				tick.EventTime.Format(time.RFC3339Nano),
				msg.ReceivedAt.Sub(tick.EventTime).Round(time.Millisecond),
			)
		}
	}
}

func printStats(ctx context.Context, b *bridge.Bridge, limiter *ratelimit.Limiter, logger *slog.Logger) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bs := b.Stats()
			ls := limiter.Stats()
			logger.Info("stats",
				"state", b.State().String(),
				"ticks", bs.Ticks,
				"malformed", bs.Malformed,
				"ignored", bs.Ignored,
				"snapshots", bs.Snapshots,
				"updates", bs.Updates,
				"limiter_queue", ls.QueueDepth,
				"limiter_admitted", ls.Admitted,
			)
		}
	}
}
