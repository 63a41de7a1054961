package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/portfolio-relay/internal/api"
	"github.com/rickgao/portfolio-relay/internal/auth"
	"github.com/rickgao/portfolio-relay/internal/bridge"
	"github.com/rickgao/portfolio-relay/internal/config"
	"github.com/rickgao/portfolio-relay/internal/connection"
	"github.com/rickgao/portfolio-relay/internal/portfolio"
	"github.com/rickgao/portfolio-relay/internal/ratelimit"
	"github.com/rickgao/portfolio-relay/internal/version"
	"github.com/rickgao/portfolio-relay/internal/web"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional; environment alone is enough)")
	envPath := flag.String("env", ".env", "path to .env file")
	flag.Parse()

	if err := run(*configPath, *envPath); err != nil {
		slog.Error("relay failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, envPath string) error {
	if err := config.LoadDotEnv(envPath); err != nil {
		return err
	}

	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting relay",
		"version", version.Version,
		"commit", version.Commit,
		"config", configPath,
	)
	logger.Info("configuration loaded",
		"api_url", cfg.API.RestURL,
		"stream_url", cfg.API.WSURL,
		"assets", cfg.Portfolio.Assets,
		"quote", cfg.Portfolio.Quote,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	creds, err := auth.NewCredentials(cfg.API.APIKey, cfg.API.APISecret)
	if err != nil {
		return fmt.Errorf("credentials: %w", err)
	}

	limiter, err := ratelimit.New(cfg.RateLimit, ratelimit.WithLogger(logger))
	if err != nil {
		return err
	}
	defer limiter.Close()

	apiClient := api.NewClient(
		cfg.API.RestURL,
		creds,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRecvWindow(cfg.API.RecvWindow),
	)

	// An unreachable exchange is not fatal; requests fail with 500 until it is back.
	logger.Info("checking exchange connectivity")
	if err := pingExchange(ctx, limiter, apiClient); err != nil {
		logger.Warn("exchange unreachable at startup, serving anyway", "error", err)
	}

	aggregator := portfolio.NewAggregator(apiClient, limiter, portfolio.Config{
		Assets: cfg.Portfolio.Assets,
		Quote:  cfg.Portfolio.Quote,
	}, logger)

	streams := bridge.StreamNames(aggregator.Assets(), aggregator.Quote())
	if len(streams) == 0 {
		return errors.New("no tracked assets besides the quote asset; nothing to stream")
	}
	upstream := connection.DefaultClientConfig()
	upstream.URL = connection.CombinedStreamURL(cfg.API.WSURL, streams)
	upstream.BufferSize = cfg.Stream.BufferSize
	upstream.PingInterval = cfg.Stream.PingInterval
	upstream.PingTimeout = cfg.Stream.PingTimeout

	mgrCfg := connection.DefaultManagerConfig()
	mgrCfg.Upstream = upstream
	mgrCfg.AllowedOrigins = cfg.Server.AllowedOrigins

	bridgeCfg := bridge.Config{Coalesce: cfg.Stream.Coalesce}
	manager := connection.NewManager(mgrCfg, func(s *connection.Session) (connection.Bridge, error) {
		return bridge.New(bridgeCfg, s.Feed(), aggregator, s, s.Logger()), nil
	}, logger)

	site, err := web.NewServer(web.Config{
		ClientWSURL: cfg.Server.ClientWSURL,
		StaticDir:   cfg.Server.StaticDir,
	}, aggregator, manager, limiter, logger)
	if err != nil {
		return err
	}
	httpServer := site.HTTPServer(fmt.Sprintf(":%d", cfg.Server.Port))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening",
			"port", cfg.Server.Port,
			"streams", len(streams),
		)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Hijacked WebSocket connections are not tracked by Shutdown.
		if err := manager.Stop(shutdownCtx); err != nil {
			logger.Warn("sessions did not drain", "error", err)
		}
		return httpServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("relay stopped", "sessions", manager.Stats().TotalOpened)
	return err
}

func pingExchange(ctx context.Context, limiter *ratelimit.Limiter, client *api.Client) error {
	if err := limiter.Schedule(ctx, api.WeightPing); err != nil {
		return err
	}
	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("exchange ping: %w", err)
	}
	return nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
