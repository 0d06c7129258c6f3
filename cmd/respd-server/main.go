// Package main provides the entry point for respd-server.
//
// respd-server is an in-memory RESP protocol server supporting
// strings with expiry, lists, blocking list consumers, and append-only
// streams.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/nilbyte/respd/internal/config"
	"github.com/nilbyte/respd/internal/httpserver"
	"github.com/nilbyte/respd/internal/infra/buildinfo"
	"github.com/nilbyte/respd/internal/infra/confloader"
	"github.com/nilbyte/respd/internal/infra/shutdown"
	"github.com/nilbyte/respd/internal/respserver"
	"github.com/nilbyte/respd/internal/store"
	"github.com/nilbyte/respd/internal/telemetry/logger"
	"github.com/nilbyte/respd/internal/telemetry/metric"
)

func main() {
	app := &cli.App{
		Name:    "respd-server",
		Usage:   "in-memory RESP key-value server",
		Version: buildinfo.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to a YAML configuration file"},
			&cli.StringFlag{Name: "addr", Usage: "override the RESP listen address"},
			&cli.StringFlag{Name: "log-level", Usage: "override the log level (debug, info, warn, error)"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	configPath := c.String("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Server.Address = addr
	}
	if level := c.String("log-level"); level != "" {
		cfg.Log.Level = level
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Output:    os.Stdout,
		AddSource: cfg.Log.AddSource,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	log.Info("starting respd-server",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"address", cfg.Server.Address)

	if configPath != "" {
		watcher, err := confloader.NewWatcher()
		if err != nil {
			log.Warn("config watcher unavailable", "error", err)
		} else if err := watcher.Watch(configPath); err != nil {
			log.Warn("cannot watch config file", "path", configPath, "error", err)
		} else {
			watcher.OnChange(func(path string) {
				reloaded, err := config.Load(configPath)
				if err != nil {
					log.Error("config reload failed", "error", err)
					return
				}
				logger.SetLevel(reloaded.Log.Level)
				log.Info("log level reloaded", "level", reloaded.Log.Level)
			})
			watcher.StartAsync()
			shutdownWatcher := watcher
			defer func() { _ = shutdownWatcher.Stop() }()
		}
	}

	var tlsConfig *tls.Config
	if cfg.Server.TLSEnabled {
		cert, err := tls.LoadX509KeyPair(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("load TLS certificate: %w", err)
		}
		tlsConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	metrics := metric.NewRegistry()
	st := store.New(store.WithMetrics(metrics))

	resp := respserver.New(respserver.Config{
		Address:        cfg.Server.Address,
		TLSEnabled:     cfg.Server.TLSEnabled,
		TLSAddress:     cfg.Server.TLSAddress,
		TLSConfig:      tlsConfig,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		RateLimit:      cfg.Limits.RateLimit,
		RateLimitBurst: cfg.Limits.RateLimitBurst,
	}, st, metrics, log)

	ctx := context.Background()
	if err := resp.Start(ctx); err != nil {
		return fmt.Errorf("start resp server: %w", err)
	}

	shutdownHandler := shutdown.NewHandler(10 * time.Second)
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down resp server")
		return resp.Shutdown(ctx)
	})

	var httpSrv *httpserver.Server
	if cfg.Metrics.Enabled {
		httpSrv = httpserver.New(cfg.Metrics.Address, metrics)
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			log.Info("shutting down metrics server")
			return httpSrv.Shutdown(ctx)
		})

		go func() {
			log.Info("metrics server listening", "address", cfg.Metrics.Address)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server error", "error", err)
			}
		}()
	}

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}
