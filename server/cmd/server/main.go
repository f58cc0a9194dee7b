package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/stockwatch/stockwatch/pkg/types"
	"github.com/stockwatch/stockwatch/server/internal/api"
	"github.com/stockwatch/stockwatch/server/internal/config"
	"github.com/stockwatch/stockwatch/server/internal/market"
	"github.com/stockwatch/stockwatch/server/internal/metrics"
	"github.com/stockwatch/stockwatch/server/internal/users"
	"github.com/stockwatch/stockwatch/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to config file; empty uses defaults and environment")
	flag.Parse()

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("stockwatch-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	level.Set(cfg.Log.SlogLevel())

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"tick_interval", cfg.Server.TickInterval,
		"enforce_tickers", cfg.Market.EnforceTickers,
		"log_level", cfg.Log.Level,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Only the log level is applied live; other fields need a restart.
	if *configPath != "" {
		go func() {
			err := config.Watch(ctx, *configPath, func(next *config.Config) {
				level.Set(next.Log.SlogLevel())
				slog.Info("log level reloaded", "level", next.Log.Level)
			})
			if err != nil {
				slog.Warn("config watch disabled", "err", err)
			}
		}()
	}

	m := metrics.New()
	gen := market.New(types.SupportedTickers(), market.NewRand())
	st := users.New(cfg.Market.EnforceTickers)

	hub := ws.New(gen, st, ws.Options{
		Interval:     cfg.Server.TickInterval,
		SendBuffer:   cfg.Server.WS.SendBuffer,
		WriteTimeout: cfg.Server.WS.WriteTimeout,
		PongWait:     cfg.Server.WS.PongWait,
		Metrics:      m,
	})
	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()

	apiHandler := api.New(st, gen, api.Options{
		AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
		Metrics:        m,
	})

	httpMux := http.NewServeMux()
	for _, route := range apiHandler.Routes() {
		httpMux.Handle(route, apiHandler)
	}
	httpMux.Handle("/ws", hub)
	httpMux.Handle("/metrics", m.Handler())

	if cfg.Server.UIDir != "" {
		httpMux.Handle("/", spaHandler(cfg.Server.UIDir))
		slog.Info("serving UI static files", "dir", cfg.Server.UIDir)
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.HTTPPort))
	if err != nil {
		slog.Error("failed to listen on HTTP port", "port", cfg.Server.HTTPPort, "err", err)
		os.Exit(1)
	}

	httpSrv := &http.Server{Handler: httpMux}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("stockwatch-server shutting down")

	// The hub closes every client before the listener goes away.
	<-hubDone

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", "err", err)
	}
}
