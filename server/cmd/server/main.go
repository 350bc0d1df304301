package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/startingnine/startingnine/server/internal/api"
	"github.com/startingnine/startingnine/server/internal/config"
	"github.com/startingnine/startingnine/server/internal/store"
	"github.com/startingnine/startingnine/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (empty: defaults + environment)")
	uiDir := flag.String("ui-dir", "", "serve the frontend static files from this directory (e.g. web/dist); leave empty to disable")
	flag.Parse()

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("startingnine-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	level.Set(cfg.Level())

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"matchups", cfg.MatchupsPath(),
		"umpires", cfg.UmpiresPath(),
		"alerts", cfg.AlertsPath(),
		"push_interval", cfg.Server.PushInterval,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st := store.New(cfg.MatchupsPath(), cfg.UmpiresPath(), cfg.AlertsPath())

	// WebSocket hub: pushes the matchup cache to UI clients when it changes.
	hub := ws.New(st, cfg.Server.PushInterval)
	go hub.Run(ctx)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "startingnine_http_requests_total",
		Help: "REST API requests by status code and method.",
	}, []string{"code", "method"})
	reg.MustRegister(requests)
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "startingnine_ws_clients",
		Help: "Connected WebSocket clients.",
	}, func() float64 { return float64(hub.Count()) }))

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", promhttp.InstrumentHandlerCounter(requests, api.New(st)))
	httpMux.Handle("/ws/matchups", hub)
	httpMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// The "/" catch-all serves index.html for any unknown path (SPA routing).
	if *uiDir != "" {
		fs := http.FileServer(http.Dir(*uiDir))
		httpMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			path := *uiDir + r.URL.Path
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, *uiDir+"/index.html")
				return
			}
			fs.ServeHTTP(w, r)
		})
		slog.Info("serving UI static files", "dir", *uiDir)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("startingnine-server shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}
