package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	httpadapter "github.com/insolvd/docpipe/internal/adapters/http"
	"github.com/insolvd/docpipe/internal/bootstrap"
	"github.com/insolvd/docpipe/internal/config"
	"github.com/insolvd/docpipe/internal/observability/logging"
	"github.com/insolvd/docpipe/internal/observability/metrics"
)

const serviceName = "docpipe-api"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	traffic := httpadapter.NewTrafficControl(httpadapter.TrafficControlConfig{
		RequestsPerSecond: float64(cfg.APIRateLimitRPS),
		Burst:             cfg.APIRateLimitBurst,
		MaxConcurrent:     cfg.APIMaxConcurrent,
		OnRateLimited: func() {
			httpMetrics.RecordRateLimited(serviceName)
		},
	})

	router := httpadapter.NewRouter(
		app.Ingest,
		app.Resolver,
		app.Reader,
		app.Lifecycle,
		app.Analysis,
		app.Versions,
		app.Folders,
		app.Tasks,
		httpadapter.RouterOptions{
			Service:        serviceName,
			Metrics:        httpMetrics,
			TrafficControl: traffic,
		},
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", httpMetrics.Handler())
	mux.Handle("/", router.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		slog.Error("listen_failed", "addr", server.Addr, "error", err)
		os.Exit(1)
	}
	if cfg.APIMaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.APIMaxConnections)
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			slog.Error("api_server_failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}
