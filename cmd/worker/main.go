package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/insolvd/docpipe/internal/bootstrap"
	"github.com/insolvd/docpipe/internal/config"
	"github.com/insolvd/docpipe/internal/core/ports"
	"github.com/insolvd/docpipe/internal/observability/logging"
	"github.com/insolvd/docpipe/internal/observability/metrics"
)

const serviceName = "docpipe-worker"

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

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := startMetricsServer(cfg.WorkerMetricsPort, workerMetrics)
	defer shutdownMetricsServer(metricsServer)
	app.Processor.InstrumentWith(workerMetrics)

	if cfg.SweepEnabled {
		scheduler := cron.New()
		_, err := scheduler.AddFunc(cfg.SweepSchedule, func() {
			sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()
			swept, err := app.Sweeper.Run(sweepCtx)
			if err != nil {
				slog.Error("sweep_failed", "error", err)
				return
			}
			workerMetrics.RecordSwept(swept)
		})
		if err != nil {
			slog.Error("sweep_schedule_invalid", "schedule", cfg.SweepSchedule, "error", err)
			os.Exit(1)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeProcessDocument(ctx, func(handlerCtx context.Context, evt ports.ProcessEvent) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		if !evt.EnqueuedAt.IsZero() {
			workerMetrics.ObserveQueueLag(time.Since(evt.EnqueuedAt))
		}
		workerMetrics.StartDocument()
		start := time.Now()
		processErr := app.Processor.ProcessByID(processCtx, evt.DocumentID)
		workerMetrics.FinishDocument(time.Since(start), processErr)
		return processErr
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

func startMetricsServer(port string, workerMetrics *metrics.WorkerMetrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", workerMetrics.Handler())

	server := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics_server_failed", "error", err)
		}
	}()
	return server
}

func shutdownMetricsServer(server *http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
