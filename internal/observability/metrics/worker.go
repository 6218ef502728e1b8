package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry
	service  string

	pipelineTotal    *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec
	pipelineInFlight prometheus.Gauge
	stageDuration    *prometheus.HistogramVec
	oracleTotal      *prometheus.CounterVec
	queueLag         *prometheus.HistogramVec
	sweptTotal       prometheus.Counter
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	pipelineTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docpipe",
			Subsystem: "worker",
			Name:      "pipeline_total",
			Help:      "Total pipeline runs by outcome.",
		},
		[]string{"service", "outcome"},
	)
	pipelineDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docpipe",
			Subsystem: "worker",
			Name:      "pipeline_duration_seconds",
			Help:      "End-to-end pipeline duration in seconds by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "outcome"},
	)
	pipelineInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docpipe",
			Subsystem: "worker",
			Name:      "pipeline_in_flight",
			Help:      "Number of documents currently being processed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docpipe",
			Subsystem: "worker",
			Name:      "stage_duration_seconds",
			Help:      "Per-stage processing duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "stage"},
	)
	oracleTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docpipe",
			Subsystem: "oracle",
			Name:      "calls_total",
			Help:      "Total analysis oracle calls by outcome.",
		},
		[]string{"service", "outcome"},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docpipe",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between enqueue and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	sweptTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docpipe",
			Subsystem: "worker",
			Name:      "stale_swept_total",
			Help:      "Documents marked failed by the stale sweeper.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(pipelineTotal, pipelineDuration, pipelineInFlight, stageDuration, oracleTotal, queueLag, sweptTotal)

	return &WorkerMetrics{
		registry:         registry,
		service:          service,
		pipelineTotal:    pipelineTotal,
		pipelineDuration: pipelineDuration,
		pipelineInFlight: pipelineInFlight,
		stageDuration:    stageDuration,
		oracleTotal:      oracleTotal,
		queueLag:         queueLag,
		sweptTotal:       sweptTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartDocument() {
	m.pipelineInFlight.Inc()
}

func (m *WorkerMetrics) FinishDocument(duration time.Duration, err error) {
	m.pipelineInFlight.Dec()

	outcome := "complete"
	if err != nil {
		outcome = "failed"
	}

	m.pipelineTotal.WithLabelValues(m.service, outcome).Inc()
	m.pipelineDuration.WithLabelValues(m.service, outcome).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveStage(stage string, duration time.Duration) {
	m.stageDuration.WithLabelValues(m.service, stage).Observe(duration.Seconds())
}

func (m *WorkerMetrics) RecordOracleCall(err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.oracleTotal.WithLabelValues(m.service, outcome).Inc()
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(m.service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) RecordSwept(count int) {
	if count > 0 {
		m.sweptTotal.Add(float64(count))
	}
}
