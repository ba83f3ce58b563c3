package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Metrics struct {
	sendsTotal    *prometheus.CounterVec
	sendDuration  *prometheus.HistogramVec
	eventsApplied *prometheus.CounterVec
	uploadChunks  prometheus.Counter
	uploadBytes   prometheus.Counter
	storeSize     prometheus.Gauge
	logger        *zap.Logger
}

func NewMetrics(logger *zap.Logger) *Metrics {
	return newMetrics(logger, prometheus.DefaultRegisterer)
}

// NewMetricsWith registers against a caller-owned registry, used by tests to
// avoid duplicate registration on the default one.
func NewMetricsWith(logger *zap.Logger, reg prometheus.Registerer) *Metrics {
	return newMetrics(logger, reg)
}

func newMetrics(logger *zap.Logger, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sendsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatflow_sends_total",
				Help: "Total outbound send attempts",
			},
			[]string{"kind", "outcome"},
		),
		sendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatflow_send_duration_seconds",
				Help:    "Provider submission duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		eventsApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatflow_feed_events_total",
				Help: "Live feed events applied, by kind",
			},
			[]string{"kind"},
		),
		uploadChunks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chatflow_upload_chunks_total",
				Help: "Upload chunks submitted",
			},
		),
		uploadBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chatflow_upload_bytes_total",
				Help: "Upload bytes submitted",
			},
		),
		storeSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "chatflow_store_messages",
				Help: "Messages currently held in the conversation store",
			},
		),
		logger: logger,
	}

	reg.MustRegister(
		m.sendsTotal,
		m.sendDuration,
		m.eventsApplied,
		m.uploadChunks,
		m.uploadBytes,
		m.storeSize,
	)

	return m
}

func (m *Metrics) RecordSend(kind, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.sendsTotal.WithLabelValues(kind, outcome).Inc()
	m.sendDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (m *Metrics) RecordEvent(kind string) {
	if m == nil {
		return
	}
	m.eventsApplied.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordUploadChunk(bytes int) {
	if m == nil {
		return
	}
	m.uploadChunks.Inc()
	m.uploadBytes.Add(float64(bytes))
}

func (m *Metrics) SetStoreSize(n int) {
	if m == nil {
		return
	}
	m.storeSize.Set(float64(n))
}

func (m *Metrics) Start(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	m.logger.Info("metrics server listening", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
