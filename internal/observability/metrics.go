package observability

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
)

const namespace = "fieldsales"

type Metrics struct {
	gatherer prometheus.Gatherer

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	aggregateOps       *prometheus.CounterVec
	aggregateLatency   *prometheus.HistogramVec
	aggregateConflicts *prometheus.CounterVec
	aggregateRetries   *prometheus.CounterVec
	idCollisions       *prometheus.CounterVec

	pipelineStage    *prometheus.HistogramVec
	pipelineItems    *prometheus.CounterVec
	mediaUploads     *prometheus.CounterVec
	compensations    *prometheus.CounterVec
	paymentSequences *prometheus.CounterVec

	storageModeActive *prometheus.GaugeVec
	storageBootstrap  *prometheus.CounterVec

	pgStats   *prometheus.GaugeVec
	redisUp   prometheus.Gauge
	redisPing prometheus.Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func Current() *Metrics {
	return instance
}

// Init registers the process-wide metrics on the default Prometheus registry.
// It returns nil when METRICS_ENABLED is off; every method is nil-safe.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

// New registers a fresh metric set on reg. Tests pass their own registry.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: gatherer,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "API request latency in seconds by method/route/status.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route", "status"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "api_inflight_requests",
			Help:      "In-flight API requests.",
		}),
		aggregateOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_operations_total",
			Help:      "Aggregate write operations by operation/status.",
		}, []string{"operation", "status"}),
		aggregateLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregate_operation_duration_seconds",
			Help:      "Aggregate write latency in seconds by operation/status.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"operation", "status"}),
		aggregateConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_conflicts_total",
			Help:      "Aggregate writes rejected by a uniqueness or concurrency conflict.",
		}, []string{"operation"}),
		aggregateRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_retryable_total",
			Help:      "Aggregate writes that failed with a retryable error.",
		}, []string{"operation"}),
		idCollisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identifier_collisions_total",
			Help:      "Generated payment numbers or cooler codes rejected by the unique index.",
		}, []string{"kind"}),
		pipelineStage: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "visit_pipeline_stage_duration_seconds",
			Help:      "Visit bulk-upsert stage duration in seconds by stage/status.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"stage", "status"}),
		pipelineItems: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visit_pipeline_items_total",
			Help:      "Visit batch items by outcome (created/updated/failed).",
		}, []string{"outcome"}),
		mediaUploads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visit_media_uploads_total",
			Help:      "Visit photo uploads by slot/status.",
		}, []string{"slot", "status"}),
		compensations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visit_media_compensation_deletes_total",
			Help:      "Compensating media deletes by reason/status.",
		}, []string{"reason", "status"}),
		paymentSequences: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_sequence_total",
			Help:      "Payment number sequence lookups by source/status.",
		}, []string{"source", "status"}),
		storageModeActive: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "object_storage_mode_active",
			Help:      "Active media store mode (1 for the selected mode).",
		}, []string{"mode"}),
		storageBootstrap: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "object_storage_bootstrap_total",
			Help:      "Media store bootstrap attempts by mode/status/error_code.",
		}, []string{"mode", "status", "error_code"}),
		pgStats: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "postgres_stats",
			Help:      "Postgres connection pool stats.",
		}, []string{"metric"}),
		redisUp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "redis_up",
			Help:      "Redis connectivity (1=up, 0=down).",
		}),
		redisPing: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "redis_ping_seconds",
			Help:      "Redis ping latency in seconds.",
		}),
	}
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	method = orDefault(method, "UNKNOWN")
	route = orDefault(route, "unknown")
	status = orDefault(status, "0")
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	operation = orDefault(operation, "unknown")
	status = orDefault(status, "unknown")
	m.aggregateOps.WithLabelValues(operation, status).Inc()
	m.aggregateLatency.WithLabelValues(operation, status).Observe(dur.Seconds())
}

func (m *Metrics) IncAggregateConflict(operation string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.WithLabelValues(orDefault(operation, "unknown")).Inc()
}

func (m *Metrics) IncAggregateRetry(operation string) {
	if m == nil {
		return
	}
	m.aggregateRetries.WithLabelValues(orDefault(operation, "unknown")).Inc()
}

func (m *Metrics) IncIdentifierCollision(kind string) {
	if m == nil {
		return
	}
	m.idCollisions.WithLabelValues(orDefault(kind, "unknown")).Inc()
}

func (m *Metrics) ObservePipelineStage(stage, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.pipelineStage.WithLabelValues(orDefault(stage, "unknown"), orDefault(status, "unknown")).Observe(dur.Seconds())
}

func (m *Metrics) IncPipelineItem(outcome string) {
	if m == nil {
		return
	}
	m.pipelineItems.WithLabelValues(orDefault(outcome, "unknown")).Inc()
}

func (m *Metrics) IncMediaUpload(slot, status string) {
	if m == nil {
		return
	}
	m.mediaUploads.WithLabelValues(orDefault(slot, "unknown"), orDefault(status, "unknown")).Inc()
}

func (m *Metrics) IncCompensationDelete(reason, status string) {
	if m == nil {
		return
	}
	m.compensations.WithLabelValues(orDefault(reason, "unknown"), orDefault(status, "unknown")).Inc()
}

func (m *Metrics) IncPaymentSequence(source, status string) {
	if m == nil {
		return
	}
	m.paymentSequences.WithLabelValues(orDefault(source, "unknown"), orDefault(status, "unknown")).Inc()
}

func (m *Metrics) SetObjectStorageModeActive(mode string) {
	if m == nil {
		return
	}
	m.storageModeActive.Reset()
	m.storageModeActive.WithLabelValues(orDefault(mode, "unknown")).Set(1)
}

func (m *Metrics) ObserveObjectStorageProviderBootstrap(mode, status, errorCode string) {
	if m == nil {
		return
	}
	m.storageBootstrap.WithLabelValues(orDefault(mode, "unknown"), orDefault(status, "unknown"), orDefault(errorCode, "none")).Inc()
}

func scrapeInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS"))
	if v == "" {
		return 10 * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: postgres stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
				m.pgStats.WithLabelValues("in_use").Set(float64(stats.InUse))
				m.pgStats.WithLabelValues("idle").Set(float64(stats.Idle))
				m.pgStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
				m.pgStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
				m.pgStats.WithLabelValues("max_open_connections").Set(float64(stats.MaxOpenConnections))
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func orDefault(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}
