package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	reg := prometheus.NewRegistry()
	return New(reg, reg)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ObserveAggregateOperation("op", "success", time.Millisecond)
	m.IncAggregateConflict("op")
	m.IncAggregateRetry("op")
	m.ObservePipelineStage("transacting", "ok", time.Millisecond)
	m.IncPipelineItem("created")
	m.IncMediaUpload("self_images", "ok")
	m.IncCompensationDelete("failed_item", "ok")
	m.SetObjectStorageModeActive("gcs")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("nil handler status: want=503 got=%d", rec.Code)
	}
}

func TestAggregateAndPipelineCounters(t *testing.T) {
	m := newTestMetrics(t)
	m.ObserveAggregateOperation("Field.Visit.Upsert", "success", 5*time.Millisecond)
	m.ObserveAggregateOperation("Field.Visit.Upsert", "success", 5*time.Millisecond)
	m.IncAggregateConflict("Field.Visit.Upsert")
	m.IncPipelineItem("failed")
	m.IncCompensationDelete("failed_item", "error")
	m.IncIdentifierCollision("cooler_code")
	m.IncIdentifierCollision("")

	if got := promtest.ToFloat64(m.aggregateOps.WithLabelValues("Field.Visit.Upsert", "success")); got != 2 {
		t.Fatalf("aggregate ops: want=2 got=%v", got)
	}
	if got := promtest.ToFloat64(m.aggregateConflicts.WithLabelValues("Field.Visit.Upsert")); got != 1 {
		t.Fatalf("aggregate conflicts: want=1 got=%v", got)
	}
	if got := promtest.ToFloat64(m.pipelineItems.WithLabelValues("failed")); got != 1 {
		t.Fatalf("pipeline items: want=1 got=%v", got)
	}
	if got := promtest.ToFloat64(m.idCollisions.WithLabelValues("cooler_code")); got != 1 {
		t.Fatalf("identifier collisions: want=1 got=%v", got)
	}
	if got := promtest.ToFloat64(m.idCollisions.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("unlabelled collision: want=1 got=%v", got)
	}
	if got := promtest.ToFloat64(m.compensations.WithLabelValues("failed_item", "error")); got != 1 {
		t.Fatalf("compensations: want=1 got=%v", got)
	}
}

func TestStorageModeActiveKeepsOneMode(t *testing.T) {
	m := newTestMetrics(t)
	m.SetObjectStorageModeActive("gcs")
	m.SetObjectStorageModeActive("local")
	if got := promtest.CollectAndCount(m.storageModeActive); got != 1 {
		t.Fatalf("active modes: want=1 got=%d", got)
	}
	if got := promtest.ToFloat64(m.storageModeActive.WithLabelValues("local")); got != 1 {
		t.Fatalf("local mode gauge: want=1 got=%v", got)
	}
}

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	m := newTestMetrics(t)
	m.ObserveAPI("POST", "/api/visits/bulk-upsert", "207", 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `fieldsales_api_requests_total{method="POST",route="/api/visits/bulk-upsert",status="207"} 1`) {
		t.Fatalf("exposition missing api counter:\n%s", rec.Body.String())
	}
}

func TestPipelineHooksObserveStage(t *testing.T) {
	m := newTestMetrics(t)
	hooks := NewPipelineHooks(m)

	_, end := hooks.Stage(context.Background(), 0, "transacting")
	end("failed", errors.New("boom"))
	hooks.ItemDone(context.Background(), 0, "failed")

	if got := promtest.CollectAndCount(m.pipelineStage); got != 1 {
		t.Fatalf("stage series: want=1 got=%d", got)
	}
	if got := promtest.ToFloat64(m.pipelineItems.WithLabelValues("failed")); got != 1 {
		t.Fatalf("items: want=1 got=%v", got)
	}
}

func TestParseOtelHeaders(t *testing.T) {
	got := parseOtelHeaders(" api-key = abc , broken, =x, team=field ")
	if len(got) != 2 || got["api-key"] != "abc" || got["team"] != "field" {
		t.Fatalf("parseOtelHeaders: got=%v", got)
	}
	if parseOtelHeaders("") != nil {
		t.Fatalf("empty headers should be nil")
	}
}

func TestClampRatio(t *testing.T) {
	if clampRatio(-1) != 0 || clampRatio(2) != 1 || clampRatio(0.25) != 0.25 {
		t.Fatalf("clampRatio out of range")
	}
}
