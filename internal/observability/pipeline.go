package observability

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const pipelineTracerName = "github.com/yungbote/fieldsales-backend/visits"

// StageEnd closes a stage opened by PipelineHooks.Stage.
type StageEnd func(status string, err error)

// PipelineHooks records one event per batch item stage. Events carry the item
// index, stage name, duration and final status.
type PipelineHooks interface {
	Stage(ctx context.Context, index int, stage string) (context.Context, StageEnd)
	ItemDone(ctx context.Context, index int, outcome string)
}

type nopPipelineHooks struct{}

func NopPipelineHooks() PipelineHooks { return nopPipelineHooks{} }

func (nopPipelineHooks) Stage(ctx context.Context, _ int, _ string) (context.Context, StageEnd) {
	return ctx, func(string, error) {}
}

func (nopPipelineHooks) ItemDone(context.Context, int, string) {}

type pipelineHooks struct {
	metrics *Metrics
	tracer  trace.Tracer
}

// NewPipelineHooks exports stage events as Prometheus histograms and
// OpenTelemetry spans. metrics may be nil.
func NewPipelineHooks(metrics *Metrics) PipelineHooks {
	return &pipelineHooks{
		metrics: metrics,
		tracer:  otel.Tracer(pipelineTracerName),
	}
}

func (h *pipelineHooks) Stage(ctx context.Context, index int, stage string) (context.Context, StageEnd) {
	stage = strings.TrimSpace(stage)
	start := time.Now()
	ctx, span := h.tracer.Start(ctx, "visit."+stage, trace.WithAttributes(
		attribute.Int("visit.item_index", index),
		attribute.String("visit.stage", stage),
	))
	return ctx, func(status string, err error) {
		span.SetAttributes(attribute.String("visit.status", status))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		h.metrics.ObservePipelineStage(stage, status, time.Since(start))
	}
}

func (h *pipelineHooks) ItemDone(ctx context.Context, index int, outcome string) {
	trace.SpanFromContext(ctx).AddEvent("visit.item_done", trace.WithAttributes(
		attribute.Int("visit.item_index", index),
		attribute.String("visit.outcome", outcome),
	))
	h.metrics.IncPipelineItem(outcome)
}
