package aggregates

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/fieldsales-backend/internal/domain/aggregates"
	"github.com/yungbote/fieldsales-backend/internal/platform/dbctx"
	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
)

type BaseDeps struct {
	DB     *gorm.DB
	Log    *logger.Logger
	Runner TxRunner
	Hooks  Hooks
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return d
}

func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	err := deps.Runner.InTx(ctx, fn)
	mapped := MapError(op, err)

	dur := time.Since(start)
	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		switch {
		case domainagg.IsCode(mapped, domainagg.CodeConflict):
			deps.Hooks.IncConflict(op)
		case domainagg.IsCode(mapped, domainagg.CodeRetryable):
			deps.Hooks.IncRetry(op)
		}
		// validation failures are the caller's problem and stay quiet
		if status != string(domainagg.CodeValidation) && status != string(domainagg.CodeNotFound) {
			deps.Log.Warn("Aggregate write rolled back", "op", op, "status", status, "duration_ms", dur.Milliseconds(), "error", mapped)
		}
	}
	deps.Hooks.ObserveOperation(op, status, dur)
	return mapped
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
