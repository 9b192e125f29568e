package aggregates

import (
	"context"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/fieldsales-backend/internal/domain/aggregates"
	"github.com/yungbote/fieldsales-backend/internal/platform/dbctx"
)

// TxRunner provides a shared transaction boundary primitive for aggregate writes.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

// TxLimits bounds one unit of work. Zero values disable the bound.
type TxLimits struct {
	// MaxWait caps how long InTx waits for a pooled connection.
	MaxWait time.Duration
	// Timeout caps the whole transaction, commit included.
	Timeout time.Duration
}

type gormTxRunner struct {
	db     *gorm.DB
	limits TxLimits
}

// NewGormTxRunner returns a transaction runner backed by GORM transactions.
func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

// NewBoundedTxRunner is NewGormTxRunner with connection-wait and execution limits.
func NewBoundedTxRunner(db *gorm.DB, limits TxLimits) TxRunner {
	return &gormTxRunner{db: db, limits: limits}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "transaction runner has nil db", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	execCtx := ctx
	if r.limits.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, r.limits.Timeout)
		defer cancel()
	}

	body := func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: execCtx, Tx: tx})
	}

	if r.limits.MaxWait <= 0 {
		return r.db.WithContext(execCtx).Transaction(body)
	}

	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	waitCtx, cancelWait := context.WithTimeout(execCtx, r.limits.MaxWait)
	conn, err := sqlDB.Conn(waitCtx)
	cancelWait()
	if err != nil {
		if waitCtx.Err() != nil {
			return domainagg.NewError(domainagg.CodeRetryable, "aggregate.tx", "timed out waiting for a database connection", err)
		}
		return err
	}
	defer conn.Close()

	pinned := r.db.Session(&gorm.Session{NewDB: true, Context: execCtx})
	pinned.Statement.ConnPool = conn
	return pinned.Transaction(body)
}
