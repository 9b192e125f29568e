package aggregates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/fieldsales-backend/internal/domain/aggregates"
)

var (
	// ErrValidation indicates caller input validation failure.
	ErrValidation = errors.New("aggregate validation")
	// ErrInvariant indicates invariant rule violation.
	ErrInvariant = errors.New("aggregate invariant violation")
	// ErrConflict indicates a uniqueness conflict.
	ErrConflict = errors.New("aggregate conflict")
	// ErrRetryable indicates transient retryable failure.
	ErrRetryable = errors.New("aggregate retryable")
	// ErrNotFound indicates a referenced row does not exist.
	ErrNotFound = errors.New("aggregate not found")
)

// ValidationError tags an error as validation failure.
func ValidationError(format string, args ...any) error {
	return tagged(domainagg.CodeValidation, ErrValidation, format, args...)
}

// InvariantError tags an error as invariant violation.
func InvariantError(format string, args ...any) error {
	return tagged(domainagg.CodeInvariantViolation, ErrInvariant, format, args...)
}

// ConflictError tags an error as conflict failure.
func ConflictError(format string, args ...any) error {
	return tagged(domainagg.CodeConflict, ErrConflict, format, args...)
}

// RetryableError tags an error as retryable failure.
func RetryableError(format string, args ...any) error {
	return tagged(domainagg.CodeRetryable, ErrRetryable, format, args...)
}

// NotFoundError tags an error as a missing referenced row.
func NotFoundError(format string, args ...any) error {
	return tagged(domainagg.CodeNotFound, ErrNotFound, format, args...)
}

func tagged(code domainagg.ErrorCode, sentinel error, format string, args ...any) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return domainagg.NewError(code, "", msg, sentinel)
}

// MapError maps infrastructure/domain failures into aggregate error codes.
// Errors that already carry a code pass through; path-only errors keep their
// path and are classified by cause.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		if aggErr.Code != "" {
			return err
		}
		cause := aggErr.Cause
		if cause == nil {
			cause = errors.New(aggErr.Message)
		}
		mapped := classify(op, cause)
		if aggErr.Path == "" {
			return mapped
		}
		return domainagg.AtPath(aggErr.Path, mapped)
	}
	return classify(op, err)
}

func classify(op string, err error) error {
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) && aggErr.Code != "" {
		return err
	}
	switch {
	case errors.Is(err, ErrValidation):
		return domainagg.Wrap(domainagg.CodeValidation, op, err)
	case errors.Is(err, ErrInvariant):
		return domainagg.Wrap(domainagg.CodeInvariantViolation, op, err)
	case errors.Is(err, ErrConflict):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case errors.Is(err, ErrRetryable):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.Wrap(domainagg.CodeNotFound, op, err)
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, sql.ErrConnDone):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return domainagg.Wrap(domainagg.CodePreconditionFailed, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return domainagg.Wrap(domainagg.CodeConflict, op, err) // unique_violation
		case "23503":
			return domainagg.Wrap(domainagg.CodePreconditionFailed, op, err) // foreign_key_violation
		case "23502", "22P02", "22001", "22003":
			return domainagg.Wrap(domainagg.CodeValidation, op, err) // not_null/invalid_text/too_long/out_of_range
		case "40001", "40P01", "55P03", "57014":
			return domainagg.Wrap(domainagg.CodeRetryable, op, err) // serialization/deadlock/lock_not_available/query_canceled
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "already exists"),
		strings.Contains(msg, "unique constraint failed"):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case strings.Contains(msg, "foreign key constraint failed"):
		return domainagg.Wrap(domainagg.CodePreconditionFailed, op, err)
	case strings.Contains(msg, "not null constraint failed"):
		return domainagg.Wrap(domainagg.CodeValidation, op, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "temporar"):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	default:
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
}
