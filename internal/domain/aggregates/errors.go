package aggregates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies a per-item failure of the visit pipeline.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeNotFound           ErrorCode = "not_found"
	CodeConflict           ErrorCode = "conflict"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeRetryable          ErrorCode = "retryable"
	CodeUploadFailed       ErrorCode = "upload_failed"
	CodeInternal           ErrorCode = "internal"
)

// Error is the canonical aggregate error wrapper.
//
// Path names the offending sub-record inside one batch item, for example
// "payments[1]" or "orders[0].items[2]", so a caller can fix and resend it.
type Error struct {
	Code    ErrorCode
	Op      string
	Path    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if op := strings.TrimSpace(e.Op); op != "" {
		b.WriteString(op)
	}
	if p := strings.TrimSpace(e.Path); p != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(p)
	}
	msg := strings.TrimSpace(e.Message)
	switch {
	case b.Len() > 0 && msg != "":
		return fmt.Sprintf("%s: %s (%s)", b.String(), msg, e.Code)
	case b.Len() > 0:
		return fmt.Sprintf("%s (%s)", b.String(), e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an aggregate error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with aggregate error semantics.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: code, Op: strings.TrimSpace(op), Path: existing.Path, Message: existing.Message, Cause: err}
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode checks whether err (or wrapped err) carries the given aggregate code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the outermost aggregate error code when available.
func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Code
}

// PathOf returns the innermost non-empty sub-record path carried by err.
func PathOf(err error) string {
	path := ""
	for err != nil {
		var aggErr *Error
		if !errors.As(err, &aggErr) {
			break
		}
		if aggErr.Path != "" {
			path = aggErr.Path
		}
		err = aggErr.Cause
	}
	return path
}

// MessageOf is the human message of err without op/code decoration.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var aggErr *Error
	if errors.As(err, &aggErr) && strings.TrimSpace(aggErr.Message) != "" {
		return aggErr.Message
	}
	return err.Error()
}

// AtPath scopes err to a sub-record. Nested calls prepend the parent path.
func AtPath(path string, err error) error {
	if err == nil {
		return nil
	}
	path = strings.TrimSpace(path)
	var aggErr *Error
	if errors.As(err, &aggErr) {
		joined := path
		if aggErr.Path != "" {
			joined = path + "." + aggErr.Path
		}
		return &Error{Code: aggErr.Code, Op: aggErr.Op, Path: joined, Message: aggErr.Message, Cause: aggErr.Cause}
	}
	return &Error{Path: path, Message: err.Error(), Cause: err}
}
