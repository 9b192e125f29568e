package aggregates

import (
	"context"
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/fieldsales-backend/internal/data/repos"
	"github.com/yungbote/fieldsales-backend/internal/domain"
	"github.com/yungbote/fieldsales-backend/internal/observability"
	"github.com/yungbote/fieldsales-backend/internal/platform/dbctx"
	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
)

const (
	paymentNumberPrefix = "PAY-"
	coolerCodePrefix    = "COOL-"
	coolerCodeLength    = 9
	coolerCodeAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// maxIdentifierAttempts bounds regeneration after a unique-key collision.
	maxIdentifierAttempts = 5
)

// PaymentNumberPrefix is the day prefix shared by every generated number, e.g. "PAY-20260314-".
func PaymentNumberPrefix(day time.Time) string {
	return paymentNumberPrefix + day.UTC().Format("20060102") + "-"
}

// FormatPaymentNumber renders PAY-YYYYMMDD-NNN with at least three sequence digits.
func FormatPaymentNumber(day time.Time, seq int) string {
	return fmt.Sprintf("%s%03d", PaymentNumberPrefix(day), seq)
}

// PaymentSequence yields the next per-day payment sequence.
type PaymentSequence interface {
	Next(dbc dbctx.Context, day time.Time) (int, error)
}

// DayCounter is an atomic per-day counter. seed is consulted once, when the
// day's counter does not exist yet, and returns the highest sequence already used.
type DayCounter interface {
	Incr(ctx context.Context, day string, seed func(ctx context.Context) (int64, error)) (int64, error)
}

type scanSequence struct {
	payments repos.PaymentRepo
}

// NewScanSequence derives the next sequence from the highest number stored for the day.
func NewScanSequence(payments repos.PaymentRepo) PaymentSequence {
	return scanSequence{payments: payments}
}

func (s scanSequence) Next(dbc dbctx.Context, day time.Time) (int, error) {
	hi, err := s.highest(dbc, day)
	if err != nil {
		return 0, err
	}
	return hi + 1, nil
}

func (s scanSequence) highest(dbc dbctx.Context, day time.Time) (int, error) {
	prefix := PaymentNumberPrefix(day)
	numbers, err := s.payments.NumbersWithPrefix(dbc, prefix)
	if err != nil {
		return 0, err
	}
	hi := 0
	for _, n := range numbers {
		if seq, ok := parsePaymentSequence(prefix, n); ok && seq > hi {
			hi = seq
		}
	}
	return hi, nil
}

// parsePaymentSequence reads NNN out of PAY-YYYYMMDD-NNN[-SSSS].
func parsePaymentSequence(prefix, number string) (int, bool) {
	rest, ok := strings.CutPrefix(number, prefix)
	if !ok {
		return 0, false
	}
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		rest = rest[:i]
	}
	seq, err := strconv.Atoi(rest)
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}

type counterSequence struct {
	counter DayCounter
	scan    scanSequence
	log     *logger.Logger
}

// NewCounterSequence draws sequences from an atomic counter seeded by the
// day's scan. Counter failures fall back to the scan.
func NewCounterSequence(counter DayCounter, payments repos.PaymentRepo, log *logger.Logger) PaymentSequence {
	if log == nil {
		log = logger.Nop()
	}
	return counterSequence{
		counter: counter,
		scan:    scanSequence{payments: payments},
		log:     log.With("component", "PaymentCounterSequence"),
	}
}

func (s counterSequence) Next(dbc dbctx.Context, day time.Time) (int, error) {
	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	n, err := s.counter.Incr(ctx, day.UTC().Format("20060102"), func(context.Context) (int64, error) {
		hi, err := s.scan.highest(dbc, day)
		return int64(hi), err
	})
	if err != nil {
		s.log.Warn("Payment counter unavailable, falling back to scan", "error", err)
		return s.scan.Next(dbc, day)
	}
	return int(n), nil
}

type paymentNumbers struct {
	payments repos.PaymentRepo
	seq      PaymentSequence
	now      func() time.Time
	hooks    Hooks
}

// candidate proposes a number for day. A number already taken gets a
// four-digit timestamp suffix.
func (p paymentNumbers) candidate(dbc dbctx.Context) (string, error) {
	now := p.now().UTC()
	seq, err := p.seq.Next(dbc, now)
	if err != nil {
		return "", err
	}
	number := FormatPaymentNumber(now, seq)
	taken, err := p.payments.NumberExists(dbc, number)
	if err != nil {
		return "", err
	}
	if taken {
		number = fmt.Sprintf("%s-%04d", number, now.UnixMilli()%10000)
	}
	return number, nil
}

// insert stores row under a freshly generated number. The unique index is
// the arbiter: a lost race regenerates and tries again.
func (p paymentNumbers) insert(dbc dbctx.Context, row *domain.Payment) error {
	for attempt := 0; attempt < maxIdentifierAttempts; attempt++ {
		number, err := p.candidate(dbc)
		if err != nil {
			return err
		}
		row.ID = 0
		row.PaymentNumber = number
		inserted, err := p.payments.InsertIfAbsent(dbc, row)
		if err != nil {
			return err
		}
		if inserted {
			return nil
		}
		p.hooks.IncIdentifierCollision(IdentifierPaymentNumber)
	}
	return ConflictError("could not allocate a unique payment number after %d attempts", maxIdentifierAttempts)
}

// GenerateCoolerCode returns COOL- followed by nine random A-Z0-9 characters.
func GenerateCoolerCode() (string, error) {
	const limit = 252 // largest multiple of 36 below 256
	out := make([]byte, 0, coolerCodeLength)
	buf := make([]byte, 16)
	for len(out) < coolerCodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, coolerCodeAlphabet[int(b)%len(coolerCodeAlphabet)])
			if len(out) == coolerCodeLength {
				break
			}
		}
	}
	return coolerCodePrefix + string(out), nil
}

type meteredSequence struct {
	inner   PaymentSequence
	source  string
	metrics *observability.Metrics
}

// WithSequenceMetrics counts Next outcomes of seq under source.
func WithSequenceMetrics(seq PaymentSequence, source string, metrics *observability.Metrics) PaymentSequence {
	if metrics == nil {
		return seq
	}
	return meteredSequence{inner: seq, source: source, metrics: metrics}
}

func (s meteredSequence) Next(dbc dbctx.Context, day time.Time) (int, error) {
	n, err := s.inner.Next(dbc, day)
	if err != nil {
		s.metrics.IncPaymentSequence(s.source, "error")
		return 0, err
	}
	s.metrics.IncPaymentSequence(s.source, "success")
	return n, nil
}
