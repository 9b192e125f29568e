package aggregates

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yungbote/fieldsales-backend/internal/observability"
	"github.com/yungbote/fieldsales-backend/internal/platform/dbctx"
)

func TestFormatPaymentNumber(t *testing.T) {
	day := time.Date(2026, 1, 2, 23, 59, 0, 0, time.UTC)
	if got := FormatPaymentNumber(day, 7); got != "PAY-20260102-007" {
		t.Fatalf("FormatPaymentNumber: got %s", got)
	}
	if got := FormatPaymentNumber(day, 1234); got != "PAY-20260102-1234" {
		t.Fatalf("FormatPaymentNumber wide: got %s", got)
	}
}

func TestParsePaymentSequence(t *testing.T) {
	prefix := "PAY-20260102-"
	cases := map[string]int{
		"PAY-20260102-001":      1,
		"PAY-20260102-042-5521": 42,
		"PAY-20260102-1000":     1000,
	}
	for in, want := range cases {
		got, ok := parsePaymentSequence(prefix, in)
		if !ok || got != want {
			t.Fatalf("parsePaymentSequence(%q): got %d ok=%v want %d", in, got, ok, want)
		}
	}
	for _, bad := range []string{"PAY-20260101-001", "PAY-20260102-abc", "manual-1"} {
		if _, ok := parsePaymentSequence(prefix, bad); ok {
			t.Fatalf("parsePaymentSequence(%q): expected no match", bad)
		}
	}
}

func TestGenerateCoolerCode(t *testing.T) {
	pattern := regexp.MustCompile(`^COOL-[A-Z0-9]{9}$`)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := GenerateCoolerCode()
		if err != nil {
			t.Fatalf("GenerateCoolerCode: %v", err)
		}
		if !pattern.MatchString(code) {
			t.Fatalf("GenerateCoolerCode: bad code %q", code)
		}
		if seen[code] {
			t.Fatalf("GenerateCoolerCode: repeated %q", code)
		}
		seen[code] = true
	}
}

type stubSequence struct {
	n   int
	err error
}

func (s stubSequence) Next(dbctx.Context, time.Time) (int, error) { return s.n, s.err }

func TestWithSequenceMetrics(t *testing.T) {
	if got := WithSequenceMetrics(stubSequence{n: 1}, "scan", nil); got != (stubSequence{n: 1}) {
		t.Fatalf("nil metrics should return the inner sequence, got %T", got)
	}

	reg := prometheus.NewRegistry()
	m := observability.New(reg, reg)
	ok := WithSequenceMetrics(stubSequence{n: 4}, "redis", m)
	if n, err := ok.Next(dbctx.Context{}, time.Now()); err != nil || n != 4 {
		t.Fatalf("Next: n=%d err=%v", n, err)
	}
	bad := WithSequenceMetrics(stubSequence{err: errors.New("down")}, "redis", m)
	if _, err := bad.Next(dbctx.Context{}, time.Now()); err == nil {
		t.Fatal("expected error")
	}

	n, err := promtest.GatherAndCount(reg, "fieldsales_payment_sequence_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected success and error series, got %d", n)
	}
}
