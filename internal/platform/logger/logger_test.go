package logger

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizesSensitiveFields(t *testing.T) {
	t.Setenv("LOG_REDACTION_ENABLED", "true")
	core, logs := observer.New(zapcore.InfoLevel)
	log := FromZap(zap.New(core))

	log.With("handler", "VisitHandler").Info("Customer contact",
		"authorization", "Bearer abc",
		"customer_phone", "+15550100",
		"visit_id", 7,
	)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["handler"] != "VisitHandler" || fields["visit_id"] != int64(7) {
		t.Fatalf("plain fields changed: %v", fields)
	}
	if fields["authorization"] == "Bearer abc" {
		t.Fatalf("authorization was not redacted: %v", fields["authorization"])
	}
	phone, _ := fields["customer_phone"].(string)
	if !strings.HasPrefix(phone, "hash:") {
		t.Fatalf("phone was not hashed: %v", fields["customer_phone"])
	}
}
