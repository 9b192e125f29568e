package testutil

import (
	"testing"
	"time"

	"github.com/yungbote/fieldsales-backend/internal/data/aggregates"
)

func TestHooksRecorder_CapturesSignals(t *testing.T) {
	h := &HooksRecorder{}
	h.ObserveOperation("Field.Visit.Upsert", "success", 10*time.Millisecond)
	h.ObserveOperation("Field.Visit.Upsert", "conflict", time.Millisecond)
	h.IncConflict("Field.Visit.Upsert")
	h.IncRetry("Field.Visit.Upsert")
	h.IncIdentifierCollision(aggregates.IdentifierCoolerCode)
	h.IncIdentifierCollision(aggregates.IdentifierCoolerCode)

	if got := h.Statuses(); len(got) != 2 || got[0] != "success" || got[1] != "conflict" {
		t.Fatalf("unexpected statuses: %v", got)
	}
	if len(h.Conflicts) != 1 || len(h.Retries) != 1 {
		t.Fatalf("conflicts=%v retries=%v", h.Conflicts, h.Retries)
	}
	if h.Collisions[aggregates.IdentifierCoolerCode] != 2 || h.Collisions[aggregates.IdentifierPaymentNumber] != 0 {
		t.Fatalf("unexpected collisions: %v", h.Collisions)
	}
}
