package visits

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yungbote/fieldsales-backend/internal/data/repos/testutil"
	"github.com/yungbote/fieldsales-backend/internal/domain"
	"github.com/yungbote/fieldsales-backend/internal/platform/dbctx"
)

func TestPaymentRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewPaymentRepo(db, testutil.Logger(t))

	visit := testutil.SeedVisit(t, ctx, tx, 5, 6)
	testutil.SeedPayment(t, ctx, tx, "PAY-20260101-001", visit.ID, 5)
	testutil.SeedPayment(t, ctx, tx, "PAY-20260101-002", visit.ID, 5)
	testutil.SeedPayment(t, ctx, tx, "PAY-20251231-009", visit.ID, 5)

	numbers, err := repo.NumbersWithPrefix(dbc, "PAY-20260101-")
	if err != nil {
		t.Fatalf("NumbersWithPrefix: %v", err)
	}
	sort.Strings(numbers)
	if len(numbers) != 2 || numbers[1] != "PAY-20260101-002" {
		t.Fatalf("NumbersWithPrefix: got %v", numbers)
	}

	exists, err := repo.NumberExists(dbc, "PAY-20260101-002")
	if err != nil || !exists {
		t.Fatalf("NumberExists: err=%v exists=%v", err, exists)
	}

	dup := &domain.Payment{
		PaymentNumber: "PAY-20260101-002",
		CustomerID:    5,
		PaymentDate:   time.Now().UTC(),
		CollectedBy:   6,
		Method:        "cash",
		TotalAmount:   decimal.NewFromInt(1),
		Status:        "completed",
		IsActive:      true,
	}
	inserted, err := repo.InsertIfAbsent(dbc, dup)
	if err != nil {
		t.Fatalf("InsertIfAbsent(dup): %v", err)
	}
	if inserted {
		t.Fatalf("InsertIfAbsent(dup): expected no insert")
	}

	fresh := *dup
	fresh.ID = 0
	fresh.PaymentNumber = "PAY-20260101-003"
	inserted, err = repo.InsertIfAbsent(dbc, &fresh)
	if err != nil || !inserted {
		t.Fatalf("InsertIfAbsent(fresh): err=%v inserted=%v", err, inserted)
	}

	seeded, err := repo.GetByNumber(dbc, "PAY-20260101-002")
	if err != nil || seeded == nil {
		t.Fatalf("GetByNumber(seeded): err=%v row=%v", err, seeded)
	}
	if err := repo.UpdateFields(dbc, seeded.ID, map[string]interface{}{
		"notes":            "keep me",
		"reference_number": "REF-9",
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	upd := *dup
	upd.ID = 0
	row, err := repo.UpsertByNumber(dbc, &upd, map[string]interface{}{
		"total_amount": decimal.RequireFromString("99.90"),
		"method":       "card",
	})
	if err != nil || row == nil {
		t.Fatalf("UpsertByNumber: err=%v row=%v", err, row)
	}
	if row.ID != seeded.ID || row.Method != "card" || !row.TotalAmount.Equal(decimal.RequireFromString("99.9")) {
		t.Fatalf("UpsertByNumber: supplied columns not applied: %+v", row)
	}
	if row.VisitID == nil || *row.VisitID != visit.ID {
		t.Fatalf("UpsertByNumber: visit_id lost: %v", row.VisitID)
	}
	if row.Notes == nil || *row.Notes != "keep me" || row.ReferenceNumber == nil || *row.ReferenceNumber != "REF-9" {
		t.Fatalf("UpsertByNumber: unsupplied columns changed: notes=%v ref=%v", row.Notes, row.ReferenceNumber)
	}

	brandNew := *dup
	brandNew.ID = 0
	brandNew.PaymentNumber = "PAY-20260101-004"
	row, err = repo.UpsertByNumber(dbc, &brandNew, map[string]interface{}{"method": "card"})
	if err != nil || row == nil || row.ID == 0 {
		t.Fatalf("UpsertByNumber(new): err=%v row=%v", err, row)
	}
	if row.Method != "cash" {
		t.Fatalf("UpsertByNumber(new): expected the inserted row as built, got method=%s", row.Method)
	}

	all, err := repo.GetByVisitID(dbc, visit.ID)
	if err != nil || len(all) != 3 {
		t.Fatalf("GetByVisitID: err=%v len=%d", err, len(all))
	}

	if missing, err := repo.GetByNumber(dbc, "PAY-19990101-001"); err != nil || missing != nil {
		t.Fatalf("GetByNumber(missing): err=%v row=%v", err, missing)
	}
}
