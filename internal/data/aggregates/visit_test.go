package aggregates_test

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/fieldsales-backend/internal/data/aggregates"
	aggtestutil "github.com/yungbote/fieldsales-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/fieldsales-backend/internal/data/repos"
	"github.com/yungbote/fieldsales-backend/internal/data/repos/testutil"
	"github.com/yungbote/fieldsales-backend/internal/domain"
	domainagg "github.com/yungbote/fieldsales-backend/internal/domain/aggregates"
	nz "github.com/yungbote/fieldsales-backend/internal/normalization"
	"github.com/yungbote/fieldsales-backend/internal/platform/dbctx"
)

var (
	fixedNow       = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	paymentPattern = regexp.MustCompile(`^PAY-20260314-\d{3,}$`)
	coolerPattern  = regexp.MustCompile(`^COOL-[A-Z0-9]{9}$`)
)

type visitFixture struct {
	db     *gorm.DB
	repos  repos.VisitRepos
	hooks  *aggtestutil.HooksRecorder
	runner *aggtestutil.InjectedTxRunner
	agg    domainagg.VisitAggregate
}

func newVisitFixture(t *testing.T) *visitFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	r := repos.NewVisitRepos(db, log)
	hooks := &aggtestutil.HooksRecorder{}
	runner := &aggtestutil.InjectedTxRunner{
		Inner: aggregates.NewBoundedTxRunner(db, aggregates.TxLimits{MaxWait: 2 * time.Second, Timeout: 10 * time.Second}),
	}
	agg := aggregates.NewVisitAggregate(aggregates.VisitAggregateDeps{
		Base:  aggregates.BaseDeps{DB: db, Log: log, Runner: runner, Hooks: hooks},
		Repos: r,
		Now:   func() time.Time { return fixedNow },
	})
	return &visitFixture{db: db, repos: r, hooks: hooks, runner: runner, agg: agg}
}

func (f *visitFixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func decodeInput(t *testing.T, raw string) domainagg.UpsertVisitInput {
	t.Helper()
	var item struct {
		Visit             domainagg.VisitPatch              `json:"visit"`
		Orders            []domainagg.OrderPatch            `json:"orders"`
		Payments          []domainagg.PaymentPatch          `json:"payments"`
		CoolerInspections []domainagg.CoolerInspectionPatch `json:"cooler_inspections"`
		Survey            domainagg.SurveyBlocks            `json:"survey"`
	}
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		t.Fatalf("decode input: %v", err)
	}
	return domainagg.UpsertVisitInput{
		Visit:             item.Visit,
		Orders:            item.Orders,
		Payments:          item.Payments,
		CoolerInspections: item.CoolerInspections,
		Survey:            item.Survey,
	}
}

func TestVisitUpsert_CreatesFullTree(t *testing.T) {
	f := newVisitFixture(t)
	ctx := context.Background()

	in := decodeInput(t, `{
		"visit": {"customer_id": "10", "sales_person_id": 2, "latitude": "", "visit_date": "2026-03-14 08:00:00"},
		"orders": [{"items": [
			{"product_id": 5, "quantity": "2", "unit_price": "3.50"},
			{"product_id": 6, "quantity": 1, "unit_price": 4, "discount_amount": "0.50", "tax_amount": "0.20"}
		]}],
		"payments": [{"method": "cash", "total_amount": 100}],
		"cooler_inspections": [{"cooler": {"brand": "Frigo"}, "is_working": true, "issues": ["door seal"]}],
		"survey": {"survey_id": 3, "answers": [{"field_id": 1, "answer": "yes"}]}
	}`)
	selfURL := "https://cdn.example.com/visits/self_images/2026/03/a.jpg"
	in.Media = map[domain.MediaSlot]*string{domain.MediaSlotSelf: &selfURL}

	res, err := f.agg.Upsert(ctx, in)
	require.NoError(t, err)
	require.True(t, res.Created)
	require.NotNil(t, res.View)
	require.Empty(t, res.PreviousMedia)

	v := res.View.Visit
	require.Equal(t, uint(10), v.CustomerID)
	require.True(t, v.IsActive)
	require.Nil(t, v.Latitude)
	require.NotNil(t, v.SelfImages)
	require.Equal(t, selfURL, *v.SelfImages)
	require.Nil(t, v.CustomerImages)
	require.Equal(t, uint(2), *v.CreatedBy)

	require.Len(t, res.View.Orders, 1)
	order := res.View.Orders[0]
	require.Equal(t, v.ID, *order.VisitID)
	require.Equal(t, uint(10), order.CustomerID)
	require.Len(t, order.Items, 2)
	require.True(t, order.Items[0].TotalAmount.Equal(decimal.RequireFromString("7")), "item total %s", order.Items[0].TotalAmount)
	require.True(t, order.Items[1].TotalAmount.Equal(decimal.RequireFromString("3.7")), "item total %s", order.Items[1].TotalAmount)
	require.True(t, order.Subtotal.Equal(decimal.RequireFromString("10.7")), "subtotal %s", order.Subtotal)
	require.True(t, order.TotalAmount.Equal(decimal.RequireFromString("10.7")), "total %s", order.TotalAmount)

	require.Len(t, res.View.Payments, 1)
	pay := res.View.Payments[0]
	require.Equal(t, "PAY-20260314-001", pay.PaymentNumber)
	require.Equal(t, uint(10), pay.CustomerID)
	require.Equal(t, uint(2), pay.CollectedBy)

	require.Len(t, res.View.CoolerInspections, 1)
	insp := res.View.CoolerInspections[0]
	require.NotNil(t, insp.Cooler)
	require.Regexp(t, coolerPattern, insp.Cooler.Code)
	require.Equal(t, insp.CoolerID, insp.Cooler.ID)
	require.JSONEq(t, `["door seal"]`, string(insp.Issues))

	require.Len(t, res.View.SurveyResponses, 1)
	require.Len(t, res.View.SurveyResponses[0].Answers, 1)

	require.Len(t, f.hooks.Operations, 1)
	require.Equal(t, "success", f.hooks.Operations[0].Status)
}

func TestVisitUpsert_UpdateGeneratesNextPaymentNumberAndReportsReplacedMedia(t *testing.T) {
	f := newVisitFixture(t)
	ctx := context.Background()

	oldURL := "https://cdn.example.com/old.jpg"
	first := decodeInput(t, `{"visit": {"customer_id": 1, "sales_person_id": 2}, "payments": [{"total_amount": 5}]}`)
	first.Media = map[domain.MediaSlot]*string{domain.MediaSlotCooler: &oldURL}
	created, err := f.agg.Upsert(ctx, first)
	require.NoError(t, err)

	newURL := "https://cdn.example.com/new.jpg"
	second := decodeInput(t, `{"payments": [{"collected_by": 2, "method": "cash", "total_amount": 100}]}`)
	second.Visit.ID = nz.ID(created.View.VisitID)
	second.Media = map[domain.MediaSlot]*string{domain.MediaSlotCooler: &newURL}
	updated, err := f.agg.Upsert(ctx, second)
	require.NoError(t, err)

	require.False(t, updated.Created)
	require.Equal(t, created.View.VisitID, updated.View.VisitID)
	require.Len(t, updated.View.Payments, 1)
	require.Regexp(t, paymentPattern, updated.View.Payments[0].PaymentNumber)
	require.Equal(t, "PAY-20260314-002", updated.View.Payments[0].PaymentNumber)
	require.Equal(t, newURL, *updated.View.Visit.CoolerImages)
	require.Equal(t, map[domain.MediaSlot]*string{domain.MediaSlotCooler: &oldURL}, updated.PreviousMedia)
	require.Equal(t, int64(1), f.count(t, &domain.Visit{}))
}

func TestVisitUpsert_FailureRollsBackWholeItem(t *testing.T) {
	f := newVisitFixture(t)
	ctx := context.Background()

	in := decodeInput(t, `{
		"visit": {"customer_id": 1, "sales_person_id": 2},
		"orders": [{"items": [{"product_id": 5, "quantity": 1, "unit_price": 1}]}],
		"payments": [{"total_amount": 5}, {"id": 999, "total_amount": 5}]
	}`)
	_, err := f.agg.Upsert(ctx, in)
	require.Error(t, err)
	require.True(t, domainagg.IsCode(err, domainagg.CodeNotFound), "code=%s err=%v", domainagg.CodeOf(err), err)
	require.Equal(t, "payments[1]", domainagg.PathOf(err))

	require.Zero(t, f.count(t, &domain.Visit{}))
	require.Zero(t, f.count(t, &domain.Order{}))
	require.Zero(t, f.count(t, &domain.OrderItem{}))
	require.Zero(t, f.count(t, &domain.Payment{}))
	require.Equal(t, 1, f.runner.RollbackCalls)
	require.Equal(t, string(domainagg.CodeNotFound), f.hooks.Operations[0].Status)
}

func TestVisitUpsert_CommitFailureLeavesNothingBehind(t *testing.T) {
	f := newVisitFixture(t)
	f.runner.FailCommit = errors.New("commit failed")

	_, err := f.agg.Upsert(context.Background(), decodeInput(t, `{
		"visit": {"customer_id": 1, "sales_person_id": 2},
		"cooler_inspections": [{"cooler": {"code": "COOL-ABCDEFGH1"}}]
	}`))
	require.Error(t, err)
	require.Zero(t, f.count(t, &domain.Visit{}))
	require.Zero(t, f.count(t, &domain.Cooler{}))
	require.Zero(t, f.count(t, &domain.CoolerInspection{}))
}

func TestVisitUpsert_Validation(t *testing.T) {
	f := newVisitFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		raw  string
		code domainagg.ErrorCode
		path string
	}{
		{"missing customer", `{"visit": {"sales_person_id": 2}}`, domainagg.CodeValidation, "visit"},
		{"missing sales person", `{"visit": {"customer_id": 2}}`, domainagg.CodeValidation, "visit"},
		{"unknown visit id", `{"visit": {"id": 42, "customer_id": 1}}`, domainagg.CodeNotFound, "visit"},
		{"inspection without cooler", `{"visit": {"customer_id": 1, "sales_person_id": 2}, "cooler_inspections": [{"temperature": 4}]}`, domainagg.CodeValidation, "cooler_inspections[0]"},
		{"inspection with unknown cooler", `{"visit": {"customer_id": 1, "sales_person_id": 2}, "cooler_inspections": [{"cooler_id": 77}]}`, domainagg.CodeNotFound, "cooler_inspections[0]"},
		{"item without product", `{"visit": {"customer_id": 1, "sales_person_id": 2}, "orders": [{"items": [{"quantity": 1, "unit_price": 1}]}]}`, domainagg.CodeValidation, "orders[0].items[0]"},
		{"payment without amount", `{"visit": {"customer_id": 1, "sales_person_id": 2}, "payments": [{"method": "cash"}]}`, domainagg.CodeValidation, "payments[0]"},
		{"answer without field", `{"visit": {"customer_id": 1, "sales_person_id": 2}, "survey": [{"survey_id": 1, "answers": [{"answer": "x"}]}]}`, domainagg.CodeValidation, "survey[0].answers[0]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.agg.Upsert(ctx, decodeInput(t, tc.raw))
			require.Error(t, err)
			require.Equal(t, tc.code, domainagg.CodeOf(err), "err=%v", err)
			require.Equal(t, tc.path, domainagg.PathOf(err))
		})
	}
	require.Zero(t, f.count(t, &domain.Visit{}))
}

func TestVisitUpsert_SuppliedPaymentNumberUpsertsByKey(t *testing.T) {
	f := newVisitFixture(t)
	ctx := context.Background()

	first, err := f.agg.Upsert(ctx, decodeInput(t, `{"visit": {"customer_id": 1, "sales_person_id": 2}, "payments": [{"payment_number": "PAY-X-1", "total_amount": 5}]}`))
	require.NoError(t, err)
	second := decodeInput(t, `{"payments": [{"payment_number": "PAY-X-1", "total_amount": 8, "method": "card"}]}`)
	second.Visit.ID = nz.ID(first.View.VisitID)
	res, err := f.agg.Upsert(ctx, second)
	require.NoError(t, err)

	require.Equal(t, int64(1), f.count(t, &domain.Payment{}))
	require.Len(t, res.View.Payments, 1)
	require.Equal(t, first.View.Payments[0].ID, res.View.Payments[0].ID)
	require.Equal(t, "card", res.View.Payments[0].Method)
	require.True(t, res.View.Payments[0].TotalAmount.Equal(decimal.NewFromInt(8)))
}

func TestVisitUpsert_PaymentByNumberKeepsUnsuppliedColumns(t *testing.T) {
	f := newVisitFixture(t)
	ctx := context.Background()

	first, err := f.agg.Upsert(ctx, decodeInput(t, `{
		"visit": {"customer_id": 1, "sales_person_id": 2},
		"payments": [{"payment_number": "PAY-KEEP-1", "total_amount": 5, "method": "card",
			"notes": "keep me", "reference_number": "REF-9", "currency_id": 3, "status": "pending"}]
	}`))
	require.NoError(t, err)
	original := first.View.Payments[0]

	second := decodeInput(t, `{"payments": [{"payment_number": "PAY-KEEP-1", "total_amount": 8}]}`)
	second.Visit.ID = nz.ID(first.View.VisitID)
	res, err := f.agg.Upsert(ctx, second)
	require.NoError(t, err)

	require.Len(t, res.View.Payments, 1)
	got := res.View.Payments[0]
	require.Equal(t, original.ID, got.ID)
	require.True(t, got.TotalAmount.Equal(decimal.NewFromInt(8)))
	require.Equal(t, "card", got.Method)
	require.Equal(t, "pending", got.Status)
	require.NotNil(t, got.Notes)
	require.Equal(t, "keep me", *got.Notes)
	require.NotNil(t, got.ReferenceNumber)
	require.Equal(t, "REF-9", *got.ReferenceNumber)
	require.NotNil(t, got.CurrencyID)
	require.Equal(t, uint(3), *got.CurrencyID)
	require.Equal(t, original.CustomerID, got.CustomerID)
	require.Equal(t, original.CollectedBy, got.CollectedBy)
	require.True(t, original.PaymentDate.Equal(got.PaymentDate))
}

func TestVisitUpsert_NewPaymentNumberRequiresTotal(t *testing.T) {
	f := newVisitFixture(t)
	_, err := f.agg.Upsert(context.Background(), decodeInput(t, `{
		"visit": {"customer_id": 1, "sales_person_id": 2},
		"payments": [{"payment_number": "PAY-NEW-1", "method": "card"}]
	}`))
	require.True(t, domainagg.IsCode(err, domainagg.CodeValidation), "err=%v", err)
	require.Zero(t, f.count(t, &domain.Payment{}))
}

func TestVisitUpsert_SuppliedCoolerCodeResolvesExistingCooler(t *testing.T) {
	f := newVisitFixture(t)
	ctx := context.Background()
	seeded := testutil.SeedCooler(t, ctx, f.db, "COOL-EXISTING1", 1)

	res, err := f.agg.Upsert(ctx, decodeInput(t, `{
		"visit": {"customer_id": 1, "sales_person_id": 2},
		"cooler_inspections": [{"cooler": {"code": "COOL-EXISTING1", "brand": "Polar"}}]
	}`))
	require.NoError(t, err)
	require.Equal(t, int64(1), f.count(t, &domain.Cooler{}))
	require.Equal(t, seeded.ID, res.View.CoolerInspections[0].CoolerID)
	require.Equal(t, "Polar", *res.View.CoolerInspections[0].Cooler.Brand)
}

func TestVisitUpsert_GeneratedCoolerCodeRetriesOnCollision(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	testutil.SeedCooler(t, context.Background(), db, "COOL-TAKEN0001", 1)

	codes := []string{"COOL-TAKEN0001", "COOL-FRESH0001"}
	hooks := &aggtestutil.HooksRecorder{}
	agg := aggregates.NewVisitAggregate(aggregates.VisitAggregateDeps{
		Base:  aggregates.BaseDeps{DB: db, Log: log, Hooks: hooks},
		Repos: repos.NewVisitRepos(db, log),
		CoolerCode: func() (string, error) {
			next := codes[0]
			codes = codes[1:]
			return next, nil
		},
		Now: func() time.Time { return fixedNow },
	})
	res, err := agg.Upsert(context.Background(), decodeInput(t, `{
		"visit": {"customer_id": 1, "sales_person_id": 2},
		"cooler_inspections": [{"cooler": {"brand": "Frigo"}}]
	}`))
	require.NoError(t, err)
	require.Equal(t, "COOL-FRESH0001", res.View.CoolerInspections[0].Cooler.Code)
	require.Equal(t, 1, hooks.Collisions[aggregates.IdentifierCoolerCode])
	require.Equal(t, []string{"success"}, hooks.Statuses())
}

func TestVisitUpsert_CollidingSequenceGetsTimestampSuffix(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	r := repos.NewVisitRepos(db, log)
	testutil.SeedPayment(t, context.Background(), db, "PAY-20260314-001", 1, 1)

	agg := aggregates.NewVisitAggregate(aggregates.VisitAggregateDeps{
		Base:            aggregates.BaseDeps{DB: db, Log: log},
		Repos:           r,
		PaymentSequence: fixedSequence(1),
		Now:             func() time.Time { return fixedNow },
	})
	res, err := agg.Upsert(context.Background(), decodeInput(t, `{"visit": {"customer_id": 1, "sales_person_id": 2}, "payments": [{"total_amount": 1}]}`))
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^PAY-20260314-001-\d{4}$`), res.View.Payments[0].PaymentNumber)
}

func TestVisitUpsert_ManyPaymentsInOneItemAreDistinct(t *testing.T) {
	f := newVisitFixture(t)
	res, err := f.agg.Upsert(context.Background(), decodeInput(t, `{
		"visit": {"customer_id": 1, "sales_person_id": 2},
		"payments": [{"total_amount": 1}, {"total_amount": 2}, {"total_amount": 3}]
	}`))
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, p := range res.View.Payments {
		require.Regexp(t, paymentPattern, p.PaymentNumber)
		require.False(t, seen[p.PaymentNumber], "duplicate %s", p.PaymentNumber)
		seen[p.PaymentNumber] = true
	}
	require.Len(t, seen, 3)
}

func TestVisitGet_ReturnsLinkedChildren(t *testing.T) {
	f := newVisitFixture(t)
	ctx := context.Background()
	res, err := f.agg.Upsert(ctx, decodeInput(t, `{
		"visit": {"customer_id": 1, "sales_person_id": 2},
		"orders": [{"total_amount": 4}],
		"payments": [{"total_amount": 4}]
	}`))
	require.NoError(t, err)

	view, err := f.agg.Get(ctx, res.View.VisitID)
	require.NoError(t, err)
	require.Len(t, view.Orders, 1)
	require.Len(t, view.Payments, 1)
	require.NotNil(t, view.CoolerInspections)

	_, err = f.agg.Get(ctx, res.View.VisitID+1)
	require.True(t, domainagg.IsCode(err, domainagg.CodeNotFound), "err=%v", err)
}

type fixedSequence int

func (s fixedSequence) Next(_ dbctx.Context, _ time.Time) (int, error) { return int(s), nil }
