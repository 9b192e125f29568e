package aggregates

import (
	"context"
	"time"

	"github.com/yungbote/fieldsales-backend/internal/data/repos"
	"github.com/yungbote/fieldsales-backend/internal/domain"
	domainagg "github.com/yungbote/fieldsales-backend/internal/domain/aggregates"
	"github.com/yungbote/fieldsales-backend/internal/platform/dbctx"
)

type VisitAggregateDeps struct {
	Base BaseDeps

	Repos repos.VisitRepos

	// PaymentSequence defaults to the day scan over stored payment numbers.
	PaymentSequence PaymentSequence
	// CoolerCode defaults to GenerateCoolerCode.
	CoolerCode func() (string, error)
	Now        func() time.Time
}

type visitAggregate struct {
	deps VisitAggregateDeps
}

func NewVisitAggregate(deps VisitAggregateDeps) domainagg.VisitAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.PaymentSequence == nil {
		deps.PaymentSequence = NewScanSequence(deps.Repos.Payments)
	}
	if deps.CoolerCode == nil {
		deps.CoolerCode = GenerateCoolerCode
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &visitAggregate{deps: deps}
}

func (a *visitAggregate) Contract() domainagg.Contract {
	return domainagg.VisitAggregateContract
}

func (a *visitAggregate) configured() bool {
	r := a.deps.Repos
	return r.Visits != nil && r.Orders != nil && r.OrderItems != nil && r.Payments != nil &&
		r.Coolers != nil && r.CoolerInspections != nil && r.SurveyResponses != nil && r.SurveyAnswers != nil
}

func (a *visitAggregate) Upsert(ctx context.Context, in domainagg.UpsertVisitInput) (domainagg.UpsertVisitResult, error) {
	op := a.Contract().UpsertOp
	var out domainagg.UpsertVisitResult
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "visit aggregate repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		w := &visitWrite{
			deps: a.deps,
			dbc:  dbc,
			now:  a.deps.Now().UTC(),
			numbers: paymentNumbers{
				payments: a.deps.Repos.Payments,
				seq:      a.deps.PaymentSequence,
				now:      a.deps.Now,
				hooks:    a.deps.Base.Hooks,
			},
		}

		visit, created, previous, err := w.upsertVisit(in.Visit, in.Media)
		if err != nil {
			return domainagg.AtPath("visit", err)
		}
		touched := &touchedRows{}
		if err := w.upsertOrders(visit, in.Orders, touched); err != nil {
			return err
		}
		if err := w.upsertPayments(visit, in.Payments, touched); err != nil {
			return err
		}
		if err := w.upsertInspections(visit, in.CoolerInspections, touched); err != nil {
			return err
		}
		if err := w.upsertSurveys(visit, in.Survey, touched); err != nil {
			return err
		}

		view, err := a.loadView(dbc, visit.ID, touched)
		if err != nil {
			return err
		}
		out = domainagg.UpsertVisitResult{
			Created:       created,
			View:          view,
			PreviousMedia: previous,
		}
		return nil
	})
	if err != nil {
		return domainagg.UpsertVisitResult{}, err
	}
	return out, nil
}

func (a *visitAggregate) Get(ctx context.Context, visitID uint) (*domainagg.VisitView, error) {
	op := a.Contract().GetOp
	if !a.configured() {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "visit aggregate repos not configured", nil)
	}
	if visitID == 0 {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "visit id must be positive", nil)
	}
	view, err := a.loadView(dbctx.Context{Ctx: ctx}, visitID, nil)
	if err != nil {
		return nil, MapError(op, err)
	}
	return view, nil
}

// touchedRows records the child rows one upsert wrote. A nil *touchedRows
// means "everything linked to the visit".
type touchedRows struct {
	orders      []uint
	payments    []uint
	inspections []uint
	responses   []uint
}

func (a *visitAggregate) loadView(dbc dbctx.Context, visitID uint, touched *touchedRows) (*domainagg.VisitView, error) {
	r := a.deps.Repos
	visit, err := r.Visits.GetByID(dbc, visitID)
	if err != nil {
		return nil, err
	}
	if visit == nil {
		return nil, NotFoundError("visit %d not found", visitID)
	}

	var orders []*domain.Order
	var payments []*domain.Payment
	if touched == nil {
		if orders, err = r.Orders.GetByVisitID(dbc, visitID); err != nil {
			return nil, err
		}
		if payments, err = r.Payments.GetByVisitID(dbc, visitID); err != nil {
			return nil, err
		}
	} else {
		if orders, err = r.Orders.GetByIDs(dbc, touched.orders); err != nil {
			return nil, err
		}
		if payments, err = r.Payments.GetByIDs(dbc, touched.payments); err != nil {
			return nil, err
		}
	}
	if err := a.attachOrderItems(dbc, orders); err != nil {
		return nil, err
	}

	inspections, err := r.CoolerInspections.GetByVisitID(dbc, visitID)
	if err != nil {
		return nil, err
	}
	responses, err := r.SurveyResponses.GetByVisitID(dbc, visitID)
	if err != nil {
		return nil, err
	}
	if touched != nil {
		inspections = keepIDs(inspections, touched.inspections, func(x *domain.CoolerInspection) uint { return x.ID })
		responses = keepIDs(responses, touched.responses, func(x *domain.SurveyResponse) uint { return x.ID })
	}
	if err := a.attachCoolers(dbc, inspections); err != nil {
		return nil, err
	}
	if err := a.attachAnswers(dbc, responses); err != nil {
		return nil, err
	}

	return &domainagg.VisitView{
		VisitID:           visit.ID,
		Visit:             visit,
		Orders:            nonNil(orders),
		Payments:          nonNil(payments),
		CoolerInspections: nonNil(inspections),
		SurveyResponses:   nonNil(responses),
	}, nil
}

func (a *visitAggregate) attachOrderItems(dbc dbctx.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	items, err := a.deps.Repos.OrderItems.GetByOrderIDs(dbc, ids)
	if err != nil {
		return err
	}
	byOrder := make(map[uint][]*domain.OrderItem, len(orders))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	for _, o := range orders {
		o.Items = nonNil(byOrder[o.ID])
	}
	return nil
}

func (a *visitAggregate) attachCoolers(dbc dbctx.Context, inspections []*domain.CoolerInspection) error {
	if len(inspections) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(inspections))
	for _, in := range inspections {
		ids = append(ids, in.CoolerID)
	}
	coolers, err := a.deps.Repos.Coolers.GetByIDs(dbc, ids)
	if err != nil {
		return err
	}
	byID := make(map[uint]*domain.Cooler, len(coolers))
	for _, c := range coolers {
		byID[c.ID] = c
	}
	for _, in := range inspections {
		in.Cooler = byID[in.CoolerID]
	}
	return nil
}

func (a *visitAggregate) attachAnswers(dbc dbctx.Context, responses []*domain.SurveyResponse) error {
	if len(responses) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(responses))
	for _, r := range responses {
		ids = append(ids, r.ID)
	}
	answers, err := a.deps.Repos.SurveyAnswers.GetByResponseIDs(dbc, ids)
	if err != nil {
		return err
	}
	byResponse := make(map[uint][]*domain.SurveyAnswer, len(responses))
	for _, ans := range answers {
		byResponse[ans.ResponseID] = append(byResponse[ans.ResponseID], ans)
	}
	for _, r := range responses {
		r.Answers = nonNil(byResponse[r.ID])
	}
	return nil
}

func keepIDs[T any](rows []T, ids []uint, id func(T) uint) []T {
	want := make(map[uint]struct{}, len(ids))
	for _, x := range ids {
		want[x] = struct{}{}
	}
	out := make([]T, 0, len(ids))
	for _, row := range rows {
		if _, ok := want[id(row)]; ok {
			out = append(out, row)
		}
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
