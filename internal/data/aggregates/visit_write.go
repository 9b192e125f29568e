package aggregates

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yungbote/fieldsales-backend/internal/domain"
	domainagg "github.com/yungbote/fieldsales-backend/internal/domain/aggregates"
	"github.com/yungbote/fieldsales-backend/internal/platform/dbctx"
)

const (
	defaultOrderStatus   = "draft"
	defaultPaymentStatus = "completed"
	defaultPaymentMethod = "cash"
)

// visitWrite is the state of one Upsert call inside its transaction.
type visitWrite struct {
	deps    VisitAggregateDeps
	dbc     dbctx.Context
	now     time.Time
	numbers paymentNumbers
}

func (w *visitWrite) upsertVisit(p domainagg.VisitPatch, media map[domain.MediaSlot]*string) (*domain.Visit, bool, map[domain.MediaSlot]*string, error) {
	visits := w.deps.Repos.Visits
	if id, ok := p.ID.Positive(); ok {
		existing, err := visits.GetByID(w.dbc, id)
		if err != nil {
			return nil, false, nil, err
		}
		if existing == nil {
			return nil, false, nil, NotFoundError("visit %d not found", id)
		}
		if p.CustomerID.Set && p.CustomerID.Value == nil {
			return nil, false, nil, ValidationError("customer_id cannot be cleared")
		}
		if p.SalesPersonID.Set && p.SalesPersonID.Value == nil {
			return nil, false, nil, ValidationError("sales_person_id cannot be cleared")
		}

		fields := visitFields(p)
		var previous map[domain.MediaSlot]*string
		for _, slot := range domain.MediaSlots {
			urls, ok := media[slot]
			if !ok || urls == nil {
				continue
			}
			fields[string(slot)] = *urls
			if prior := existing.Media(slot); prior != nil {
				if previous == nil {
					previous = map[domain.MediaSlot]*string{}
				}
				previous[slot] = prior
			}
		}
		if _, ok := fields["updated_by"]; !ok {
			fields["updated_by"] = p.SalesPersonID.Or(existing.SalesPersonID)
		}
		fields["updated_at"] = w.now
		if err := visits.UpdateFields(w.dbc, id, fields); err != nil {
			return nil, false, nil, err
		}
		updated, err := visits.GetByID(w.dbc, id)
		if err != nil {
			return nil, false, nil, err
		}
		if updated == nil {
			return nil, false, nil, NotFoundError("visit %d not found", id)
		}
		return updated, false, previous, nil
	}

	customerID, ok := p.CustomerID.Positive()
	if !ok {
		return nil, false, nil, ValidationError("customer_id is required")
	}
	salesPersonID, ok := p.SalesPersonID.Positive()
	if !ok {
		return nil, false, nil, ValidationError("sales_person_id is required")
	}
	createdBy := p.CreatedBy.Or(salesPersonID)
	updatedBy := p.UpdatedBy.Or(salesPersonID)
	row := &domain.Visit{
		CustomerID:      customerID,
		SalesPersonID:   salesPersonID,
		RouteID:         p.RouteID.Value,
		ZoneID:          p.ZoneID.Value,
		VisitDate:       p.VisitDate.Value,
		StartTime:       p.StartTime.Value,
		EndTime:         p.EndTime.Value,
		CheckInTime:     p.CheckInTime.Value,
		CheckOutTime:    p.CheckOutTime.Value,
		Latitude:        p.Latitude.Value,
		Longitude:       p.Longitude.Value,
		AmountCollected: p.AmountCollected.Null(),
		Purpose:         p.Purpose.Value,
		Status:          p.Status.Value,
		VisitNotes:      p.VisitNotes.Value,
		SelfImages:      media[domain.MediaSlotSelf],
		CustomerImages:  media[domain.MediaSlotCustomer],
		CoolerImages:    media[domain.MediaSlotCooler],
		IsActive:        p.IsActive.Or(true),
		CreatedBy:       &createdBy,
		CreatedAt:       w.now,
		UpdatedBy:       &updatedBy,
		UpdatedAt:       w.now,
	}
	if row.VisitDate == nil {
		row.VisitDate = &w.now
	}
	if err := visits.Create(w.dbc, row); err != nil {
		return nil, false, nil, err
	}
	return row, true, nil, nil
}

func (w *visitWrite) upsertOrders(visit *domain.Visit, orders []domainagg.OrderPatch, touched *touchedRows) error {
	for i, p := range orders {
		id, err := w.upsertOrder(visit, p)
		if err != nil {
			return domainagg.AtPath(fmt.Sprintf("orders[%d]", i), err)
		}
		touched.orders = append(touched.orders, id)
	}
	return nil
}

func (w *visitWrite) upsertOrder(visit *domain.Visit, p domainagg.OrderPatch) (uint, error) {
	orders := w.deps.Repos.Orders
	if id, ok := p.ID.Positive(); ok {
		existing, err := orders.GetByID(w.dbc, id)
		if err != nil {
			return 0, err
		}
		if existing == nil {
			return 0, NotFoundError("order %d not found", id)
		}
		for j, ip := range p.Items {
			if err := w.upsertOrderItem(existing.ID, ip); err != nil {
				return 0, domainagg.AtPath(fmt.Sprintf("items[%d]", j), err)
			}
		}

		fields := orderFields(p)
		fields["customer_id"] = visit.CustomerID
		fields["sales_person_id"] = visit.SalesPersonID
		fields["visit_id"] = visit.ID
		fields["updated_by"] = visit.SalesPersonID
		fields["updated_at"] = w.now
		if len(p.Items) > 0 && (!p.Subtotal.Set || !p.TotalAmount.Set) {
			items, err := w.deps.Repos.OrderItems.GetByOrderIDs(w.dbc, []uint{existing.ID})
			if err != nil {
				return 0, err
			}
			subtotal := sumItemTotals(items)
			if !p.Subtotal.Set {
				fields["subtotal"] = subtotal
			}
			if !p.TotalAmount.Set {
				fields["total_amount"] = orderTotal(
					decimalOr(fields, "subtotal", existing.Subtotal),
					decimalOr(fields, "discount_amount", existing.DiscountAmount),
					decimalOr(fields, "tax_amount", existing.TaxAmount),
					decimalOr(fields, "shipping_amount", existing.ShippingAmount),
				)
			}
		}
		if err := orders.UpdateFields(w.dbc, existing.ID, fields); err != nil {
			return 0, err
		}
		return existing.ID, nil
	}

	items := make([]*domain.OrderItem, 0, len(p.Items))
	for j, ip := range p.Items {
		if id, ok := ip.ID.Positive(); ok {
			return 0, domainagg.AtPath(fmt.Sprintf("items[%d]", j), ValidationError("item %d cannot be attached to a new order", id))
		}
		item, err := w.newOrderItem(ip)
		if err != nil {
			return 0, domainagg.AtPath(fmt.Sprintf("items[%d]", j), err)
		}
		items = append(items, item)
	}

	salesPersonID := visit.SalesPersonID
	visitID := visit.ID
	row := &domain.Order{
		OrderNumber:    p.OrderNumber.Value,
		CustomerID:     visit.CustomerID,
		SalesPersonID:  salesPersonID,
		VisitID:        &visitID,
		OrderType:      p.OrderType.Value,
		OrderDate:      p.OrderDate.Or(w.now),
		DeliveryDate:   p.DeliveryDate.Value,
		Status:         p.Status.Or(defaultOrderStatus),
		Priority:       p.Priority.Value,
		DiscountAmount: p.DiscountAmount.Or(decimal.Zero),
		TaxAmount:      p.TaxAmount.Or(decimal.Zero),
		ShippingAmount: p.ShippingAmount.Or(decimal.Zero),
		Notes:          p.Notes.Value,
		IsActive:       true,
		CreatedBy:      &salesPersonID,
		CreatedAt:      w.now,
		UpdatedBy:      &salesPersonID,
		UpdatedAt:      w.now,
	}
	row.Subtotal = p.Subtotal.Or(sumItemTotals(items))
	row.TotalAmount = p.TotalAmount.Or(orderTotal(row.Subtotal, row.DiscountAmount, row.TaxAmount, row.ShippingAmount))
	if err := orders.Create(w.dbc, row); err != nil {
		return 0, err
	}
	for _, item := range items {
		item.OrderID = row.ID
	}
	if err := w.deps.Repos.OrderItems.Create(w.dbc, items); err != nil {
		return 0, domainagg.AtPath("items", err)
	}
	return row.ID, nil
}

func (w *visitWrite) upsertOrderItem(orderID uint, p domainagg.OrderItemPatch) error {
	items := w.deps.Repos.OrderItems
	id, ok := p.ID.Positive()
	if !ok {
		item, err := w.newOrderItem(p)
		if err != nil {
			return err
		}
		item.OrderID = orderID
		return items.Create(w.dbc, []*domain.OrderItem{item})
	}

	existing, err := items.GetByID(w.dbc, id)
	if err != nil {
		return err
	}
	if existing == nil || existing.OrderID != orderID {
		return NotFoundError("order item %d not found on order %d", id, orderID)
	}
	fields := orderItemFields(p)
	if !p.TotalAmount.Set && (p.Quantity.Set || p.UnitPrice.Set || p.DiscountAmount.Set || p.TaxAmount.Set) {
		fields["total_amount"] = domain.LineTotal(
			decimalOr(fields, "quantity", existing.Quantity),
			decimalOr(fields, "unit_price", existing.UnitPrice),
			decimalOr(fields, "discount_amount", existing.DiscountAmount),
			decimalOr(fields, "tax_amount", existing.TaxAmount),
		)
	}
	fields["updated_at"] = w.now
	return items.UpdateFields(w.dbc, id, fields)
}

func (w *visitWrite) newOrderItem(p domainagg.OrderItemPatch) (*domain.OrderItem, error) {
	productID, ok := p.ProductID.Positive()
	if !ok {
		return nil, ValidationError("product_id is required")
	}
	if p.Quantity.Value == nil {
		return nil, ValidationError("quantity is required")
	}
	if p.UnitPrice.Value == nil {
		return nil, ValidationError("unit_price is required")
	}
	item := &domain.OrderItem{
		ProductID:      productID,
		Quantity:       *p.Quantity.Value,
		UnitPrice:      *p.UnitPrice.Value,
		DiscountAmount: p.DiscountAmount.Or(decimal.Zero),
		TaxAmount:      p.TaxAmount.Or(decimal.Zero),
		Notes:          p.Notes.Value,
		CreatedAt:      w.now,
		UpdatedAt:      w.now,
	}
	item.TotalAmount = p.TotalAmount.Or(domain.LineTotal(item.Quantity, item.UnitPrice, item.DiscountAmount, item.TaxAmount))
	return item, nil
}

func sumItemTotals(items []*domain.OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.TotalAmount)
	}
	return sum
}

func orderTotal(subtotal, discount, tax, shipping decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(discount).Add(tax).Add(shipping).Round(2)
}

func (w *visitWrite) upsertPayments(visit *domain.Visit, payments []domainagg.PaymentPatch, touched *touchedRows) error {
	for i, p := range payments {
		id, err := w.upsertPayment(visit, p)
		if err != nil {
			return domainagg.AtPath(fmt.Sprintf("payments[%d]", i), err)
		}
		touched.payments = append(touched.payments, id)
	}
	return nil
}

func (w *visitWrite) upsertPayment(visit *domain.Visit, p domainagg.PaymentPatch) (uint, error) {
	payments := w.deps.Repos.Payments
	if id, ok := p.ID.Positive(); ok {
		existing, err := payments.GetByID(w.dbc, id)
		if err != nil {
			return 0, err
		}
		if existing == nil {
			return 0, NotFoundError("payment %d not found", id)
		}
		fields := paymentFields(p)
		fields["visit_id"] = visit.ID
		fields["updated_by"] = visit.SalesPersonID
		fields["updated_at"] = w.now
		if err := payments.UpdateFields(w.dbc, id, fields); err != nil {
			return 0, err
		}
		return id, nil
	}

	number := p.PaymentNumber.Or("")
	if number != "" {
		existing, err := payments.GetByNumber(w.dbc, number)
		if err != nil {
			return 0, err
		}
		if existing == nil && p.TotalAmount.Value == nil {
			return 0, ValidationError("total_amount is required")
		}
		row := w.newPayment(visit, p)
		row.PaymentNumber = number
		fields := paymentFields(p)
		fields["visit_id"] = visit.ID
		fields["updated_by"] = visit.SalesPersonID
		fields["updated_at"] = w.now
		stored, err := payments.UpsertByNumber(w.dbc, row, fields)
		if err != nil {
			return 0, err
		}
		if stored == nil {
			return 0, InvariantError("payment %s vanished after upsert", number)
		}
		return stored.ID, nil
	}

	if p.TotalAmount.Value == nil {
		return 0, ValidationError("total_amount is required")
	}
	row := w.newPayment(visit, p)
	if err := w.numbers.insert(w.dbc, row); err != nil {
		return 0, err
	}
	return row.ID, nil
}

// newPayment builds the row inserted for p when no stored payment matches.
func (w *visitWrite) newPayment(visit *domain.Visit, p domainagg.PaymentPatch) *domain.Payment {
	salesPersonID := visit.SalesPersonID
	visitID := visit.ID
	total := decimal.Zero
	if p.TotalAmount.Value != nil {
		total = *p.TotalAmount.Value
	}
	return &domain.Payment{
		CustomerID:      p.CustomerID.Or(visit.CustomerID),
		VisitID:         &visitID,
		PaymentDate:     p.PaymentDate.Or(w.now),
		CollectedBy:     p.CollectedBy.Or(salesPersonID),
		Method:          p.Method.Or(defaultPaymentMethod),
		ReferenceNumber: p.ReferenceNumber.Value,
		TotalAmount:     total,
		CurrencyID:      p.CurrencyID.Value,
		Notes:           p.Notes.Value,
		Status:          p.Status.Or(defaultPaymentStatus),
		IsActive:        true,
		CreatedBy:       &salesPersonID,
		CreatedAt:       w.now,
		UpdatedBy:       &salesPersonID,
		UpdatedAt:       w.now,
	}
}

func (w *visitWrite) upsertInspections(visit *domain.Visit, inspections []domainagg.CoolerInspectionPatch, touched *touchedRows) error {
	for i, p := range inspections {
		id, err := w.upsertInspection(visit, p)
		if err != nil {
			return domainagg.AtPath(fmt.Sprintf("cooler_inspections[%d]", i), err)
		}
		touched.inspections = append(touched.inspections, id)
	}
	return nil
}

func (w *visitWrite) upsertInspection(visit *domain.Visit, p domainagg.CoolerInspectionPatch) (uint, error) {
	var coolerID uint
	switch {
	case p.Cooler != nil:
		id, err := w.resolveCooler(visit, *p.Cooler)
		if err != nil {
			return 0, domainagg.AtPath("cooler", err)
		}
		coolerID = id
	default:
		id, ok := p.CoolerID.Positive()
		if !ok {
			return 0, ValidationError("cooler_id or an inline cooler is required")
		}
		existing, err := w.deps.Repos.Coolers.GetByID(w.dbc, id)
		if err != nil {
			return 0, err
		}
		if existing == nil {
			return 0, NotFoundError("cooler %d not found", id)
		}
		coolerID = existing.ID
	}

	inspections := w.deps.Repos.CoolerInspections
	if id, ok := p.ID.Positive(); ok {
		existing, err := inspections.GetByID(w.dbc, id)
		if err != nil {
			return 0, err
		}
		if existing == nil {
			return 0, NotFoundError("cooler inspection %d not found", id)
		}
		fields := inspectionFields(p)
		fields["cooler_id"] = coolerID
		fields["visit_id"] = visit.ID
		fields["updated_by"] = visit.SalesPersonID
		fields["updated_at"] = w.now
		if err := inspections.UpdateFields(w.dbc, id, fields); err != nil {
			return 0, err
		}
		return id, nil
	}

	salesPersonID := visit.SalesPersonID
	inspectedBy := p.InspectedBy.Or(salesPersonID)
	row := &domain.CoolerInspection{
		CoolerID:        coolerID,
		VisitID:         visit.ID,
		InspectedBy:     &inspectedBy,
		InspectionDate:  p.InspectionDate.Or(w.now),
		Temperature:     p.Temperature.Value,
		IsWorking:       p.IsWorking.Value,
		Issues:          jsonColumn(p.Issues),
		ActionRequired:  p.ActionRequired.Value,
		ActionTaken:     p.ActionTaken.Value,
		NextServiceDate: p.NextServiceDate.Value,
		Notes:           p.Notes.Value,
		CreatedBy:       &salesPersonID,
		CreatedAt:       w.now,
		UpdatedBy:       &salesPersonID,
		UpdatedAt:       w.now,
	}
	if err := inspections.Create(w.dbc, row); err != nil {
		return 0, err
	}
	return row.ID, nil
}

// resolveCooler updates the cooler named by id or code, or creates it.
func (w *visitWrite) resolveCooler(visit *domain.Visit, p domainagg.CoolerPatch) (uint, error) {
	coolers := w.deps.Repos.Coolers
	update := func(id uint) (uint, error) {
		fields := coolerFields(p)
		if len(fields) == 0 {
			return id, nil
		}
		fields["updated_by"] = visit.SalesPersonID
		fields["updated_at"] = w.now
		return id, coolers.UpdateFields(w.dbc, id, fields)
	}

	if id, ok := p.ID.Positive(); ok {
		existing, err := coolers.GetByID(w.dbc, id)
		if err != nil {
			return 0, err
		}
		if existing == nil {
			return 0, NotFoundError("cooler %d not found", id)
		}
		return update(existing.ID)
	}

	code := p.Code.Or("")
	if code != "" {
		existing, err := coolers.GetByCode(w.dbc, code)
		if err != nil {
			return 0, err
		}
		if existing != nil {
			return update(existing.ID)
		}
	}

	salesPersonID := visit.SalesPersonID
	customerID := p.CustomerID.Or(visit.CustomerID)
	row := &domain.Cooler{
		CustomerID:   &customerID,
		Brand:        p.Brand.Value,
		Model:        p.Model.Value,
		SerialNumber: p.SerialNumber.Value,
		Capacity:     p.Capacity.Value,
		InstallDate:  p.InstallDate.Value,
		Status:       p.Status.Value,
		IsActive:     p.IsActive.Or(true),
		CreatedBy:    &salesPersonID,
		CreatedAt:    w.now,
		UpdatedBy:    &salesPersonID,
		UpdatedAt:    w.now,
	}

	if code != "" {
		row.Code = code
		inserted, err := coolers.InsertIfAbsent(w.dbc, row)
		if err != nil {
			return 0, err
		}
		if inserted {
			return row.ID, nil
		}
		// created concurrently under the same code
		existing, err := coolers.GetByCode(w.dbc, code)
		if err != nil {
			return 0, err
		}
		if existing == nil {
			return 0, ConflictError("cooler code %s is taken", code)
		}
		return update(existing.ID)
	}

	for attempt := 0; attempt < maxIdentifierAttempts; attempt++ {
		generated, err := w.deps.CoolerCode()
		if err != nil {
			return 0, err
		}
		row.ID = 0
		row.Code = generated
		inserted, err := coolers.InsertIfAbsent(w.dbc, row)
		if err != nil {
			return 0, err
		}
		if inserted {
			return row.ID, nil
		}
		w.deps.Base.Hooks.IncIdentifierCollision(IdentifierCoolerCode)
	}
	return 0, ConflictError("could not allocate a unique cooler code after %d attempts", maxIdentifierAttempts)
}

func (w *visitWrite) upsertSurveys(visit *domain.Visit, blocks domainagg.SurveyBlocks, touched *touchedRows) error {
	for i, p := range blocks {
		id, err := w.upsertSurvey(visit, p)
		if err != nil {
			return domainagg.AtPath(fmt.Sprintf("survey[%d]", i), err)
		}
		touched.responses = append(touched.responses, id)
	}
	return nil
}

func (w *visitWrite) upsertSurvey(visit *domain.Visit, p domainagg.SurveyBlock) (uint, error) {
	responses := w.deps.Repos.SurveyResponses
	var responseID uint
	if id, ok := p.ID.Positive(); ok {
		existing, err := responses.GetByID(w.dbc, id)
		if err != nil {
			return 0, err
		}
		if existing == nil {
			return 0, NotFoundError("survey response %d not found", id)
		}
		fields := surveyResponseFields(p)
		fields["visit_id"] = visit.ID
		fields["updated_at"] = w.now
		if err := responses.UpdateFields(w.dbc, id, fields); err != nil {
			return 0, err
		}
		responseID = id
	} else {
		surveyID, ok := p.SurveyID.Positive()
		if !ok {
			return 0, ValidationError("survey_id is required")
		}
		customerID := p.CustomerID.Or(visit.CustomerID)
		submittedBy := p.SubmittedBy.Or(visit.SalesPersonID)
		row := &domain.SurveyResponse{
			SurveyID:    surveyID,
			VisitID:     visit.ID,
			CustomerID:  &customerID,
			SubmittedBy: &submittedBy,
			SubmittedAt: p.SubmittedAt.Or(w.now),
			Location:    p.Location.Value,
			Notes:       p.Notes.Value,
			CreatedAt:   w.now,
			UpdatedAt:   w.now,
		}
		if err := responses.Create(w.dbc, row); err != nil {
			return 0, err
		}
		responseID = row.ID
	}

	for j, ap := range p.Answers {
		if err := w.upsertAnswer(responseID, ap); err != nil {
			return 0, domainagg.AtPath(fmt.Sprintf("answers[%d]", j), err)
		}
	}
	return responseID, nil
}

func (w *visitWrite) upsertAnswer(responseID uint, p domainagg.SurveyAnswerPatch) error {
	answers := w.deps.Repos.SurveyAnswers
	if id, ok := p.ID.Positive(); ok {
		existing, err := answers.GetByID(w.dbc, id)
		if err != nil {
			return err
		}
		if existing == nil || existing.ResponseID != responseID {
			return NotFoundError("survey answer %d not found on response %d", id, responseID)
		}
		fields := surveyAnswerFields(p)
		fields["updated_at"] = w.now
		return answers.UpdateFields(w.dbc, id, fields)
	}
	fieldID, ok := p.FieldID.Positive()
	if !ok {
		return ValidationError("field_id is required")
	}
	return answers.Create(w.dbc, &domain.SurveyAnswer{
		ResponseID: responseID,
		FieldID:    fieldID,
		Answer:     p.Answer.Value,
		CreatedAt:  w.now,
		UpdatedAt:  w.now,
	})
}
