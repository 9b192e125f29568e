package aggregates

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	domainagg "github.com/yungbote/fieldsales-backend/internal/domain/aggregates"
	nz "github.com/yungbote/fieldsales-backend/internal/normalization"
)

// fieldSet collects the columns an update actually touches.
type fieldSet map[string]interface{}

// nullable writes the value, or NULL when the caller sent null/blank.
func nullable[T any](f fieldSet, col string, set bool, v *T) {
	if !set {
		return
	}
	if v == nil {
		f[col] = nil
		return
	}
	f[col] = *v
}

// required writes the value only when one was supplied; NOT NULL columns are
// never cleared.
func required[T any](f fieldSet, col string, set bool, v *T) {
	if set && v != nil {
		f[col] = *v
	}
}

func jsonColumn(o nz.OptionalJSON) datatypes.JSON {
	if len(o.Value) == 0 {
		return nil
	}
	return datatypes.JSON(o.Value)
}

func visitFields(p domainagg.VisitPatch) fieldSet {
	f := fieldSet{}
	required(f, "customer_id", p.CustomerID.Set, p.CustomerID.Value)
	required(f, "sales_person_id", p.SalesPersonID.Set, p.SalesPersonID.Value)
	nullable(f, "route_id", p.RouteID.Set, p.RouteID.Value)
	nullable(f, "zone_id", p.ZoneID.Set, p.ZoneID.Value)
	nullable(f, "visit_date", p.VisitDate.Set, p.VisitDate.Value)
	nullable(f, "start_time", p.StartTime.Set, p.StartTime.Value)
	nullable(f, "end_time", p.EndTime.Set, p.EndTime.Value)
	nullable(f, "check_in_time", p.CheckInTime.Set, p.CheckInTime.Value)
	nullable(f, "check_out_time", p.CheckOutTime.Set, p.CheckOutTime.Value)
	nullable(f, "latitude", p.Latitude.Set, p.Latitude.Value)
	nullable(f, "longitude", p.Longitude.Set, p.Longitude.Value)
	if p.AmountCollected.Set {
		f["amount_collected"] = p.AmountCollected.Null()
	}
	nullable(f, "purpose", p.Purpose.Set, p.Purpose.Value)
	nullable(f, "status", p.Status.Set, p.Status.Value)
	nullable(f, "visit_notes", p.VisitNotes.Set, p.VisitNotes.Value)
	required(f, "is_active", p.IsActive.Set, p.IsActive.Value)
	nullable(f, "updated_by", p.UpdatedBy.Set, p.UpdatedBy.Value)
	return f
}

func orderFields(p domainagg.OrderPatch) fieldSet {
	f := fieldSet{}
	nullable(f, "order_number", p.OrderNumber.Set, p.OrderNumber.Value)
	nullable(f, "order_type", p.OrderType.Set, p.OrderType.Value)
	required(f, "order_date", p.OrderDate.Set, p.OrderDate.Value)
	nullable(f, "delivery_date", p.DeliveryDate.Set, p.DeliveryDate.Value)
	required(f, "status", p.Status.Set, p.Status.Value)
	nullable(f, "priority", p.Priority.Set, p.Priority.Value)
	required(f, "subtotal", p.Subtotal.Set, p.Subtotal.Value)
	required(f, "discount_amount", p.DiscountAmount.Set, p.DiscountAmount.Value)
	required(f, "tax_amount", p.TaxAmount.Set, p.TaxAmount.Value)
	required(f, "shipping_amount", p.ShippingAmount.Set, p.ShippingAmount.Value)
	required(f, "total_amount", p.TotalAmount.Set, p.TotalAmount.Value)
	nullable(f, "notes", p.Notes.Set, p.Notes.Value)
	return f
}

func orderItemFields(p domainagg.OrderItemPatch) fieldSet {
	f := fieldSet{}
	required(f, "product_id", p.ProductID.Set, p.ProductID.Value)
	required(f, "quantity", p.Quantity.Set, p.Quantity.Value)
	required(f, "unit_price", p.UnitPrice.Set, p.UnitPrice.Value)
	required(f, "discount_amount", p.DiscountAmount.Set, p.DiscountAmount.Value)
	required(f, "tax_amount", p.TaxAmount.Set, p.TaxAmount.Value)
	required(f, "total_amount", p.TotalAmount.Set, p.TotalAmount.Value)
	nullable(f, "notes", p.Notes.Set, p.Notes.Value)
	return f
}

func paymentFields(p domainagg.PaymentPatch) fieldSet {
	f := fieldSet{}
	required(f, "payment_number", p.PaymentNumber.Set, p.PaymentNumber.Value)
	required(f, "customer_id", p.CustomerID.Set, p.CustomerID.Value)
	required(f, "payment_date", p.PaymentDate.Set, p.PaymentDate.Value)
	required(f, "collected_by", p.CollectedBy.Set, p.CollectedBy.Value)
	required(f, "method", p.Method.Set, p.Method.Value)
	nullable(f, "reference_number", p.ReferenceNumber.Set, p.ReferenceNumber.Value)
	required(f, "total_amount", p.TotalAmount.Set, p.TotalAmount.Value)
	nullable(f, "currency_id", p.CurrencyID.Set, p.CurrencyID.Value)
	nullable(f, "notes", p.Notes.Set, p.Notes.Value)
	required(f, "status", p.Status.Set, p.Status.Value)
	return f
}

func coolerFields(p domainagg.CoolerPatch) fieldSet {
	f := fieldSet{}
	required(f, "code", p.Code.Set, p.Code.Value)
	nullable(f, "customer_id", p.CustomerID.Set, p.CustomerID.Value)
	nullable(f, "brand", p.Brand.Set, p.Brand.Value)
	nullable(f, "model", p.Model.Set, p.Model.Value)
	nullable(f, "serial_number", p.SerialNumber.Set, p.SerialNumber.Value)
	nullable(f, "capacity", p.Capacity.Set, p.Capacity.Value)
	nullable(f, "install_date", p.InstallDate.Set, p.InstallDate.Value)
	nullable(f, "status", p.Status.Set, p.Status.Value)
	required(f, "is_active", p.IsActive.Set, p.IsActive.Value)
	return f
}

func inspectionFields(p domainagg.CoolerInspectionPatch) fieldSet {
	f := fieldSet{}
	nullable(f, "inspected_by", p.InspectedBy.Set, p.InspectedBy.Value)
	required(f, "inspection_date", p.InspectionDate.Set, p.InspectionDate.Value)
	nullable(f, "temperature", p.Temperature.Set, p.Temperature.Value)
	nullable(f, "is_working", p.IsWorking.Set, p.IsWorking.Value)
	if p.Issues.Set {
		f["issues"] = jsonColumn(p.Issues)
	}
	nullable(f, "action_required", p.ActionRequired.Set, p.ActionRequired.Value)
	nullable(f, "action_taken", p.ActionTaken.Set, p.ActionTaken.Value)
	nullable(f, "next_service_date", p.NextServiceDate.Set, p.NextServiceDate.Value)
	nullable(f, "notes", p.Notes.Set, p.Notes.Value)
	return f
}

func surveyResponseFields(p domainagg.SurveyBlock) fieldSet {
	f := fieldSet{}
	required(f, "survey_id", p.SurveyID.Set, p.SurveyID.Value)
	nullable(f, "customer_id", p.CustomerID.Set, p.CustomerID.Value)
	nullable(f, "submitted_by", p.SubmittedBy.Set, p.SubmittedBy.Value)
	required(f, "submitted_at", p.SubmittedAt.Set, p.SubmittedAt.Value)
	nullable(f, "location", p.Location.Set, p.Location.Value)
	nullable(f, "notes", p.Notes.Set, p.Notes.Value)
	return f
}

func surveyAnswerFields(p domainagg.SurveyAnswerPatch) fieldSet {
	f := fieldSet{}
	required(f, "field_id", p.FieldID.Set, p.FieldID.Value)
	nullable(f, "answer", p.Answer.Set, p.Answer.Value)
	return f
}

func decimalOr(f fieldSet, col string, fallback decimal.Decimal) decimal.Decimal {
	if v, ok := f[col].(decimal.Decimal); ok {
		return v
	}
	return fallback
}
