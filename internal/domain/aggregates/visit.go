package aggregates

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/yungbote/fieldsales-backend/internal/domain"
	nz "github.com/yungbote/fieldsales-backend/internal/normalization"
)

var VisitAggregateContract = Contract{
	Name: "Field.VisitAggregate",
	Root: domain.Visit{}.TableName(),
	Tables: []string{
		domain.Visit{}.TableName(),
		domain.Order{}.TableName(),
		domain.OrderItem{}.TableName(),
		domain.Payment{}.TableName(),
		domain.Cooler{}.TableName(),
		domain.CoolerInspection{}.TableName(),
		domain.SurveyResponse{}.TableName(),
		domain.SurveyAnswer{}.TableName(),
	},
	UpsertOp: "Field.Visit.Upsert",
	GetOp:    "Field.Visit.Get",
}

// VisitAggregate writes a visit and its child tree as one unit.
//
// Upsert failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodePreconditionFailed, CodeRetryable, CodeInternal.
type VisitAggregate interface {
	Aggregate

	// Upsert creates or updates the visit and all supplied children in one transaction.
	Upsert(ctx context.Context, in UpsertVisitInput) (UpsertVisitResult, error)

	// Get loads the stored aggregate view for a visit.
	Get(ctx context.Context, visitID uint) (*VisitView, error)
}

type UpsertVisitInput struct {
	Visit             VisitPatch
	Orders            []OrderPatch
	Payments          []PaymentPatch
	CoolerInspections []CoolerInspectionPatch
	Survey            SurveyBlocks

	// Media holds freshly uploaded, comma-joined URLs per slot. Slots without
	// new uploads are absent and leave the stored value untouched.
	Media map[domain.MediaSlot]*string
}

type UpsertVisitResult struct {
	Created bool
	View    *VisitView

	// PreviousMedia is the stored URL list of every slot that Media replaced
	// on an update.
	PreviousMedia map[domain.MediaSlot]*string
}

// VisitView is the owned aggregate tree returned to callers.
type VisitView struct {
	VisitID           uint                       `json:"visit_id"`
	Visit             *domain.Visit              `json:"visit"`
	Orders            []*domain.Order            `json:"orders"`
	Payments          []*domain.Payment          `json:"payments"`
	CoolerInspections []*domain.CoolerInspection `json:"cooler_inspections"`
	SurveyResponses   []*domain.SurveyResponse   `json:"survey_responses"`
}

// VisitPatch lists the mutable visit columns. Media columns are absent on
// purpose: they only change through uploads.
type VisitPatch struct {
	ID              nz.OptionalID      `json:"id"`
	CustomerID      nz.OptionalID      `json:"customer_id"`
	SalesPersonID   nz.OptionalID      `json:"sales_person_id"`
	RouteID         nz.OptionalID      `json:"route_id"`
	ZoneID          nz.OptionalID      `json:"zone_id"`
	VisitDate       nz.OptionalTime    `json:"visit_date"`
	StartTime       nz.OptionalTime    `json:"start_time"`
	EndTime         nz.OptionalTime    `json:"end_time"`
	CheckInTime     nz.OptionalTime    `json:"check_in_time"`
	CheckOutTime    nz.OptionalTime    `json:"check_out_time"`
	Latitude        nz.OptionalFloat64 `json:"latitude"`
	Longitude       nz.OptionalFloat64 `json:"longitude"`
	AmountCollected nz.OptionalDecimal `json:"amount_collected"`
	Purpose         nz.OptionalString  `json:"purpose"`
	Status          nz.OptionalString  `json:"status"`
	VisitNotes      nz.OptionalString  `json:"visit_notes"`
	IsActive        nz.OptionalBool    `json:"is_active"`
	CreatedBy       nz.OptionalID      `json:"created_by"`
	UpdatedBy       nz.OptionalID      `json:"updated_by"`
}

type OrderPatch struct {
	ID             nz.OptionalID      `json:"id"`
	OrderNumber    nz.OptionalString  `json:"order_number"`
	OrderType      nz.OptionalString  `json:"order_type"`
	OrderDate      nz.OptionalTime    `json:"order_date"`
	DeliveryDate   nz.OptionalTime    `json:"delivery_date"`
	Status         nz.OptionalString  `json:"status"`
	Priority       nz.OptionalString  `json:"priority"`
	Subtotal       nz.OptionalDecimal `json:"subtotal"`
	DiscountAmount nz.OptionalDecimal `json:"discount_amount"`
	TaxAmount      nz.OptionalDecimal `json:"tax_amount"`
	ShippingAmount nz.OptionalDecimal `json:"shipping_amount"`
	TotalAmount    nz.OptionalDecimal `json:"total_amount"`
	Notes          nz.OptionalString  `json:"notes"`
	Items          []OrderItemPatch   `json:"items"`
}

type OrderItemPatch struct {
	ID             nz.OptionalID      `json:"id"`
	ProductID      nz.OptionalID      `json:"product_id"`
	Quantity       nz.OptionalDecimal `json:"quantity"`
	UnitPrice      nz.OptionalDecimal `json:"unit_price"`
	DiscountAmount nz.OptionalDecimal `json:"discount_amount"`
	TaxAmount      nz.OptionalDecimal `json:"tax_amount"`
	TotalAmount    nz.OptionalDecimal `json:"total_amount"`
	Notes          nz.OptionalString  `json:"notes"`
}

type PaymentPatch struct {
	ID              nz.OptionalID      `json:"id"`
	PaymentNumber   nz.OptionalString  `json:"payment_number"`
	CustomerID      nz.OptionalID      `json:"customer_id"`
	PaymentDate     nz.OptionalTime    `json:"payment_date"`
	CollectedBy     nz.OptionalID      `json:"collected_by"`
	Method          nz.OptionalString  `json:"method"`
	ReferenceNumber nz.OptionalString  `json:"reference_number"`
	TotalAmount     nz.OptionalDecimal `json:"total_amount"`
	CurrencyID      nz.OptionalID      `json:"currency_id"`
	Notes           nz.OptionalString  `json:"notes"`
	Status          nz.OptionalString  `json:"status"`
}

type CoolerPatch struct {
	ID           nz.OptionalID      `json:"id"`
	Code         nz.OptionalString  `json:"code"`
	CustomerID   nz.OptionalID      `json:"customer_id"`
	Brand        nz.OptionalString  `json:"brand"`
	Model        nz.OptionalString  `json:"model"`
	SerialNumber nz.OptionalString  `json:"serial_number"`
	Capacity     nz.OptionalFloat64 `json:"capacity"`
	InstallDate  nz.OptionalTime    `json:"install_date"`
	Status       nz.OptionalString  `json:"status"`
	IsActive     nz.OptionalBool    `json:"is_active"`
}

type CoolerInspectionPatch struct {
	ID              nz.OptionalID      `json:"id"`
	CoolerID        nz.OptionalID      `json:"cooler_id"`
	Cooler          *CoolerPatch       `json:"cooler"`
	InspectedBy     nz.OptionalID      `json:"inspected_by"`
	InspectionDate  nz.OptionalTime    `json:"inspection_date"`
	Temperature     nz.OptionalFloat64 `json:"temperature"`
	IsWorking       nz.OptionalBool    `json:"is_working"`
	Issues          nz.OptionalJSON    `json:"issues"`
	ActionRequired  nz.OptionalBool    `json:"action_required"`
	ActionTaken     nz.OptionalString  `json:"action_taken"`
	NextServiceDate nz.OptionalTime    `json:"next_service_date"`
	Notes           nz.OptionalString  `json:"notes"`
}

type SurveyBlock struct {
	ID          nz.OptionalID       `json:"id"`
	SurveyID    nz.OptionalID       `json:"survey_id"`
	CustomerID  nz.OptionalID       `json:"customer_id"`
	SubmittedBy nz.OptionalID       `json:"submitted_by"`
	SubmittedAt nz.OptionalTime     `json:"submitted_at"`
	Location    nz.OptionalString   `json:"location"`
	Notes       nz.OptionalString   `json:"notes"`
	Answers     []SurveyAnswerPatch `json:"answers"`
}

type SurveyAnswerPatch struct {
	ID      nz.OptionalID     `json:"id"`
	FieldID nz.OptionalID     `json:"field_id"`
	Answer  nz.OptionalString `json:"answer"`
}

// SurveyBlocks accepts either a single survey block or a list of them.
type SurveyBlocks []SurveyBlock

func (s *SurveyBlocks) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || string(data) == "null":
		*s = nil
		return nil
	case data[0] == '{':
		var one SurveyBlock
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*s = SurveyBlocks{one}
		return nil
	default:
		var many []SurveyBlock
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*s = many
		return nil
	}
}
