package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order belongs to the visit's customer context. VisitID is a soft reference
// recorded for read-back; there is no foreign key to visit.
type Order struct {
	ID             uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber    *string         `gorm:"column:order_number;index" json:"order_number"`
	CustomerID     uint            `gorm:"column:customer_id;not null;index" json:"customer_id"`
	SalesPersonID  uint            `gorm:"column:sales_person_id;not null;index" json:"sales_person_id"`
	VisitID        *uint           `gorm:"column:visit_id;index" json:"visit_id"`
	OrderType      *string         `gorm:"column:order_type" json:"order_type"`
	OrderDate      time.Time       `gorm:"column:order_date;not null" json:"order_date"`
	DeliveryDate   *time.Time      `gorm:"column:delivery_date" json:"delivery_date"`
	Status         string          `gorm:"column:status;not null;default:'draft'" json:"status"`
	Priority       *string         `gorm:"column:priority" json:"priority"`
	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:decimal(18,2);not null;default:0" json:"subtotal"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:decimal(18,2);not null;default:0" json:"discount_amount"`
	TaxAmount      decimal.Decimal `gorm:"column:tax_amount;type:decimal(18,2);not null;default:0" json:"tax_amount"`
	ShippingAmount decimal.Decimal `gorm:"column:shipping_amount;type:decimal(18,2);not null;default:0" json:"shipping_amount"`
	TotalAmount    decimal.Decimal `gorm:"column:total_amount;type:decimal(18,2);not null;default:0" json:"total_amount"`
	Notes          *string         `gorm:"column:notes" json:"notes"`
	IsActive       bool            `gorm:"column:is_active;not null" json:"is_active"`
	CreatedBy      *uint           `gorm:"column:created_by" json:"created_by"`
	CreatedAt      time.Time       `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedBy      *uint           `gorm:"column:updated_by" json:"updated_by"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;not null" json:"updated_at"`

	Items []*OrderItem `gorm:"-" json:"items"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID             uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID        uint            `gorm:"column:order_id;not null;index" json:"order_id"`
	ProductID      uint            `gorm:"column:product_id;not null;index" json:"product_id"`
	Quantity       decimal.Decimal `gorm:"column:quantity;type:decimal(18,3);not null" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"column:unit_price;type:decimal(18,2);not null" json:"unit_price"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:decimal(18,2);not null;default:0" json:"discount_amount"`
	TaxAmount      decimal.Decimal `gorm:"column:tax_amount;type:decimal(18,2);not null;default:0" json:"tax_amount"`
	TotalAmount    decimal.Decimal `gorm:"column:total_amount;type:decimal(18,2);not null" json:"total_amount"`
	Notes          *string         `gorm:"column:notes" json:"notes"`
	CreatedAt      time.Time       `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (OrderItem) TableName() string { return "order_items" }

// LineTotal is quantity * unit price, less discount, plus tax.
func LineTotal(qty, unitPrice, discount, tax decimal.Decimal) decimal.Decimal {
	return qty.Mul(unitPrice).Sub(discount).Add(tax).Round(2)
}
