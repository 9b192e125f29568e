package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Payment struct {
	ID              uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentNumber   string          `gorm:"column:payment_number;not null;uniqueIndex" json:"payment_number"`
	CustomerID      uint            `gorm:"column:customer_id;not null;index" json:"customer_id"`
	VisitID         *uint           `gorm:"column:visit_id;index" json:"visit_id"`
	PaymentDate     time.Time       `gorm:"column:payment_date;not null" json:"payment_date"`
	CollectedBy     uint            `gorm:"column:collected_by;not null" json:"collected_by"`
	Method          string          `gorm:"column:method;not null" json:"method"`
	ReferenceNumber *string         `gorm:"column:reference_number" json:"reference_number"`
	TotalAmount     decimal.Decimal `gorm:"column:total_amount;type:decimal(18,2);not null" json:"total_amount"`
	CurrencyID      *uint           `gorm:"column:currency_id" json:"currency_id"`
	Notes           *string         `gorm:"column:notes" json:"notes"`
	Status          string          `gorm:"column:status;not null;default:'completed'" json:"status"`
	IsActive        bool            `gorm:"column:is_active;not null" json:"is_active"`
	CreatedBy       *uint           `gorm:"column:created_by" json:"created_by"`
	CreatedAt       time.Time       `gorm:"column:created_at;not null;index" json:"created_at"`
	UpdatedBy       *uint           `gorm:"column:updated_by" json:"updated_by"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }
