package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Visit struct {
	ID              uint                `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID      uint                `gorm:"column:customer_id;not null;index" json:"customer_id"`
	SalesPersonID   uint                `gorm:"column:sales_person_id;not null;index" json:"sales_person_id"`
	RouteID         *uint               `gorm:"column:route_id;index" json:"route_id"`
	ZoneID          *uint               `gorm:"column:zone_id" json:"zone_id"`
	VisitDate       *time.Time          `gorm:"column:visit_date;index" json:"visit_date"`
	StartTime       *time.Time          `gorm:"column:start_time" json:"start_time"`
	EndTime         *time.Time          `gorm:"column:end_time" json:"end_time"`
	CheckInTime     *time.Time          `gorm:"column:check_in_time" json:"check_in_time"`
	CheckOutTime    *time.Time          `gorm:"column:check_out_time" json:"check_out_time"`
	Latitude        *float64            `gorm:"column:latitude" json:"latitude"`
	Longitude       *float64            `gorm:"column:longitude" json:"longitude"`
	AmountCollected decimal.NullDecimal `gorm:"column:amount_collected;type:decimal(18,2)" json:"amount_collected"`
	Purpose         *string             `gorm:"column:purpose" json:"purpose"`
	Status          *string             `gorm:"column:status" json:"status"`
	VisitNotes      *string             `gorm:"column:visit_notes" json:"visit_notes"`
	SelfImages      *string             `gorm:"column:self_images" json:"self_images"`
	CustomerImages  *string             `gorm:"column:customer_images" json:"customer_images"`
	CoolerImages    *string             `gorm:"column:cooler_images" json:"cooler_images"`
	IsActive        bool                `gorm:"column:is_active;not null" json:"is_active"`
	CreatedBy       *uint               `gorm:"column:created_by" json:"created_by"`
	CreatedAt       time.Time           `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedBy       *uint               `gorm:"column:updated_by" json:"updated_by"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Visit) TableName() string { return "visit" }

// Media returns the stored URL list for slot, or nil when the slot is empty.
func (v *Visit) Media(slot MediaSlot) *string {
	if v == nil {
		return nil
	}
	switch slot {
	case MediaSlotSelf:
		return v.SelfImages
	case MediaSlotCustomer:
		return v.CustomerImages
	case MediaSlotCooler:
		return v.CoolerImages
	}
	return nil
}

// JoinMediaURLs renders urls as a comma-joined list; no urls means NULL.
func JoinMediaURLs(urls []string) *string {
	clean := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		clean = append(clean, u)
	}
	if len(clean) == 0 {
		return nil
	}
	s := strings.Join(clean, ",")
	return &s
}

// SplitMediaURLs is the inverse of JoinMediaURLs.
func SplitMediaURLs(s *string) []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, part := range strings.Split(*s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
