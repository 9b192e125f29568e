package domain

import (
	"time"

	"gorm.io/datatypes"
)

type Cooler struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Code         string     `gorm:"column:code;not null;uniqueIndex" json:"code"`
	CustomerID   *uint      `gorm:"column:customer_id;index" json:"customer_id"`
	Brand        *string    `gorm:"column:brand" json:"brand"`
	Model        *string    `gorm:"column:model" json:"model"`
	SerialNumber *string    `gorm:"column:serial_number" json:"serial_number"`
	Capacity     *float64   `gorm:"column:capacity" json:"capacity"`
	InstallDate  *time.Time `gorm:"column:install_date" json:"install_date"`
	Status       *string    `gorm:"column:status" json:"status"`
	IsActive     bool       `gorm:"column:is_active;not null" json:"is_active"`
	CreatedBy    *uint      `gorm:"column:created_by" json:"created_by"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedBy    *uint      `gorm:"column:updated_by" json:"updated_by"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Cooler) TableName() string { return "coolers" }

type CoolerInspection struct {
	ID              uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CoolerID        uint           `gorm:"column:cooler_id;not null;index" json:"cooler_id"`
	VisitID         uint           `gorm:"column:visit_id;not null;index" json:"visit_id"`
	InspectedBy     *uint          `gorm:"column:inspected_by" json:"inspected_by"`
	InspectionDate  time.Time      `gorm:"column:inspection_date;not null" json:"inspection_date"`
	Temperature     *float64       `gorm:"column:temperature" json:"temperature"`
	IsWorking       *bool          `gorm:"column:is_working" json:"is_working"`
	Issues          datatypes.JSON `gorm:"column:issues" json:"issues"`
	ActionRequired  *bool          `gorm:"column:action_required" json:"action_required"`
	ActionTaken     *string        `gorm:"column:action_taken" json:"action_taken"`
	NextServiceDate *time.Time     `gorm:"column:next_service_date" json:"next_service_date"`
	Notes           *string        `gorm:"column:notes" json:"notes"`
	CreatedBy       *uint          `gorm:"column:created_by" json:"created_by"`
	CreatedAt       time.Time      `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedBy       *uint          `gorm:"column:updated_by" json:"updated_by"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;not null" json:"updated_at"`

	Cooler *Cooler `gorm:"-" json:"cooler,omitempty"`
}

func (CoolerInspection) TableName() string { return "cooler_inspections" }
