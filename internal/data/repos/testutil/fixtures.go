package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yungbote/fieldsales-backend/internal/domain"
)

func SeedVisit(tb testing.TB, ctx context.Context, tx *gorm.DB, customerID, salesPersonID uint) *domain.Visit {
	tb.Helper()
	now := time.Now().UTC()
	v := &domain.Visit{
		CustomerID:    customerID,
		SalesPersonID: salesPersonID,
		VisitDate:     &now,
		IsActive:      true,
		CreatedBy:     &salesPersonID,
		UpdatedBy:     &salesPersonID,
	}
	if err := tx.WithContext(ctx).Create(v).Error; err != nil {
		tb.Fatalf("seed visit: %v", err)
	}
	return v
}

func SeedCooler(tb testing.TB, ctx context.Context, tx *gorm.DB, code string, customerID uint) *domain.Cooler {
	tb.Helper()
	c := &domain.Cooler{
		Code:       code,
		CustomerID: &customerID,
		IsActive:   true,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed cooler: %v", err)
	}
	return c
}

func SeedPayment(tb testing.TB, ctx context.Context, tx *gorm.DB, number string, visitID, customerID uint) *domain.Payment {
	tb.Helper()
	p := &domain.Payment{
		PaymentNumber: number,
		CustomerID:    customerID,
		VisitID:       &visitID,
		PaymentDate:   time.Now().UTC(),
		CollectedBy:   1,
		Method:        "cash",
		TotalAmount:   decimal.RequireFromString("10.00"),
		Status:        "completed",
		IsActive:      true,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed payment: %v", err)
	}
	return p
}

func SeedOrder(tb testing.TB, ctx context.Context, tx *gorm.DB, visitID, customerID, salesPersonID uint) *domain.Order {
	tb.Helper()
	o := &domain.Order{
		CustomerID:    customerID,
		SalesPersonID: salesPersonID,
		VisitID:       &visitID,
		OrderDate:     time.Now().UTC(),
		Status:        "draft",
		IsActive:      true,
	}
	if err := tx.WithContext(ctx).Create(o).Error; err != nil {
		tb.Fatalf("seed order: %v", err)
	}
	return o
}
