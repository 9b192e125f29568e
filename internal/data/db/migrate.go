package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/fieldsales-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(domain.AllModels()...)
}

// EnsureVisitIndexes adds the lookup indexes GORM tags cannot express.
func EnsureVisitIndexes(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}

	// Day-scoped payment number scans.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_payments_number_prefix
		ON payments (payment_number text_pattern_ops);
	`).Error; err != nil {
		return fmt.Errorf("create idx_payments_number_prefix: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_orders_visit_created
		ON orders (visit_id, created_at)
		WHERE visit_id IS NOT NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_orders_visit_created: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_cooler_inspections_cooler_date
		ON cooler_inspections (cooler_id, inspection_date DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_cooler_inspections_cooler_date: %w", err)
	}

	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureVisitIndexes(s.db); err != nil {
		s.log.Error("Visit index migration failed", "error", err)
		return err
	}
	return nil
}
