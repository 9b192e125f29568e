package visits

import (
	"gorm.io/gorm"

	"github.com/yungbote/fieldsales-backend/internal/domain"
	"github.com/yungbote/fieldsales-backend/internal/platform/dbctx"
	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
)

type OrderRepo interface {
	GetByID(dbc dbctx.Context, id uint) (*domain.Order, error)
	GetByIDs(dbc dbctx.Context, ids []uint) ([]*domain.Order, error)
	GetByVisitID(dbc dbctx.Context, visitID uint) ([]*domain.Order, error)
	Create(dbc dbctx.Context, row *domain.Order) error
	UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error
}

type orderRepo struct {
	t   table[domain.Order]
	log *logger.Logger
}

func NewOrderRepo(db *gorm.DB, baseLog *logger.Logger) OrderRepo {
	return &orderRepo{t: table[domain.Order]{db: db}, log: baseLog.With("repo", "OrderRepo")}
}

func (r *orderRepo) GetByID(dbc dbctx.Context, id uint) (*domain.Order, error) {
	return r.t.getByID(dbc, id)
}

func (r *orderRepo) GetByIDs(dbc dbctx.Context, ids []uint) ([]*domain.Order, error) {
	return r.t.getByIDs(dbc, ids)
}

func (r *orderRepo) GetByVisitID(dbc dbctx.Context, visitID uint) ([]*domain.Order, error) {
	return r.t.findBy(dbc, "visit_id", visitID)
}

func (r *orderRepo) Create(dbc dbctx.Context, row *domain.Order) error {
	return r.t.create(dbc, row)
}

func (r *orderRepo) UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error {
	return r.t.updateFields(dbc, id, updates)
}

type OrderItemRepo interface {
	GetByID(dbc dbctx.Context, id uint) (*domain.OrderItem, error)
	GetByOrderIDs(dbc dbctx.Context, orderIDs []uint) ([]*domain.OrderItem, error)
	Create(dbc dbctx.Context, rows []*domain.OrderItem) error
	UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error
}

type orderItemRepo struct {
	t   table[domain.OrderItem]
	log *logger.Logger
}

func NewOrderItemRepo(db *gorm.DB, baseLog *logger.Logger) OrderItemRepo {
	return &orderItemRepo{t: table[domain.OrderItem]{db: db}, log: baseLog.With("repo", "OrderItemRepo")}
}

func (r *orderItemRepo) GetByID(dbc dbctx.Context, id uint) (*domain.OrderItem, error) {
	return r.t.getByID(dbc, id)
}

func (r *orderItemRepo) GetByOrderIDs(dbc dbctx.Context, orderIDs []uint) ([]*domain.OrderItem, error) {
	var out []*domain.OrderItem
	if len(orderIDs) == 0 {
		return out, nil
	}
	if err := r.t.conn(dbc).
		Where("order_id IN ?", orderIDs).
		Order("order_id ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts all rows in one statement.
func (r *orderItemRepo) Create(dbc dbctx.Context, rows []*domain.OrderItem) error {
	return r.t.create(dbc, rows...)
}

func (r *orderItemRepo) UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error {
	return r.t.updateFields(dbc, id, updates)
}
