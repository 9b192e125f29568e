package visits

import (
	"gorm.io/gorm"

	"github.com/yungbote/fieldsales-backend/internal/domain"
	"github.com/yungbote/fieldsales-backend/internal/platform/dbctx"
	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
)

type VisitRepo interface {
	GetByID(dbc dbctx.Context, id uint) (*domain.Visit, error)
	Create(dbc dbctx.Context, row *domain.Visit) error
	UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error
	Count(dbc dbctx.Context) (int64, error)
}

type visitRepo struct {
	t   table[domain.Visit]
	log *logger.Logger
}

func NewVisitRepo(db *gorm.DB, baseLog *logger.Logger) VisitRepo {
	return &visitRepo{
		t:   table[domain.Visit]{db: db},
		log: baseLog.With("repo", "VisitRepo"),
	}
}

func (r *visitRepo) GetByID(dbc dbctx.Context, id uint) (*domain.Visit, error) {
	return r.t.getByID(dbc, id)
}

func (r *visitRepo) Create(dbc dbctx.Context, row *domain.Visit) error {
	return r.t.create(dbc, row)
}

func (r *visitRepo) UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error {
	return r.t.updateFields(dbc, id, updates)
}

func (r *visitRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := r.t.conn(dbc).Model(&domain.Visit{}).Count(&n).Error
	return n, err
}
