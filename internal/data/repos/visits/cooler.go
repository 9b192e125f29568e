package visits

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yungbote/fieldsales-backend/internal/domain"
	"github.com/yungbote/fieldsales-backend/internal/platform/dbctx"
	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
)

type CoolerRepo interface {
	GetByID(dbc dbctx.Context, id uint) (*domain.Cooler, error)
	GetByIDs(dbc dbctx.Context, ids []uint) ([]*domain.Cooler, error)
	GetByCode(dbc dbctx.Context, code string) (*domain.Cooler, error)
	// InsertIfAbsent inserts row unless its code is already taken.
	InsertIfAbsent(dbc dbctx.Context, row *domain.Cooler) (bool, error)
	UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error
}

type coolerRepo struct {
	t   table[domain.Cooler]
	log *logger.Logger
}

func NewCoolerRepo(db *gorm.DB, baseLog *logger.Logger) CoolerRepo {
	return &coolerRepo{t: table[domain.Cooler]{db: db}, log: baseLog.With("repo", "CoolerRepo")}
}

func (r *coolerRepo) GetByID(dbc dbctx.Context, id uint) (*domain.Cooler, error) {
	return r.t.getByID(dbc, id)
}

func (r *coolerRepo) GetByIDs(dbc dbctx.Context, ids []uint) ([]*domain.Cooler, error) {
	return r.t.getByIDs(dbc, ids)
}

func (r *coolerRepo) GetByCode(dbc dbctx.Context, code string) (*domain.Cooler, error) {
	if code == "" {
		return nil, nil
	}
	var row domain.Cooler
	err := r.t.conn(dbc).Where("code = ?", code).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *coolerRepo) InsertIfAbsent(dbc dbctx.Context, row *domain.Cooler) (bool, error) {
	return r.t.insertIfAbsent(dbc, "code", row)
}

func (r *coolerRepo) UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error {
	return r.t.updateFields(dbc, id, updates)
}

type CoolerInspectionRepo interface {
	GetByID(dbc dbctx.Context, id uint) (*domain.CoolerInspection, error)
	GetByVisitID(dbc dbctx.Context, visitID uint) ([]*domain.CoolerInspection, error)
	Create(dbc dbctx.Context, row *domain.CoolerInspection) error
	UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error
}

type coolerInspectionRepo struct {
	t   table[domain.CoolerInspection]
	log *logger.Logger
}

func NewCoolerInspectionRepo(db *gorm.DB, baseLog *logger.Logger) CoolerInspectionRepo {
	return &coolerInspectionRepo{
		t:   table[domain.CoolerInspection]{db: db},
		log: baseLog.With("repo", "CoolerInspectionRepo"),
	}
}

func (r *coolerInspectionRepo) GetByID(dbc dbctx.Context, id uint) (*domain.CoolerInspection, error) {
	return r.t.getByID(dbc, id)
}

func (r *coolerInspectionRepo) GetByVisitID(dbc dbctx.Context, visitID uint) ([]*domain.CoolerInspection, error) {
	return r.t.findBy(dbc, "visit_id", visitID)
}

func (r *coolerInspectionRepo) Create(dbc dbctx.Context, row *domain.CoolerInspection) error {
	return r.t.create(dbc, row)
}

func (r *coolerInspectionRepo) UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error {
	return r.t.updateFields(dbc, id, updates)
}
