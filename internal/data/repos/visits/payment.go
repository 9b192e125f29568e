package visits

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yungbote/fieldsales-backend/internal/domain"
	"github.com/yungbote/fieldsales-backend/internal/platform/dbctx"
	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
)

type PaymentRepo interface {
	GetByID(dbc dbctx.Context, id uint) (*domain.Payment, error)
	GetByIDs(dbc dbctx.Context, ids []uint) ([]*domain.Payment, error)
	GetByVisitID(dbc dbctx.Context, visitID uint) ([]*domain.Payment, error)
	GetByNumber(dbc dbctx.Context, number string) (*domain.Payment, error)
	NumberExists(dbc dbctx.Context, number string) (bool, error)
	// NumbersWithPrefix lists every payment number starting with prefix.
	NumbersWithPrefix(dbc dbctx.Context, prefix string) ([]string, error)
	// InsertIfAbsent inserts row unless its payment number is already taken.
	InsertIfAbsent(dbc dbctx.Context, row *domain.Payment) (bool, error)
	// UpsertByNumber inserts row or applies updates to the row holding the same number.
	UpsertByNumber(dbc dbctx.Context, row *domain.Payment, updates map[string]interface{}) (*domain.Payment, error)
	UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error
}

type paymentRepo struct {
	t   table[domain.Payment]
	log *logger.Logger
}

func NewPaymentRepo(db *gorm.DB, baseLog *logger.Logger) PaymentRepo {
	return &paymentRepo{t: table[domain.Payment]{db: db}, log: baseLog.With("repo", "PaymentRepo")}
}

func (r *paymentRepo) GetByID(dbc dbctx.Context, id uint) (*domain.Payment, error) {
	return r.t.getByID(dbc, id)
}

func (r *paymentRepo) GetByIDs(dbc dbctx.Context, ids []uint) ([]*domain.Payment, error) {
	return r.t.getByIDs(dbc, ids)
}

func (r *paymentRepo) GetByVisitID(dbc dbctx.Context, visitID uint) ([]*domain.Payment, error) {
	return r.t.findBy(dbc, "visit_id", visitID)
}

func (r *paymentRepo) GetByNumber(dbc dbctx.Context, number string) (*domain.Payment, error) {
	if number == "" {
		return nil, nil
	}
	var row domain.Payment
	err := r.t.conn(dbc).Where("payment_number = ?", number).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *paymentRepo) NumberExists(dbc dbctx.Context, number string) (bool, error) {
	var n int64
	err := r.t.conn(dbc).Model(&domain.Payment{}).Where("payment_number = ?", number).Count(&n).Error
	return n > 0, err
}

func (r *paymentRepo) NumbersWithPrefix(dbc dbctx.Context, prefix string) ([]string, error) {
	var out []string
	err := r.t.conn(dbc).
		Model(&domain.Payment{}).
		Where("payment_number LIKE ?", prefix+"%").
		Pluck("payment_number", &out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *paymentRepo) InsertIfAbsent(dbc dbctx.Context, row *domain.Payment) (bool, error) {
	return r.t.insertIfAbsent(dbc, "payment_number", row)
}

// UpsertByNumber inserts row when its payment number is free. When the
// number is taken, only updates are applied to the stored row, so columns
// absent from updates keep their values. Losing an insert race falls back to
// the update branch.
func (r *paymentRepo) UpsertByNumber(dbc dbctx.Context, row *domain.Payment, updates map[string]interface{}) (*domain.Payment, error) {
	if row == nil || row.PaymentNumber == "" {
		return nil, errors.New("payment number required")
	}
	existing, err := r.GetByNumber(dbc, row.PaymentNumber)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		inserted, err := r.InsertIfAbsent(dbc, row)
		if err != nil {
			return nil, err
		}
		if inserted {
			return r.GetByID(dbc, row.ID)
		}
		if existing, err = r.GetByNumber(dbc, row.PaymentNumber); err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, gorm.ErrRecordNotFound
		}
	}
	delete(updates, "payment_number")
	if err := r.UpdateFields(dbc, existing.ID, updates); err != nil {
		return nil, err
	}
	return r.GetByID(dbc, existing.ID)
}

func (r *paymentRepo) UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error {
	return r.t.updateFields(dbc, id, updates)
}
