package visits

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/fieldsales-backend/internal/platform/dbctx"
)

// table holds the id-keyed operations every visit child table shares.
type table[T any] struct {
	db *gorm.DB
}

func (t table[T]) conn(dbc dbctx.Context) *gorm.DB {
	return dbc.DB(t.db)
}

// getByID returns nil, nil when the row does not exist.
func (t table[T]) getByID(dbc dbctx.Context, id uint) (*T, error) {
	if id == 0 {
		return nil, nil
	}
	var row T
	err := t.conn(dbc).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (t table[T]) getByIDs(dbc dbctx.Context, ids []uint) ([]*T, error) {
	var out []*T
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.conn(dbc).Where("id IN ?", ids).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (t table[T]) findBy(dbc dbctx.Context, column string, value interface{}) ([]*T, error) {
	var out []*T
	if err := t.conn(dbc).Where(clause.Eq{Column: clause.Column{Name: column}, Value: value}).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (t table[T]) create(dbc dbctx.Context, rows ...*T) error {
	if len(rows) == 0 {
		return nil
	}
	return t.conn(dbc).Create(rows).Error
}

// updateFields writes only the given columns and reports gorm.ErrRecordNotFound
// when no row matched.
func (t table[T]) updateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error {
	if id == 0 {
		return gorm.ErrRecordNotFound
	}
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	var model T
	res := t.conn(dbc).Model(&model).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// insertIfAbsent inserts row unless uniqueColumn already holds its value.
func (t table[T]) insertIfAbsent(dbc dbctx.Context, uniqueColumn string, row *T) (bool, error) {
	res := t.conn(dbc).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: uniqueColumn}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
