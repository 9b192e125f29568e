package visits

import (
	"gorm.io/gorm"

	"github.com/yungbote/fieldsales-backend/internal/domain"
	"github.com/yungbote/fieldsales-backend/internal/platform/dbctx"
	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
)

type SurveyResponseRepo interface {
	GetByID(dbc dbctx.Context, id uint) (*domain.SurveyResponse, error)
	GetByVisitID(dbc dbctx.Context, visitID uint) ([]*domain.SurveyResponse, error)
	Create(dbc dbctx.Context, row *domain.SurveyResponse) error
	UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error
}

type surveyResponseRepo struct {
	t   table[domain.SurveyResponse]
	log *logger.Logger
}

func NewSurveyResponseRepo(db *gorm.DB, baseLog *logger.Logger) SurveyResponseRepo {
	return &surveyResponseRepo{
		t:   table[domain.SurveyResponse]{db: db},
		log: baseLog.With("repo", "SurveyResponseRepo"),
	}
}

func (r *surveyResponseRepo) GetByID(dbc dbctx.Context, id uint) (*domain.SurveyResponse, error) {
	return r.t.getByID(dbc, id)
}

func (r *surveyResponseRepo) GetByVisitID(dbc dbctx.Context, visitID uint) ([]*domain.SurveyResponse, error) {
	return r.t.findBy(dbc, "visit_id", visitID)
}

func (r *surveyResponseRepo) Create(dbc dbctx.Context, row *domain.SurveyResponse) error {
	return r.t.create(dbc, row)
}

func (r *surveyResponseRepo) UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error {
	return r.t.updateFields(dbc, id, updates)
}

type SurveyAnswerRepo interface {
	GetByID(dbc dbctx.Context, id uint) (*domain.SurveyAnswer, error)
	GetByResponseIDs(dbc dbctx.Context, responseIDs []uint) ([]*domain.SurveyAnswer, error)
	Create(dbc dbctx.Context, row *domain.SurveyAnswer) error
	UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error
}

type surveyAnswerRepo struct {
	t   table[domain.SurveyAnswer]
	log *logger.Logger
}

func NewSurveyAnswerRepo(db *gorm.DB, baseLog *logger.Logger) SurveyAnswerRepo {
	return &surveyAnswerRepo{
		t:   table[domain.SurveyAnswer]{db: db},
		log: baseLog.With("repo", "SurveyAnswerRepo"),
	}
}

func (r *surveyAnswerRepo) GetByID(dbc dbctx.Context, id uint) (*domain.SurveyAnswer, error) {
	return r.t.getByID(dbc, id)
}

func (r *surveyAnswerRepo) GetByResponseIDs(dbc dbctx.Context, responseIDs []uint) ([]*domain.SurveyAnswer, error) {
	var out []*domain.SurveyAnswer
	if len(responseIDs) == 0 {
		return out, nil
	}
	if err := r.t.conn(dbc).
		Where("response_id IN ?", responseIDs).
		Order("response_id ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *surveyAnswerRepo) Create(dbc dbctx.Context, row *domain.SurveyAnswer) error {
	return r.t.create(dbc, row)
}

func (r *surveyAnswerRepo) UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error {
	return r.t.updateFields(dbc, id, updates)
}
