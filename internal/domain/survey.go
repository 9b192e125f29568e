package domain

import "time"

type SurveyResponse struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SurveyID    uint      `gorm:"column:survey_id;not null;index" json:"survey_id"`
	VisitID     uint      `gorm:"column:visit_id;not null;index" json:"visit_id"`
	CustomerID  *uint     `gorm:"column:customer_id" json:"customer_id"`
	SubmittedBy *uint     `gorm:"column:submitted_by" json:"submitted_by"`
	SubmittedAt time.Time `gorm:"column:submitted_at;not null" json:"submitted_at"`
	Location    *string   `gorm:"column:location" json:"location"`
	Notes       *string   `gorm:"column:notes" json:"notes"`
	CreatedAt   time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null" json:"updated_at"`

	Answers []*SurveyAnswer `gorm:"-" json:"answers"`
}

func (SurveyResponse) TableName() string { return "survey_responses" }

type SurveyAnswer struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ResponseID uint      `gorm:"column:response_id;not null;index" json:"response_id"`
	FieldID    uint      `gorm:"column:field_id;not null" json:"field_id"`
	Answer     *string   `gorm:"column:answer" json:"answer"`
	CreatedAt  time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (SurveyAnswer) TableName() string { return "survey_answers" }
