package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/fieldsales-backend/internal/data/repos/visits"
	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
)

type VisitRepo = visits.VisitRepo
type OrderRepo = visits.OrderRepo
type OrderItemRepo = visits.OrderItemRepo
type PaymentRepo = visits.PaymentRepo
type CoolerRepo = visits.CoolerRepo
type CoolerInspectionRepo = visits.CoolerInspectionRepo
type SurveyResponseRepo = visits.SurveyResponseRepo
type SurveyAnswerRepo = visits.SurveyAnswerRepo

// VisitRepos is every repository the visit aggregate writes through.
type VisitRepos struct {
	Visits            VisitRepo
	Orders            OrderRepo
	OrderItems        OrderItemRepo
	Payments          PaymentRepo
	Coolers           CoolerRepo
	CoolerInspections CoolerInspectionRepo
	SurveyResponses   SurveyResponseRepo
	SurveyAnswers     SurveyAnswerRepo
}

func NewVisitRepos(db *gorm.DB, baseLog *logger.Logger) VisitRepos {
	return VisitRepos{
		Visits:            visits.NewVisitRepo(db, baseLog),
		Orders:            visits.NewOrderRepo(db, baseLog),
		OrderItems:        visits.NewOrderItemRepo(db, baseLog),
		Payments:          visits.NewPaymentRepo(db, baseLog),
		Coolers:           visits.NewCoolerRepo(db, baseLog),
		CoolerInspections: visits.NewCoolerInspectionRepo(db, baseLog),
		SurveyResponses:   visits.NewSurveyResponseRepo(db, baseLog),
		SurveyAnswers:     visits.NewSurveyAnswerRepo(db, baseLog),
	}
}
