package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/fieldsales-backend/internal/data/aggregates"
	"github.com/yungbote/fieldsales-backend/internal/data/repos"
	domainagg "github.com/yungbote/fieldsales-backend/internal/domain/aggregates"
	httpH "github.com/yungbote/fieldsales-backend/internal/http/handlers"
	"github.com/yungbote/fieldsales-backend/internal/observability"
	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
	"github.com/yungbote/fieldsales-backend/internal/services"
)

type Services struct {
	VisitAggregate domainagg.VisitAggregate
	Visits         services.VisitBatchService
}

type Handlers struct {
	Health *httpH.HealthHandler
	Visit  *httpH.VisitHandler
}

func wireRepos(db *gorm.DB, log *logger.Logger) repos.VisitRepos {
	log.Info("Wiring repos...")
	return repos.NewVisitRepos(db, log)
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r repos.VisitRepos, clients Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	seq := aggregates.WithSequenceMetrics(aggregates.NewScanSequence(r.Payments), PaymentSequenceScan, metrics)
	if clients.DayCounter != nil {
		seq = aggregates.WithSequenceMetrics(aggregates.NewCounterSequence(clients.DayCounter, r.Payments, log), PaymentSequenceRedis, metrics)
	}
	agg := aggregates.NewVisitAggregate(aggregates.VisitAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:  db,
			Log: log,
			Runner: aggregates.NewBoundedTxRunner(db, aggregates.TxLimits{
				MaxWait: cfg.VisitTxMaxWait,
				Timeout: cfg.VisitTxTimeout,
			}),
			Hooks: aggregates.NewObservabilityHooks(metrics),
		},
		Repos:           r,
		PaymentSequence: seq,
	})

	var store services.MediaStore
	if clients.Media != nil {
		store = clients.Media.Store
	}
	visits := services.NewVisitBatchService(
		log,
		agg,
		services.NewMediaUploader(log, store, metrics),
		services.NewCompensator(log, store, metrics),
		observability.NewPipelineHooks(metrics),
	)
	return Services{VisitAggregate: agg, Visits: visits}
}

func wireHandlers(log *logger.Logger, cfg Config, db *gorm.DB, svcs Services) Handlers {
	log.Info("Wiring handlers...")
	var pinger httpH.Pinger
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			pinger = sqlDB
		}
	}
	return Handlers{
		Health: httpH.NewHealthHandler(pinger),
		Visit:  httpH.NewVisitHandler(log, svcs.Visits, cfg.VisitMaxMultipartMB),
	}
}
