package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/fieldsales-backend/internal/http/handlers"
	httpMW "github.com/yungbote/fieldsales-backend/internal/http/middleware"
	"github.com/yungbote/fieldsales-backend/internal/observability"
	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	// ServiceName enables otelgin server spans when set.
	ServiceName string
	CORSOrigins []string

	// LocalMediaPath/LocalMediaDir serve the local media store, when used.
	LocalMediaPath string
	LocalMediaDir  string

	VisitHandler  *httpH.VisitHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	if cfg.LocalMediaPath != "" && cfg.LocalMediaDir != "" {
		r.Static(cfg.LocalMediaPath, cfg.LocalMediaDir)
	}

	api := r.Group("/api")
	{
		// Visits
		if cfg.VisitHandler != nil {
			api.POST("/visits/bulk-upsert", cfg.VisitHandler.BulkUpsert)
			api.GET("/visits/:id", cfg.VisitHandler.GetVisit)
		}
	}

	return r
}
