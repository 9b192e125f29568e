package app

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"gorm.io/gorm"

	fhttp "github.com/yungbote/fieldsales-backend/internal/http"
	"github.com/yungbote/fieldsales-backend/internal/observability"
	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *fhttp.Server
	Cfg      Config
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics

	shutdownOTel func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	metrics := observability.Init(log)
	shutdownOTel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: cfg.OtelServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OtelEndpoint,
		Headers:     cfg.OtelHeaders,
		Insecure:    cfg.OtelInsecure,
		SampleRatio: cfg.OtelSampleRatio,
	})

	clients, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	theDB := clients.Postgres.DB()

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, clients, metrics)
	handlerset := wireHandlers(log, cfg, theDB, serviceset)

	routerCfg := fhttp.RouterConfig{
		Log:           log,
		Metrics:       metrics,
		CORSOrigins:   cfg.CORSOrigins,
		VisitHandler:  handlerset.Visit,
		HealthHandler: handlerset.Health,
	}
	if cfg.OtelEnabled {
		routerCfg.ServiceName = cfg.OtelServiceName
	}
	if local := clients.Media.Local; local != nil {
		routerCfg.LocalMediaPath = local.URLPath()
		routerCfg.LocalMediaDir = local.Dir()
	}

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       fhttp.NewServer(net.JoinHostPort("", cfg.Port), routerCfg),
		Cfg:          cfg,
		Clients:      clients,
		Services:     serviceset,
		Metrics:      metrics,
		shutdownOTel: shutdownOTel,
	}, nil
}

// Start launches the background collectors.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
	if a.Clients.DayCounter != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.DayCounter.Client())
	}
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "port", a.Cfg.Port)
	return a.Server.Run()
}

// Shutdown stops accepting requests and waits for in-flight batches.
func (a *App) Shutdown(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return nil
	}
	return a.Server.Shutdown(ctx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.shutdownOTel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.shutdownOTel(ctx); err != nil && a.Log != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
