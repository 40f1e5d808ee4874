package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/studymate/backend/internal/config"
	"github.com/studymate/backend/internal/jobs/cleanup"
	"github.com/studymate/backend/internal/repo/memory"
	pgrepo "github.com/studymate/backend/internal/repo/postgres"
	redrepo "github.com/studymate/backend/internal/repo/redis"
	authsvc "github.com/studymate/backend/internal/services/auth"
	notificationssvc "github.com/studymate/backend/internal/services/notifications"
	"github.com/studymate/backend/internal/services/rate"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	memory     *memory.Store
	retention  *cleanup.Job
	stopJobs   context.CancelFunc
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	app := &App{cfg: cfg, logger: log}

	var st storage
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case config.StorageDriverMemory:
		app.memory = memory.NewStore()
		st = memoryStorage(app.memory)
	default:
		pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		if cfg.Postgres.Migrate {
			if err := pgrepo.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		app.postgres = pool
		st = postgresStorage(pool)
	}

	// Postgres deployments share rate windows through redis and cannot run
	// without it. The in-process driver degrades to no limits instead.
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		client, err := redrepo.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		switch {
		case err == nil:
			app.redis = client
		case app.memory != nil:
			log.Warn("redis init failed, rate limits and publishing disabled", zap.Error(err))
		default:
			app.closeStores()
			return nil, fmt.Errorf("init redis: %w", err)
		}
	} else if app.memory == nil {
		app.closeStores()
		return nil, fmt.Errorf("redis address is required for the postgres driver")
	}

	var limiter *rate.Limiter
	var publisher notificationssvc.Publisher
	if app.redis != nil {
		limiter = rate.NewLimiter(redrepo.NewRateRepo(app.redis), rate.Limits{
			LikesPerMinute:   cfg.Limits.LikeMaxPerMin,
			ReportsPer10Mins: cfg.Limits.ReportMaxPer10Min,
		})
		if cfg.Notifications.Publish {
			publisher = redrepo.NewNotificationPublisher(app.redis, cfg.Notifications.ChannelPrefix)
		}
	}

	svc := newServices(st, limiter, publisher, log)
	app.retention = cleanup.NewNotificationRetentionJob(
		st.notifications,
		cfg.Notifications.ReadRetention,
		cfg.Notifications.CleanupInterval,
		log.Named("cleanup"),
	)

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)
	RegisterRoutes(r, Dependencies{
		Verifier:            authsvc.NewVerifier(cfg.Auth.JWTSecret),
		MatchService:        svc.matches,
		ChannelService:      svc.channels,
		RelationshipService: svc.relationships,
		NotificationService: svc.notifications,
		AccountService:      svc.accounts,
		StorageDriver:       st.driver,
		Logger:              log,
	})

	app.httpRouter = r
	app.server = &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	log.Info("api app initialised",
		zap.String("storage", st.driver),
		zap.Bool("rate_limits", limiter != nil),
		zap.Bool("publish", publisher != nil),
	)
	return app, nil
}

func (a *App) Run() error {
	jobsCtx, cancel := context.WithCancel(context.Background())
	a.stopJobs = cancel
	go a.retention.Start(jobsCtx)

	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if a.stopJobs != nil {
		a.stopJobs()
	}
	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}
	a.closeStores()

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

// Memory returns the in-process store when the memory driver is active.
func (a *App) Memory() *memory.Store {
	return a.memory
}

func (a *App) closeStores() {
	if a.postgres != nil {
		a.postgres.Close()
		a.postgres = nil
	}
}
