// Package bootstrap wires configuration, storage and services for the
// server and the admin CLI.
package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"accommodation-portal/config"
	"accommodation-portal/internal/event"
	"accommodation-portal/internal/repository"
	"accommodation-portal/internal/service"
	"accommodation-portal/pkg/database"
	"accommodation-portal/pkg/jwt"
	applogger "accommodation-portal/pkg/logger"
	"accommodation-portal/pkg/redis"
)

// App holds the dependencies shared by every entrypoint
type App struct {
	Cfg     *config.Config
	Logger  *zap.Logger
	DB      *gorm.DB
	Redis   *redis.Client // nil when Redis is unreachable
	Repo    *repository.Repository
	JWT     *jwt.Manager
	Service *service.Service
}

// Options controls what Open connects to
type Options struct {
	ConfigPath string
	EnvFile    string // defaults to .env; a missing file is ignored
	UseRedis   bool
}

// Open loads .env and the config, then connects the database and,
// when asked, Redis. Redis failures degrade instead of aborting.
func Open(opts Options) (*App, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Sync()
		return nil, err
	}

	app := &App{
		Cfg:    cfg,
		Logger: logger,
		DB:     db,
		Repo:   repository.NewRepository(db),
		JWT:    jwt.NewManager(&cfg.Auth),
	}

	if opts.UseRedis {
		rdb, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("redis unavailable, token revocation and rate limiting are disabled", zap.Error(err))
		} else {
			app.Redis = rdb
		}
	}

	app.Service = service.NewService(cfg, app.Repo, app.JWT, app.tokenStore(), app.Dispatcher(), logger)
	return app, nil
}

// Dispatcher builds the event fan-out configured in events.*
func (a *App) Dispatcher() *event.Dispatcher {
	var sinks []event.Sink
	if a.Cfg.Events.RecordAnalytics {
		sinks = append(sinks, event.NewAnalyticsSink(a.Repo.UserEvent))
	}
	if a.Cfg.Events.Notify {
		sinks = append(sinks, event.NewNotificationSink(a.Repo.Notification))
	}
	if a.Redis != nil && a.Cfg.Events.RedisChannel != "" {
		sinks = append(sinks, event.NewPublishSink(a.Redis, a.Cfg.Events.RedisChannel))
	}
	return event.NewDispatcher(a.Logger, sinks...)
}

// tokenStore keeps a nil *redis.Client out of the interface
func (a *App) tokenStore() service.TokenStore {
	if a.Redis == nil {
		return nil
	}
	return a.Redis
}

// Migrate applies every pending migration
func (a *App) Migrate() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	return database.RunMigrations(sqlDB, a.Logger)
}

// Rollback reverts steps migrations
func (a *App) Rollback(steps int) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	return database.RollbackMigrations(sqlDB, steps, a.Logger)
}

// Close releases the database and Redis connections and flushes the logger
func (a *App) Close() {
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	_ = a.Logger.Sync()
}
