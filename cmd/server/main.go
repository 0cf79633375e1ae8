package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"accommodation-portal/internal/api/handler"
	"accommodation-portal/internal/api/router"
	"accommodation-portal/internal/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(serve).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// newRootCmd builds the server command; run receives the parsed options
func newRootCmd(run func(context.Context, bootstrap.Options) error) *cobra.Command {
	opts := bootstrap.Options{UseRedis: true}

	cmd := &cobra.Command{
		Use:          "server",
		Short:        "Accommodation portal HTTP API",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to the config file")
	cmd.Flags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before the config")
	return cmd
}

func serve(ctx context.Context, opts bootstrap.Options) error {
	// 1. config, logger, database, redis, services
	app, err := bootstrap.Open(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	cfg, logger := app.Cfg, app.Logger
	logger.Info("starting accommodation portal",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("approval_kind", cfg.Allocation.ApprovalKind),
		zap.Bool("supersede_on_create", cfg.Allocation.SupersedeOnCreate),
	)

	// 2. migrations
	if err := app.Migrate(); err != nil {
		logger.Error("database migration failed", zap.Error(err))
		return err
	}

	// 3. handlers and routes
	h := handler.NewHandler(cfg, app.Service)

	deps := router.Deps{}
	if app.Redis != nil {
		deps.Revocations = app.Redis
		deps.Limiter = app.Redis
	}
	engine := router.Setup(cfg, h, app.JWT, deps, logger)

	// 4. HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		logger.Error("http server failed", zap.Error(err))
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
		return err
	}

	logger.Info("server stopped")
	return nil
}
