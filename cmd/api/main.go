package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baharkarakas/checkflow/internal/api"
	"github.com/baharkarakas/checkflow/internal/auth"
	"github.com/baharkarakas/checkflow/internal/config"
	"github.com/baharkarakas/checkflow/internal/db"
	"github.com/baharkarakas/checkflow/internal/logger"
	"github.com/baharkarakas/checkflow/internal/metrics"
	"github.com/baharkarakas/checkflow/internal/services"
	"github.com/baharkarakas/checkflow/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.NewWithLevel(cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := db.Open(ctx, cfg)
	if err != nil {
		log.Error("db open", "driver", cfg.DBDriver, "err", err)
		os.Exit(1)
	}
	defer repos.Close()

	metrics.Init()
	wp := worker.NewPool(cfg.Audit.Workers, cfg.Audit.Queue)
	// stopped before the store closes so queued audit writes land
	defer wp.Stop()

	svc := services.NewSet(repos, cfg, wp, log, nil)
	tokens := auth.NewTokenManager(cfg.JWT.Issuer, cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	r := api.NewRouter(api.RouterDeps{
		Cfg:      cfg,
		Tokens:   tokens,
		Parties:  svc.Parties,
		Commands: svc.Commands,
		Audit:    svc.Audit,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting",
			"port", cfg.HTTPPort,
			"env", cfg.Env,
			"driver", cfg.DBDriver,
			"revocation_window", cfg.Checks.RevocationWindow.String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
