package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-pos-backoffice/internal/app"
	"go-pos-backoffice/internal/config"
	"go-pos-backoffice/internal/handlers"
	"go-pos-backoffice/internal/logger"
	"go-pos-backoffice/internal/scheduler"
	"go-pos-backoffice/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.LogFormat == "json" {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("shutdown cleanup failed", zap.Error(err))
		}
	}()

	// Background sweep
	sweep, err := scheduler.New(cfg.SweepSchedule, log.Named("scheduler"), a.SweepJobs()...)
	if err != nil {
		return err
	}
	sweep.Start()
	defer sweep.Stop()

	h := &handlers.Handler{
		Auth:         a.Auth,
		Products:     a.Products,
		Carts:        a.Carts,
		Checkout:     a.Checkout,
		Debts:        a.Debts,
		Reports:      a.Reports,
		Expenditures: a.Expenditures,
		Assistant:    a.Assistant,
		CookieName:   cfg.CookieName,
		CookieSecure: cfg.CookieSecure,
		InstanceID:   utils.InstanceID(),
		Log:          log.Named("http"),
	}
	router, err := handlers.NewRouter(h, handlers.RouterOptions{
		Tokens:            a.Tokens,
		Metrics:           a.Metrics,
		AllowedOrigins:    cfg.AllowedOrigins,
		AllowRegistration: cfg.AllowRegistration,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("instanceId", h.InstanceID))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
