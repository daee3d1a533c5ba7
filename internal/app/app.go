// Package app builds the back-office from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"go-pos-backoffice/internal/ai"
	"go-pos-backoffice/internal/auth"
	"go-pos-backoffice/internal/cart"
	"go-pos-backoffice/internal/checkout"
	"go-pos-backoffice/internal/config"
	"go-pos-backoffice/internal/database"
	"go-pos-backoffice/internal/events"
	"go-pos-backoffice/internal/expenditure"
	"go-pos-backoffice/internal/inventory"
	"go-pos-backoffice/internal/ledger"
	"go-pos-backoffice/internal/metrics"
	"go-pos-backoffice/internal/notify"
	"go-pos-backoffice/internal/reporting"
	"go-pos-backoffice/internal/scheduler"
	"go-pos-backoffice/internal/store"
	"go-pos-backoffice/internal/store/memstore"

	"go.uber.org/zap"
)

// App holds the wired services.
type App struct {
	Config  *config.Config
	Log     *zap.Logger
	Store   store.Store
	Metrics *metrics.Metrics
	Tokens  *auth.TokenManager

	Auth         *auth.Service
	Products     *inventory.Service
	Carts        *cart.Service
	Checkout     *checkout.Orchestrator
	Debts        *ledger.Service
	Reports      *reporting.Service
	Expenditures *expenditure.Service
	Assistant    *ai.Agent

	closers []func() error
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log, Metrics: metrics.New()}

	// 1. Storage
	switch cfg.DBDriver {
	case "memory":
		log.Warn("using the in-memory store, data is lost on restart")
		a.Store = memstore.New()
	default:
		db, err := database.Connect(cfg.DBDSN, cfg.DBLogLevel, log)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sqlDB.Close)
		a.Store = database.NewStore(db)
	}

	// 2. Outbound side effects
	var notifier notify.Notifier = notify.NewLogNotifier(log)
	if cfg.SMTPEnabled() {
		notifier = notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, log)
	} else {
		log.Info("SMTP not configured, notifications are logged only")
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.KafkaEnabled() {
		kafka := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		a.closers = append(a.closers, kafka.Close)
		publisher = kafka
	}

	// 3. Services
	a.Tokens = auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	a.Auth = auth.NewService(a.Store.Users(), a.Tokens, cfg.AllowRegistration, log.Named("auth"))
	a.Products = inventory.NewService(a.Store, log.Named("inventory"))
	a.Carts = cart.NewService(a.Store, log.Named("cart"))
	a.Debts = ledger.NewService(a.Store, notifier, publisher, a.Metrics, log.Named("ledger"), cfg.DebtDuePeriod)
	a.Checkout = checkout.NewOrchestrator(a.Store, a.Debts, notifier, publisher, a.Metrics, log.Named("checkout"), cfg.BaseURL)
	a.Reports = reporting.NewService(a.Store, log.Named("reporting"))
	a.Expenditures = expenditure.NewService(a.Store, publisher, log.Named("expenditure"), cfg.AutoApproveAmount())
	a.Assistant = ai.NewAgent(cfg.GeminiAPIKey, ai.Services{Products: a.Products, Reports: a.Reports, Debts: a.Debts}, log.Named("ai"))
	return a, nil
}

// SweepJobs are the periodic maintenance jobs: overdue flips and stale carts.
func (a *App) SweepJobs() []scheduler.Job {
	return []scheduler.Job{
		{
			Name: "debt-overdue-sweep",
			Run: func(ctx context.Context) error {
				_, err := a.Debts.RecomputeOverdueStatuses(ctx)
				return err
			},
		},
		{
			Name: "expire-abandoned-carts",
			Run: func(ctx context.Context) error {
				n, err := a.Carts.ExpireAbandoned(ctx, a.Config.CartTTL)
				a.Metrics.RecordCartsExpired(n)
				return err
			},
		},
	}
}

// Close waits for pending notifications, then releases connections.
func (a *App) Close() error {
	a.Checkout.Wait()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
