// Command debtsweep runs the maintenance jobs once, for cron or a Kubernetes
// CronJob. With -repair it also recomputes the status of every unpaid debt.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go-pos-backoffice/internal/app"
	"go-pos-backoffice/internal/config"
	"go-pos-backoffice/internal/logger"
	"go-pos-backoffice/internal/scheduler"

	"go.uber.org/zap"
)

func main() {
	repair := flag.Bool("repair", false, "recompute the status of every unpaid debt")
	timeout := flag.Duration("timeout", 5*time.Minute, "give up after this long")
	flag.Parse()

	if err := run(*repair, *timeout); err != nil {
		fmt.Fprintln(os.Stderr, "debtsweep:", err)
		os.Exit(1)
	}
}

func run(repair bool, timeout time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if repair {
		updated, skipped, err := a.Debts.RepairStatuses(ctx)
		if err != nil {
			return err
		}
		log.Info("repair finished", zap.Int("updated", updated), zap.Int("skipped", skipped))
	}

	jobs, err := scheduler.New(cfg.SweepSchedule, log.Named("scheduler"), a.SweepJobs()...)
	if err != nil {
		return err
	}
	return jobs.RunOnce(ctx)
}
