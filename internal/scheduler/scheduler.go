// Package scheduler runs the periodic store health watchdog. A database that
// is down at startup is not fatal; the watchdog reports when it comes back.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/rainwatch/rain-monitor/internal/metrics"
	"github.com/rainwatch/rain-monitor/internal/rain"
)

// Watchdog periodically pings the reading store, logs availability
// transitions, and keeps the store_up gauge current.
type Watchdog struct {
	scheduler *gocron.Scheduler
	store     rain.Store
	interval  time.Duration
	logger    *slog.Logger

	up bool
}

// New creates a Watchdog probing store every interval.
func New(store rain.Store, interval time.Duration, logger *slog.Logger) *Watchdog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watchdog{
		scheduler: gocron.NewScheduler(time.UTC),
		store:     store,
		interval:  interval,
		logger:    logger,
		// Assume reachable until the first probe says otherwise, so an
		// unreachable database at startup is logged once, not spammed.
		up: true,
	}
}

// Start schedules the probe job and starts the underlying scheduler.
func (w *Watchdog) Start() error {
	seconds := int(w.interval.Seconds())
	if seconds <= 0 {
		seconds = 30
	}

	_, err := w.scheduler.Every(seconds).Seconds().Do(w.probe)
	if err != nil {
		return err
	}

	w.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future probes.
func (w *Watchdog) Stop() {
	if w.scheduler != nil {
		w.scheduler.Stop()
	}
}

func (w *Watchdog) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := w.store.Ping(ctx)
	up := err == nil

	if up != w.up {
		if up {
			w.logger.Info("reading store is reachable")
		} else {
			w.logger.Error("reading store is unreachable", "error", err)
		}
	}
	w.up = up

	if up {
		metrics.StoreUp.Set(1)
	} else {
		metrics.StoreUp.Set(0)
	}
}
