package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rainwatch/rain-monitor/internal/metrics"
)

const defaultDeliveryTimeout = 20 * time.Second

// Dispatcher fans one payload out to every registered subscription. Each
// delivery runs on its own goroutine with an isolated fault domain: one
// subscriber's failure never blocks or fails the others. A permanent
// delivery failure prunes the subscription from the registry; transient
// failures are logged and the subscription is retained, with no retry.
type Dispatcher struct {
	registry *Registry
	sender   Sender
	logger   *slog.Logger
	timeout  time.Duration

	inflight sync.WaitGroup
}

// NewDispatcher creates a Dispatcher delivering through sender.
func NewDispatcher(registry *Registry, sender Sender, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry: registry,
		sender:   sender,
		logger:   logger,
		timeout:  defaultDeliveryTimeout,
	}
}

// Dispatch sends the message to a snapshot of the current subscribers and
// returns without waiting for deliveries to finish.
func (d *Dispatcher) Dispatch(title, body string) {
	payload := Payload{Title: title, Body: body}

	subs := d.registry.Snapshot()
	if len(subs) == 0 {
		return
	}

	d.logger.Info("dispatching push notification", "subscribers", len(subs))

	for _, sub := range subs {
		d.inflight.Add(1)
		go func(sub Subscription) {
			defer d.inflight.Done()
			d.deliver(sub, payload)
		}(sub)
	}
}

// Drain blocks until all in-flight deliveries have finished or ctx expires.
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) deliver(sub Subscription, payload Payload) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := d.sender.Send(ctx, sub, payload)
	switch {
	case err == nil:
		metrics.Notifications.WithLabelValues("sent").Inc()
	case errors.Is(err, ErrEndpointGone):
		d.registry.Remove(sub)
		metrics.Notifications.WithLabelValues("gone").Inc()
		d.logger.Info("pruned stale push subscription", "endpoint", sub.Endpoint)
	default:
		metrics.Notifications.WithLabelValues("error").Inc()
		d.logger.Warn("push delivery failed",
			"endpoint", sub.Endpoint, "error", err)
	}
}
