package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sony/gobreaker"
)

// ErrEndpointGone reports that the push endpoint is permanently invalid and
// the subscription should be pruned.
var ErrEndpointGone = errors.New("push endpoint gone")

// errBreakerOpen reports that the outbound push transport is shedding load.
var errBreakerOpen = errors.New("push transport circuit open")

// Sender delivers one payload to one subscription. Implementations report a
// permanently invalid endpoint by returning an error wrapping
// ErrEndpointGone; every other failure is transient.
type Sender interface {
	Send(ctx context.Context, sub Subscription, payload Payload) error
}

// VAPIDConfig holds the web-push credentials: the application server key
// pair plus the administrative contact sent to the push service.
type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

// WebPushSender delivers payloads over the Web Push protocol. Outbound calls
// run behind a circuit breaker so a degraded push service sheds quickly
// instead of tying up delivery goroutines; an open breaker counts as a
// transient failure.
type WebPushSender struct {
	options webpush.Options
	breaker *gobreaker.CircuitBreaker
}

// NewWebPushSender creates a sender using the given VAPID credentials.
func NewWebPushSender(cfg VAPIDConfig) *WebPushSender {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "webpush",
		MaxRequests: 3,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A gone endpoint is a per-subscriber outcome, not a transport
		// fault; it must not trip the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrEndpointGone)
		},
	})

	return &WebPushSender{
		options: webpush.Options{
			Subscriber:      cfg.Subject,
			VAPIDPublicKey:  cfg.PublicKey,
			VAPIDPrivateKey: cfg.PrivateKey,
			TTL:             60,
		},
		breaker: breaker,
	}
}

// Send delivers the payload to a single subscription.
func (s *WebPushSender) Send(ctx context.Context, sub Subscription, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	target := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}

	options := s.options

	_, err = s.breaker.Execute(func() (any, error) {
		response, sendErr := webpush.SendNotificationWithContext(ctx, body, target, &options)
		if sendErr != nil {
			return nil, sendErr
		}
		defer response.Body.Close()

		switch {
		case response.StatusCode == http.StatusNotFound || response.StatusCode == http.StatusGone:
			return nil, fmt.Errorf("endpoint %s: %w", sub.Endpoint, ErrEndpointGone)
		case response.StatusCode >= http.StatusBadRequest:
			return nil, fmt.Errorf("push service status %d", response.StatusCode)
		}
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", errBreakerOpen, err)
		}
		return err
	}
	return nil
}
