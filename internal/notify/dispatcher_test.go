package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu        sync.Mutex
	attempted []string

	// failWith maps endpoint to the error its delivery returns.
	failWith map[string]error
}

func (s *fakeSender) Send(_ context.Context, sub Subscription, _ Payload) error {
	s.mu.Lock()
	s.attempted = append(s.attempted, sub.Endpoint)
	err := s.failWith[sub.Endpoint]
	s.mu.Unlock()
	return err
}

func (s *fakeSender) attempts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	output := make([]string, len(s.attempted))
	copy(output, s.attempted)
	return output
}

func drain(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Drain(ctx))
}

func TestDispatchDeliversToAllSubscribers(t *testing.T) {
	registry := NewRegistry()
	for i := 0; i < 5; i++ {
		registry.Add(testSubscription(fmt.Sprintf("https://push.example.com/%d", i)))
	}

	sender := &fakeSender{}
	dispatcher := NewDispatcher(registry, sender, nil)

	dispatcher.Dispatch("Rain Alert", "rain detected")
	drain(t, dispatcher)

	require.Len(t, sender.attempts(), 5)
	require.Equal(t, 5, registry.Len())
}

func TestDispatchPrunesPermanentlyFailedSubscriber(t *testing.T) {
	registry := NewRegistry()
	gone := testSubscription("https://push.example.com/gone")
	registry.Add(gone)
	for i := 0; i < 4; i++ {
		registry.Add(testSubscription(fmt.Sprintf("https://push.example.com/%d", i)))
	}

	sender := &fakeSender{failWith: map[string]error{
		gone.Endpoint: fmt.Errorf("status 410: %w", ErrEndpointGone),
	}}
	dispatcher := NewDispatcher(registry, sender, nil)

	dispatcher.Dispatch("Rain Alert", "rain detected")
	drain(t, dispatcher)

	require.Len(t, sender.attempts(), 5, "one failure never skips the others")
	require.Equal(t, 4, registry.Len())
	require.NotContains(t, keysOf(registry.Snapshot()), gone.Endpoint)
}

func TestDispatchRetainsTransientlyFailedSubscriber(t *testing.T) {
	registry := NewRegistry()
	flaky := testSubscription("https://push.example.com/flaky")
	registry.Add(flaky)

	sender := &fakeSender{failWith: map[string]error{
		flaky.Endpoint: errors.New("connection reset"),
	}}
	dispatcher := NewDispatcher(registry, sender, nil)

	dispatcher.Dispatch("Rain Alert", "rain detected")
	drain(t, dispatcher)

	require.Equal(t, 1, registry.Len(), "transient failure keeps the subscription")
}

func TestDispatchWithNoSubscribersIsNoOp(t *testing.T) {
	registry := NewRegistry()
	sender := &fakeSender{}
	dispatcher := NewDispatcher(registry, sender, nil)

	dispatcher.Dispatch("Rain Alert", "rain detected")
	drain(t, dispatcher)

	require.Empty(t, sender.attempts())
}

func TestDispatchSurvivesMutationDuringFanOut(t *testing.T) {
	registry := NewRegistry()
	for i := 0; i < 20; i++ {
		registry.Add(testSubscription(fmt.Sprintf("https://push.example.com/%d", i)))
	}

	sender := &fakeSender{}
	dispatcher := NewDispatcher(registry, sender, nil)

	dispatcher.Dispatch("Rain Alert", "rain detected")
	// A subscribe request arriving mid fan-out must not disturb delivery.
	registry.Add(testSubscription("https://push.example.com/late"))
	drain(t, dispatcher)

	require.Len(t, sender.attempts(), 20, "fan-out covers the snapshot taken at dispatch time")
	require.Equal(t, 21, registry.Len())
}

func keysOf(subs []Subscription) []string {
	output := make([]string, 0, len(subs))
	for _, sub := range subs {
		output = append(output, sub.Endpoint)
	}
	return output
}
