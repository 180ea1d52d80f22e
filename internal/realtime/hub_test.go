package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rainwatch/rain-monitor/internal/rain"
)

func TestHubDeliversReadingToSubscribers(t *testing.T) {
	hub := NewHub()

	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	reading := rain.Reading{
		Timestamp:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Temperature:  rain.Float(25),
		Humidity:     rain.Float(90),
		RainDetected: true,
		DeviceID:     "ESP-01",
	}
	hub.PublishReading(reading)

	select {
	case event := <-events:
		require.Equal(t, EventRainAlert, event.Name)
		require.Equal(t, "ESP-01", event.Payload.DeviceID)
		require.True(t, event.Payload.RainDetected)
		require.Equal(t, reading.Timestamp, event.Payload.Timestamp)
	case <-time.After(time.Second):
		t.Fatal("expected an event")
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()

	events, unsubscribe := hub.Subscribe()
	require.Equal(t, 1, hub.Viewers())

	unsubscribe()
	require.Equal(t, 0, hub.Viewers())

	_, open := <-events
	require.False(t, open)

	// Unsubscribing twice must not panic.
	unsubscribe()
}

func TestHubSlowViewerNeverBlocksPublish(t *testing.T) {
	hub := NewHub()

	_, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Far more events than the subscriber buffer holds.
		for i := 0; i < 500; i++ {
			hub.PublishReading(rain.Reading{DeviceID: "ESP-01"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow viewer")
	}
}

func TestHubPublishWithNoViewers(t *testing.T) {
	hub := NewHub()
	hub.PublishReading(rain.Reading{DeviceID: "ESP-01"})
	require.Equal(t, 0, hub.Viewers())
}
