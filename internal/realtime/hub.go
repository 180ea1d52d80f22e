// Package realtime fans ingested readings out to connected dashboard
// viewers.
package realtime

import (
	"sync"
	"time"

	"github.com/rainwatch/rain-monitor/internal/metrics"
	"github.com/rainwatch/rain-monitor/internal/rain"
)

// EventRainAlert is the event name streamed to viewers on every ingested
// sample.
const EventRainAlert = "rain_alert"

// Event is one message on the real-time channel.
type Event struct {
	Name    string       `json:"event"`
	Payload EventPayload `json:"payload"`
}

// EventPayload carries the public fields of a stored reading.
type EventPayload struct {
	Timestamp    time.Time `json:"timestamp"`
	Temperature  *float64  `json:"temperature"`
	Humidity     *float64  `json:"humidity"`
	RainDetected bool      `json:"rain_detected"`
	DeviceID     string    `json:"device_id"`
}

// Hub broadcasts events to subscribers over per-subscriber buffered
// channels. Slow viewers drop events instead of blocking ingestion.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uint64]chan Event
	nextID      uint64
	bufferSize  int
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uint64]chan Event),
		bufferSize:  32,
	}
}

// Subscribe registers a viewer and returns its event channel plus a cleanup
// function. The channel is closed on unsubscribe.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	channel := make(chan Event, h.bufferSize)
	h.subscribers[id] = channel
	metrics.RealtimeViewers.Set(float64(len(h.subscribers)))
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if sub, ok := h.subscribers[id]; ok {
			delete(h.subscribers, id)
			close(sub)
		}
		metrics.RealtimeViewers.Set(float64(len(h.subscribers)))
		h.mu.Unlock()
	}

	return channel, unsubscribe
}

// PublishReading broadcasts a stored reading's public fields to all viewers.
func (h *Hub) PublishReading(reading rain.Reading) {
	event := Event{
		Name: EventRainAlert,
		Payload: EventPayload{
			Timestamp:    reading.Timestamp,
			Temperature:  reading.Temperature,
			Humidity:     reading.Humidity,
			RainDetected: reading.RainDetected,
			DeviceID:     reading.DeviceID,
		},
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, subscriber := range h.subscribers {
		select {
		case subscriber <- event:
		default:
			// Viewer is lagging; drop so ingestion never blocks.
		}
	}
}

// Viewers returns the number of connected subscribers.
func (h *Hub) Viewers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
