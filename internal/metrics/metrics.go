// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReadingsIngested counts samples accepted through POST /api/data.
	ReadingsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rainwatch_readings_ingested_total",
		Help: "Total number of sensor readings ingested",
	})

	// RainEpisodes counts new rain episode starts.
	RainEpisodes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rainwatch_rain_episodes_total",
		Help: "Total number of detected rain episode starts",
	})

	// Notifications counts push delivery attempts by outcome.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rainwatch_notifications_total",
		Help: "Push notification delivery attempts by outcome",
	}, []string{"result"})

	// Subscribers tracks the size of the push subscription registry.
	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rainwatch_push_subscribers",
		Help: "Current number of registered push subscribers",
	})

	// RealtimeViewers tracks connected WebSocket viewers.
	RealtimeViewers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rainwatch_realtime_viewers",
		Help: "Current number of connected real-time viewers",
	})

	// StoreUp reports reading-store reachability (1 = reachable).
	StoreUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rainwatch_store_up",
		Help: "Whether the reading store is reachable",
	})
)
