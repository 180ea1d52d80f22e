package rain

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rainwatch/rain-monitor/internal/metrics"
)

// AlertTitle is the fixed title of the push notification sent on episode
// start.
const AlertTitle = "🌧️ Rain Alert"

// Store is the contract the reading store must satisfy.
type Store interface {
	InsertReading(ctx context.Context, reading Reading) error
	MarkAlertSent(ctx context.Context, id string) error
	LatestReadings(ctx context.Context, limit int) ([]Reading, error)
	EpisodesSince(ctx context.Context, since time.Time) ([]Reading, error)
	CountReadings(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// Broadcaster delivers a stored reading to connected real-time viewers.
type Broadcaster interface {
	PublishReading(reading Reading)
}

// Notifier fans a push notification out to subscribed endpoints. Dispatch is
// fire-and-forget: it returns before deliveries complete.
type Notifier interface {
	Dispatch(title, body string)
}

// MonthlyStats summarizes episode starts over a trailing window.
type MonthlyStats struct {
	TotalRain int       `json:"total_rain"`
	Details   []Reading `json:"details"`
}

// Service orchestrates ingestion: classify, update session state, persist,
// broadcast, and dispatch a notification on episode start.
type Service struct {
	store      Store
	thresholds Thresholds
	tracker    *Tracker
	broadcast  Broadcaster
	notifier   Notifier
	logger     *slog.Logger
	newID      func() string
	now        func() time.Time

	alerts sync.WaitGroup
}

// NewService creates a Service. broadcast and notifier may be nil, in which
// case the corresponding step is skipped.
func NewService(
	store Store,
	thresholds Thresholds,
	tracker *Tracker,
	broadcast Broadcaster,
	notifier Notifier,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		thresholds: thresholds,
		tracker:    tracker,
		broadcast:  broadcast,
		notifier:   notifier,
		logger:     logger,
		newID:      newReadingID,
		now:        time.Now,
	}
}

// Ingest processes one sensor sample and returns the stored reading plus
// whether it started a new rain episode.
//
// The reading is persisted with RainDetected set to the episode-start flag,
// not the raw classifier output. A persistence failure aborts the whole
// operation; the in-memory session state may already have advanced, which is
// an accepted inconsistency window. Broadcast and notification dispatch
// never block or fail the caller.
func (s *Service) Ingest(ctx context.Context, sample Sample) (Reading, bool, error) {
	now := s.now().UTC()

	detected := s.thresholds.Classify(sample.Temperature, sample.Humidity)

	deviceID := sample.DeviceID
	if deviceID == "" {
		deviceID = DefaultDeviceID
	}

	newEpisode := s.tracker.Observe(deviceID, detected, now)

	reading := Reading{
		ID:           s.newID(),
		Timestamp:    now,
		Temperature:  sample.Temperature,
		Humidity:     sample.Humidity,
		RainDetected: newEpisode,
		AlertSent:    false,
		DeviceID:     deviceID,
	}

	if err := s.store.InsertReading(ctx, reading); err != nil {
		return Reading{}, false, fmt.Errorf("insert reading: %w", err)
	}

	metrics.ReadingsIngested.Inc()
	if newEpisode {
		metrics.RainEpisodes.Inc()
	}

	if s.broadcast != nil {
		s.broadcast.PublishReading(reading)
	}

	if newEpisode && s.notifier != nil {
		s.alerts.Add(1)
		go func() {
			defer s.alerts.Done()
			s.sendAlert(reading)
		}()
	}

	return reading, newEpisode, nil
}

// Latest returns up to limit most recent readings, newest first.
func (s *Service) Latest(ctx context.Context, limit int) ([]Reading, error) {
	return s.store.LatestReadings(ctx, limit)
}

// StatsLastMonth returns episode-start readings from the trailing 30 days,
// newest first.
func (s *Service) StatsLastMonth(ctx context.Context) (MonthlyStats, error) {
	since := s.now().UTC().AddDate(0, 0, -30)

	episodes, err := s.store.EpisodesSince(ctx, since)
	if err != nil {
		return MonthlyStats{}, fmt.Errorf("query episodes: %w", err)
	}
	if episodes == nil {
		episodes = []Reading{}
	}

	return MonthlyStats{TotalRain: len(episodes), Details: episodes}, nil
}

// Records returns the number of stored readings.
func (s *Service) Records(ctx context.Context) (int64, error) {
	return s.store.CountReadings(ctx)
}

// Healthy reports whether the reading store is reachable.
func (s *Service) Healthy(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// SessionState returns the current session state for a device.
func (s *Service) SessionState(deviceID string) SessionState {
	return s.tracker.State(deviceID)
}

// DrainAlerts blocks until all in-flight alert deliveries started by Ingest
// have finished. Called on shutdown and by tests.
func (s *Service) DrainAlerts() {
	s.alerts.Wait()
}

// sendAlert runs off the request path: the sensor's response must not wait
// for push delivery.
func (s *Service) sendAlert(reading Reading) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	body := fmt.Sprintf(
		"Rain detected at %s: humidity %.0f%%, temperature %.1f°C",
		reading.DeviceID,
		floatValue(reading.Humidity),
		floatValue(reading.Temperature),
	)
	s.notifier.Dispatch(AlertTitle, body)

	if err := s.store.MarkAlertSent(ctx, reading.ID); err != nil {
		s.logger.Error("failed to mark alert as sent",
			"reading_id", reading.ID, "error", err)
	}
}

func newReadingID() string {
	return uuid.NewString()
}

func floatValue(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
