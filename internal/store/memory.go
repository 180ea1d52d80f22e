package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rainwatch/rain-monitor/internal/rain"
)

var (
	// ErrNotFound is returned when a reading with the given ID does not exist.
	ErrNotFound = errors.New("reading not found")
)

// MemoryStore is a concurrency-safe in-memory implementation of rain.Store.
// It backs tests and deployments without a configured database.
type MemoryStore struct {
	mu sync.RWMutex

	// readings in insertion (time) order, oldest first
	readings []rain.Reading

	// retention by count; <= 0 means unlimited
	maxReadings int
}

// NewMemoryStore creates a MemoryStore keeping at most maxReadings entries.
func NewMemoryStore(maxReadings int) *MemoryStore {
	return &MemoryStore{maxReadings: maxReadings}
}

// InsertReading appends a reading and enforces retention.
func (s *MemoryStore) InsertReading(_ context.Context, reading rain.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.readings = append(s.readings, reading)
	if s.maxReadings > 0 && len(s.readings) > s.maxReadings {
		over := len(s.readings) - s.maxReadings
		s.readings = s.readings[over:]
	}
	return nil
}

// MarkAlertSent flags the reading with the given ID as alerted.
func (s *MemoryStore) MarkAlertSent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.readings {
		if s.readings[i].ID == id {
			s.readings[i].AlertSent = true
			return nil
		}
	}
	return ErrNotFound
}

// LatestReadings returns up to limit readings, newest first.
func (s *MemoryStore) LatestReadings(_ context.Context, limit int) ([]rain.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.readings) {
		limit = len(s.readings)
	}

	output := make([]rain.Reading, 0, limit)
	for i := len(s.readings) - 1; i >= len(s.readings)-limit; i-- {
		output = append(output, s.readings[i])
	}
	return output, nil
}

// EpisodesSince returns episode-start readings at or after since, newest
// first.
func (s *MemoryStore) EpisodesSince(_ context.Context, since time.Time) ([]rain.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var output []rain.Reading
	for i := len(s.readings) - 1; i >= 0; i-- {
		r := s.readings[i]
		if r.RainDetected && !r.Timestamp.Before(since) {
			output = append(output, r)
		}
	}
	return output, nil
}

// CountReadings returns the number of stored readings.
func (s *MemoryStore) CountReadings(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.readings)), nil
}

// Ping always succeeds; the in-memory store has no backing connection.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}
