package rain

import (
	"sync"
	"time"
)

// globalSessionKey folds every device onto one session when per-device
// tracking is disabled.
const globalSessionKey = ""

type session struct {
	raining bool
	lastEnd time.Time
	ended   bool // lastEnd is valid only after the first episode has ended
}

// Tracker turns the classifier's per-sample booleans into episode boundaries.
//
// It is a 2-state machine per session key: transitions are edge-triggered on
// the detected flag, and a re-entry within the cooldown window after an
// episode end is folded into the previous episode (no new alert). Observe
// must be called once per ingested sample; an internal mutex serializes
// calls so concurrent ingestion cannot reorder transitions.
type Tracker struct {
	mu        sync.Mutex
	cooldown  time.Duration
	perDevice bool
	sessions  map[string]*session
}

// NewTracker creates a Tracker with the given cooldown window. When
// perDevice is false all devices share a single session, matching
// single-sensor deployments.
func NewTracker(cooldown time.Duration, perDevice bool) *Tracker {
	return &Tracker{
		cooldown:  cooldown,
		perDevice: perDevice,
		sessions:  make(map[string]*session),
	}
}

// Observe applies one sample and reports whether it starts a new episode.
//
// A true sample while not raining re-enters the raining state; it counts as
// a new episode only when no previous episode has ended or the gap since the
// last end exceeds the cooldown. A false sample while raining ends the
// episode and records the end time. Anything else is a no-op.
func (t *Tracker) Observe(deviceID string, detected bool, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.session(deviceID)
	switch {
	case detected && !s.raining:
		s.raining = true
		return !s.ended || now.Sub(s.lastEnd) > t.cooldown
	case !detected && s.raining:
		s.raining = false
		s.lastEnd = now
		s.ended = true
	}
	return false
}

// State returns a copy of the device's current session state.
func (t *Tracker) State(deviceID string) SessionState {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.session(deviceID)
	state := SessionState{IsRaining: s.raining}
	if s.ended {
		end := s.lastEnd
		state.LastRainEnd = &end
	}
	return state
}

func (t *Tracker) session(deviceID string) *session {
	key := globalSessionKey
	if t.perDevice {
		key = deviceID
	}

	s, ok := t.sessions[key]
	if !ok {
		s = &session{}
		t.sessions[key] = s
	}
	return s
}
