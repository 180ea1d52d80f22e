package rain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestObserveIsEdgeTriggered(t *testing.T) {
	tracker := NewTracker(30*time.Minute, false)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// [T, T, T, F, F, T] one minute apart: one episode start at index 0;
	// the re-detection at index 5 is within the cooldown and merges.
	detected := []bool{true, true, true, false, false, true}
	var starts []int
	for i, d := range detected {
		if tracker.Observe("ESP-01", d, base.Add(time.Duration(i)*time.Minute)) {
			starts = append(starts, i)
		}
	}

	require.Equal(t, []int{0}, starts)
	require.True(t, tracker.State("ESP-01").IsRaining, "merged re-entry still re-enters the raining state")
}

func TestObserveCooldownMerge(t *testing.T) {
	tracker := NewTracker(30*time.Minute, false)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.True(t, tracker.Observe("ESP-01", true, base))
	require.False(t, tracker.Observe("ESP-01", false, base.Add(5*time.Minute)))

	// 10 minutes after the end: inside the cooldown, same episode.
	require.False(t, tracker.Observe("ESP-01", true, base.Add(15*time.Minute)))
	require.True(t, tracker.State("ESP-01").IsRaining)
}

func TestObserveCooldownElapsedStartsNewEpisode(t *testing.T) {
	tracker := NewTracker(30*time.Minute, false)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.True(t, tracker.Observe("ESP-01", true, base))
	require.False(t, tracker.Observe("ESP-01", false, base.Add(5*time.Minute)))

	// 40 minutes after the end: cooldown elapsed, new episode.
	require.True(t, tracker.Observe("ESP-01", true, base.Add(45*time.Minute)))
}

func TestObserveRepeatedSamplesAreNoOps(t *testing.T) {
	tracker := NewTracker(30*time.Minute, false)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.False(t, tracker.Observe("ESP-01", false, base), "not raining stays not raining")
	require.True(t, tracker.Observe("ESP-01", true, base.Add(time.Minute)))
	require.False(t, tracker.Observe("ESP-01", true, base.Add(2*time.Minute)), "repeated rain sample is not a new episode")
	require.Nil(t, tracker.State("ESP-01").LastRainEnd, "no episode has ended yet")
}

func TestStateRecordsLastRainEnd(t *testing.T) {
	tracker := NewTracker(30*time.Minute, false)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.Nil(t, tracker.State("ESP-01").LastRainEnd)

	tracker.Observe("ESP-01", true, base)
	require.Nil(t, tracker.State("ESP-01").LastRainEnd, "set only after an episode ends")

	end := base.Add(10 * time.Minute)
	tracker.Observe("ESP-01", false, end)

	state := tracker.State("ESP-01")
	require.False(t, state.IsRaining)
	require.NotNil(t, state.LastRainEnd)
	require.Equal(t, end, *state.LastRainEnd)
}

func TestGlobalSessionSharedAcrossDevices(t *testing.T) {
	tracker := NewTracker(30*time.Minute, false)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.True(t, tracker.Observe("ESP-01", true, base))
	require.False(t, tracker.Observe("ESP-02", true, base.Add(time.Minute)),
		"second device joins the same global episode")
}

func TestPerDeviceSessionsAreIndependent(t *testing.T) {
	tracker := NewTracker(30*time.Minute, true)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.True(t, tracker.Observe("ESP-01", true, base))
	require.True(t, tracker.Observe("ESP-02", true, base.Add(time.Minute)),
		"each device tracks its own episode")

	tracker.Observe("ESP-01", false, base.Add(2*time.Minute))
	require.False(t, tracker.State("ESP-01").IsRaining)
	require.True(t, tracker.State("ESP-02").IsRaining)
}
