package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGapTrackerHoldsFreshGaps(t *testing.T) {
	g := newGapTracker(time.Minute)
	base := time.Now()

	assert.False(t, g.abandon(5, base), "first observation must hold for a retry")
	assert.False(t, g.abandon(5, base.Add(30*time.Second)), "a gap inside the TTL window is retried")
	assert.True(t, g.abandon(5, base.Add(61*time.Second)), "after the TTL window the message cannot appear anymore")

	// An abandoned seq is forgotten; seeing it again starts a fresh window.
	assert.False(t, g.abandon(5, base.Add(2*time.Minute)))
}

func TestGapTrackerResolveRestartsWindow(t *testing.T) {
	g := newGapTracker(time.Minute)
	base := time.Now()

	require.False(t, g.abandon(7, base))
	g.resolve(7)

	assert.False(t, g.abandon(7, base.Add(2*time.Hour)), "a resolved gap must not inherit the old window")
}

func TestGapTrackerTracksSequencesIndependently(t *testing.T) {
	g := newGapTracker(time.Minute)
	base := time.Now()

	require.False(t, g.abandon(3, base))
	require.False(t, g.abandon(4, base.Add(45*time.Second)))

	assert.True(t, g.abandon(3, base.Add(61*time.Second)))
	assert.False(t, g.abandon(4, base.Add(61*time.Second)), "seq 4 was observed later and keeps its own window")
}
