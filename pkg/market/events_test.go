package market

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var universe = []string{"AMC", "BONK", "DOGE", "GME", "PEPE"}

func TestTriggerUnknownEvent(t *testing.T) {
	_, err := NewBoard().Trigger("moon_landing", 0, universe)
	assert.True(t, errors.Is(err, ErrUnknownEvent))
}

func TestTriggerEmptyUniverse(t *testing.T) {
	_, err := NewBoard().Trigger("meme_crash", 0, nil)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestTriggerDurations(t *testing.T) {
	clock := newFakeClock()
	b := NewBoard(WithBoardClock(clock.Now))

	ev, err := b.Trigger("meme_crash", 0, universe)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, ev.EndsAt.Sub(ev.StartsAt), "default duration from catalog")
	assert.Equal(t, clock.Now(), ev.StartsAt)
	assert.NotEmpty(t, ev.ID)

	ev, err = b.Trigger("VIRAL_SURGE", 5*time.Minute, universe)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, ev.EndsAt.Sub(ev.StartsAt))
	assert.Equal(t, "viral_surge", ev.EventName)

	ev, err = b.Trigger("paper_hands", 72*time.Hour, universe)
	require.NoError(t, err)
	assert.Equal(t, MaxEventDuration, ev.EndsAt.Sub(ev.StartsAt), "duration is capped")
}

func TestTriggerAffectedShare(t *testing.T) {
	cases := map[string]int{
		"meme_crash":    3, // ceil(0.5*5)
		"viral_surge":   2, // ceil(0.3*5)
		"diamond_hands": 3,
		"paper_hands":   2,
		"market_freeze": 5,
	}
	b := NewBoard()
	for name, want := range cases {
		ev, err := b.Trigger(name, 0, universe)
		require.NoError(t, err)
		assert.Len(t, ev.AffectedInstruments, want, name)

		seen := map[string]bool{}
		for _, s := range ev.AffectedInstruments {
			assert.Contains(t, universe, s)
			assert.False(t, seen[s], "duplicate %s", s)
			seen[s] = true
		}
	}

	ev, err := b.Trigger("viral_surge", 0, []string{"solo", "SOLO"})
	require.NoError(t, err)
	assert.Equal(t, []string{"SOLO"}, ev.AffectedInstruments, "at least one, de-duplicated")
}

func TestBoardOverlapLatestWins(t *testing.T) {
	clock := newFakeClock()
	b := NewBoard(WithBoardClock(clock.Now))
	only := []string{"DOGE"}

	first, err := b.Trigger("diamond_hands", 0, only)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	second, err := b.Trigger("meme_crash", 0, only)
	require.NoError(t, err)

	got, ok := b.For("DOGE", clock.Now())
	require.True(t, ok)
	assert.Equal(t, second.ID, got.ID)

	assert.True(t, b.Cancel(second.ID))
	assert.False(t, b.Cancel(second.ID), "already cancelled")
	got, ok = b.For("DOGE", clock.Now())
	require.True(t, ok)
	assert.Equal(t, first.ID, got.ID)

	_, ok = b.For("GME", clock.Now())
	assert.False(t, ok)
}

func TestBoardExpiryAndCancelAll(t *testing.T) {
	clock := newFakeClock()
	b := NewBoard(WithBoardClock(clock.Now))

	_, err := b.Trigger("market_freeze", 0, universe)
	require.NoError(t, err)
	_, err = b.Trigger("diamond_hands", 0, universe)
	require.NoError(t, err)
	assert.Len(t, b.Active(), 2)

	clock.Advance(10 * time.Minute)
	assert.Len(t, b.Active(), 1, "freeze expires at exactly its end time")

	assert.Equal(t, 1, b.CancelAll())
	assert.Empty(t, b.Active())
	assert.Equal(t, 0, b.CancelAll())
}

func TestEventCatalog(t *testing.T) {
	specs := EventCatalog()
	require.Len(t, specs, 5)
	assert.Equal(t, "diamond_hands", specs[0].Name)

	crash, ok := LookupEvent("Meme_Crash")
	require.True(t, ok)
	assert.Equal(t, 0.15, crash.Volatility)
	assert.Equal(t, -0.05, crash.Drift)
}
