package adblock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsRecord(t *testing.T) {
	s := NewStats()

	s.Record("a.com", MatchResult{Decision: DecisionBlocked, Rule: "||a.com^"})
	s.Record("x.a.com", MatchResult{Decision: DecisionBlocked, Rule: "||*.a.com^"})
	s.Record("b.com", MatchResult{Decision: DecisionAllowed, Rule: "@@||b.com^"})
	s.Record("c.com", MatchResult{})

	st := s.GetStats(true, "native", 10, 2, nil, time.Time{})
	assert.Equal(t, int64(4), st.CheckedTotal)
	assert.Equal(t, int64(2), st.BlockedTotal)
	assert.Equal(t, int64(2), st.BlockedToday)
	assert.Equal(t, int64(1), st.AllowedTotal)
	assert.Equal(t, "native", st.Engine)
	assert.Empty(t, st.LastUpdate)

	require.Len(t, st.RecentlyBlocked, 2)
	assert.Equal(t, "x.a.com", st.RecentlyBlocked[0].Host)
	assert.Equal(t, "||*.a.com^", st.RecentlyBlocked[0].Rule)
	assert.Equal(t, "a.com", st.RecentlyBlocked[1].Host)
}

func TestStatsDailyReset(t *testing.T) {
	s := NewStats()
	day := time.Date(2024, 5, 1, 23, 0, 0, 0, time.Local)
	s.lastReset = day
	s.now = func() time.Time { return day }

	s.Record("a.com", MatchResult{Decision: DecisionBlocked})
	s.now = func() time.Time { return day.Add(2 * time.Hour) }
	s.Record("a.com", MatchResult{Decision: DecisionBlocked})

	st := s.GetStats(true, "native", 0, 0, nil, day)
	assert.Equal(t, int64(1), st.BlockedToday)
	assert.Equal(t, int64(2), st.BlockedTotal)
	assert.Equal(t, day.Format(time.RFC3339), st.LastUpdate)
}
