package adblock

import (
	"sync"
	"sync/atomic"
	"time"

	"adfilter/cache"
)

const recentBlockedSize = 20

// BlockedEntry is one recently blocked request.
type BlockedEntry struct {
	Host string    `json:"host"`
	Rule string    `json:"rule"`
	At   time.Time `json:"at"`
}

// AdBlockStats holds statistics about adblock activity.
type AdBlockStats struct {
	Enabled       bool     `json:"enabled"`
	Engine        string   `json:"engine"`
	TotalRules    int      `json:"total_rules"`
	CheckedTotal  int64    `json:"checked_total"`
	BlockedToday  int64    `json:"blocked_today"`
	BlockedTotal  int64    `json:"blocked_total"`
	AllowedTotal  int64    `json:"allowed_total"`
	LastUpdate    string   `json:"last_update"`
	SourcesCount  int      `json:"sources_count"`
	FailedSources []string `json:"failed_sources"`

	RecentlyBlocked []BlockedEntry `json:"recently_blocked"`
}

// Stats manages adblock statistics.
type Stats struct {
	checkedTotal int64
	blockedTotal int64
	blockedToday int64
	allowedTotal int64
	lastReset    time.Time
	mu           sync.Mutex
	now          func() time.Time
	recent       *cache.RecentList[BlockedEntry]
}

// NewStats creates a new Stats manager.
func NewStats() *Stats {
	return &Stats{
		lastReset: time.Now(),
		now:       time.Now,
		recent:    cache.NewRecentList[BlockedEntry](recentBlockedSize),
	}
}

// Record counts one decision for host.
func (s *Stats) Record(host string, res MatchResult) {
	atomic.AddInt64(&s.checkedTotal, 1)

	switch res.Decision {
	case DecisionAllowed:
		atomic.AddInt64(&s.allowedTotal, 1)
	case DecisionBlocked:
		s.recordBlock()
		s.recent.Add(BlockedEntry{Host: host, Rule: res.Rule, At: s.now()})
	}
}

func (s *Stats) recordBlock() {
	atomic.AddInt64(&s.blockedTotal, 1)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if y, m, d := now.Date(); y != s.lastReset.Year() || m != s.lastReset.Month() || d != s.lastReset.Day() {
		atomic.StoreInt64(&s.blockedToday, 0)
		s.lastReset = now
	}
	atomic.AddInt64(&s.blockedToday, 1)
}

// GetStats returns the current adblock statistics.
func (s *Stats) GetStats(enabled bool, engine string, totalRules int, sourcesCount int, failedSources []string, lastUpdate time.Time) AdBlockStats {
	last := ""
	if !lastUpdate.IsZero() {
		last = lastUpdate.Format(time.RFC3339)
	}

	return AdBlockStats{
		Enabled:       enabled,
		Engine:        engine,
		TotalRules:    totalRules,
		CheckedTotal:  atomic.LoadInt64(&s.checkedTotal),
		BlockedToday:  atomic.LoadInt64(&s.blockedToday),
		BlockedTotal:  atomic.LoadInt64(&s.blockedTotal),
		AllowedTotal:  atomic.LoadInt64(&s.allowedTotal),
		LastUpdate:    last,
		SourcesCount:  sourcesCount,
		FailedSources: failedSources,

		RecentlyBlocked: s.recent.GetAll(),
	}
}
