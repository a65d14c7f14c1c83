package adblock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"adfilter/cache"
	"adfilter/config"
	util "adfilter/internal"
	"adfilter/logger"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// mergedSource labels the rule set built from all enabled sources.
const mergedSource = "merged"

type AdBlockManager struct {
	cfg        *config.AdBlockConfig
	cacheCfg   config.CacheConfig
	engine     FilterEngine
	sourcesMgr *SourceManager
	loader     *RuleLoader
	stats      *Stats
	results    *cache.ResultCache[*RuleSet]
	parses     singleflight.Group
	enabled    atomic.Bool
	mu         sync.RWMutex
	reloadMu   sync.Mutex // serializes rebuilds
	lastUpdate time.Time
}

func NewManager(cfg *config.AdBlockConfig, cacheCfg config.CacheConfig) (*AdBlockManager, error) {
	engine, err := NewFilterEngine(cfg.Engine)
	if err != nil {
		return nil, err
	}

	sourcesMgr, err := NewSourceManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating source manager: %w", err)
	}

	m := &AdBlockManager{
		cfg:        cfg,
		cacheCfg:   cacheCfg,
		engine:     engine,
		sourcesMgr: sourcesMgr,
		stats:      NewStats(),
		results: cache.NewResultCache[*RuleSet](cache.Config{
			MaxEntries: cacheCfg.MaxEntries,
			TTL:        time.Duration(cacheCfg.TTLMinutes) * time.Minute,
		}),
	}
	m.loader = NewRuleLoader(cfg, sourcesMgr, m.ParseCached)
	m.enabled.Store(cfg.Enable)

	return m, nil
}

// Start loads the cached rules, refreshes stale sources and keeps them fresh
// until ctx is done.
func (m *AdBlockManager) Start(ctx context.Context) {
	go func() {
		if err := m.LoadRulesFromCache(ctx); err != nil {
			logger.Warnf("[AdBlock] Failed to load cached rules: %v", err)
		}
		if _, err := m.UpdateRules(ctx, false); err != nil {
			logger.Errorf("[AdBlock] Initial rule update failed: %v", err)
		}
	}()

	go m.results.Run(ctx, time.Duration(m.cacheCfg.CleanupIntervalMinutes)*time.Minute)

	if m.cfg.WatchFiles {
		if err := m.watchLocalSources(ctx); err != nil {
			logger.Warnf("[AdBlock] File watching disabled: %v", err)
		}
	}

	if m.cfg.UpdateIntervalHours > 0 {
		ticker := time.NewTicker(time.Duration(m.cfg.UpdateIntervalHours) * time.Hour)
		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if _, err := m.UpdateRules(ctx, false); err != nil {
						logger.Errorf("[AdBlock] Scheduled rule update failed: %v", err)
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}
}

func (m *AdBlockManager) watchLocalSources(ctx context.Context) error {
	fw, err := newFileWatcher(func() {
		if _, err := m.Reload(ctx); err != nil {
			logger.Errorf("[AdBlock] Reload after file change failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	for _, path := range m.sourcesMgr.LocalPaths() {
		if err := fw.Add(path); err != nil {
			logger.Warnf("[AdBlock] Cannot watch %s: %v", path, err)
		}
	}

	go fw.Run(ctx)
	return nil
}

// ParseCached parses text, reusing the result of an earlier parse of the same
// text. Concurrent parses of the same text run once.
func (m *AdBlockManager) ParseCached(source, text string) *RuleSet {
	key := cache.GenerateCacheKey(text)

	rs, ok := m.results.Get(key)
	if !ok {
		v, _, shared := m.parses.Do(key, func() (any, error) {
			parsed := ParseFilterListFrom(source, text)
			m.results.Save(key, parsed)
			return parsed, nil
		})
		rs = v.(*RuleSet)
		if shared {
			rs = rs.Clone()
		}
	} else {
		logger.Debugf("[AdBlock] Parse cache hit for %s", source)
	}

	if source != "" {
		rs.Metadata.Source = source
	}
	return rs
}

// ParseText parses ad-hoc rules text through the result cache.
func (m *AdBlockManager) ParseText(text string) *RuleSet {
	return m.ParseCached(DefaultSource, text)
}

// UpdateRules downloads every stale source (all enabled sources when force is
// set) and rebuilds the engine.
func (m *AdBlockManager) UpdateRules(ctx context.Context, force bool) (UpdateResult, error) {
	startTime := time.Now()

	sources := m.sourcesMgr.GetAllSources()
	maxAge := time.Duration(m.cfg.UpdateIntervalHours) * time.Hour

	var (
		mu            sync.Mutex
		failedSources []string
		updated       int
	)

	// 仅用来限制并发，单个源失败不影响其他源
	var g errgroup.Group
	g.SetLimit(m.loader.maxConcurrent)

	for _, s := range sources {
		if force {
			if !m.sourcesMgr.isEnabled(s) {
				continue
			}
		} else if !m.sourcesMgr.needsUpdate(s, maxAge) {
			continue
		}

		g.Go(func() error {
			err := m.loader.UpdateFromSource(ctx, s)
			m.sourcesMgr.UpdateSourceStatus(s.URL, err)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warnf("[AdBlock] Failed to update %s: %v", s.URL, err)
				failedSources = append(failedSources, s.URL)
			} else {
				updated++
			}
			return nil
		})
	}
	g.Wait()

	merged, err := m.Reload(ctx)
	if err != nil {
		return UpdateResult{}, err
	}

	if err := m.sourcesMgr.saveMeta(); err != nil {
		logger.Warnf("[AdBlock] Failed to save source metadata: %v", err)
	}

	result := UpdateResult{
		TotalRules:      merged.Len(),
		TotalLines:      merged.Metadata.LineCount,
		Sources:         len(sources),
		Updated:         updated,
		FailedSources:   failedSources,
		DurationSeconds: time.Since(startTime).Seconds(),
	}
	logger.Infof("[AdBlock] Rules updated: %d rules from %d sources (%d downloaded, %d failed) in %.2fs",
		result.TotalRules, result.Sources, result.Updated, len(result.FailedSources), result.DurationSeconds)

	return result, nil
}

// LoadRulesFromCache builds the engine from whatever is already on disk.
func (m *AdBlockManager) LoadRulesFromCache(ctx context.Context) error {
	_, err := m.Reload(ctx)
	return err
}

// Reload parses the cached copies of all enabled sources and swaps in a new
// engine holding their merged rules.
func (m *AdBlockManager) Reload(ctx context.Context) (*RuleSet, error) {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	sources := m.sourcesMgr.GetAllSources()
	sets, err := m.loader.LoadAllRules(ctx, sources)
	if err != nil {
		return nil, err
	}

	for i, rs := range sets {
		if rs != nil {
			m.sourcesMgr.SetSourceCounts(sources[i].URL, rs.Metadata)
		}
	}

	merged := MergeRuleSets(mergedSource, sets...)

	newEngine, err := NewFilterEngine(m.cfg.Engine)
	if err != nil {
		return nil, err
	}
	if err := newEngine.Load(merged); err != nil {
		return nil, fmt.Errorf("loading rules into %s engine: %w", newEngine.Name(), err)
	}

	m.mu.Lock()
	m.engine = newEngine
	m.lastUpdate = time.Now()
	m.mu.Unlock()

	logger.Debugf("[AdBlock] Engine %s loaded %d rules", newEngine.Name(), merged.Len())
	return merged, nil
}

// CheckURL classifies rawURL and records the decision in the statistics.
func (m *AdBlockManager) CheckURL(rawURL string, mctx MatchContext) TestResult {
	if !m.enabled.Load() {
		return NewTestResult(rawURL, MatchResult{})
	}

	m.mu.RLock()
	engine := m.engine
	m.mu.RUnlock()

	mr := engine.Check(rawURL, mctx)
	res := NewTestResult(rawURL, mr)
	m.stats.Record(res.Host, mr)
	return res
}

// SetEnabled dynamically enables or disables AdBlock filtering
func (m *AdBlockManager) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
}

func (m *AdBlockManager) Enabled() bool {
	return m.enabled.Load()
}

func (m *AdBlockManager) GetStats() AdBlockStats {
	m.mu.RLock()
	engine := m.engine
	lastUpdate := m.lastUpdate
	m.mu.RUnlock()

	statuses := m.sourcesMgr.GetStatuses()
	var failedSources []string
	for _, s := range statuses {
		if s.Enabled && (s.Status == StatusFailed || s.Status == StatusBad) {
			failedSources = append(failedSources, s.URL)
		}
	}

	return m.stats.GetStats(m.enabled.Load(), engine.Name(), engine.Count(), len(statuses), failedSources, lastUpdate)
}

func (m *AdBlockManager) GetSources() []SourceStatus {
	return m.sourcesMgr.GetStatuses()
}

func (m *AdBlockManager) AddSource(url string) error {
	m.sourcesMgr.AddSource(url)
	return m.sourcesMgr.saveMeta()
}

func (m *AdBlockManager) RemoveSource(ctx context.Context, url string) error {
	m.sourcesMgr.RemoveSource(url)
	if err := m.sourcesMgr.saveMeta(); err != nil {
		return err
	}
	_, err := m.Reload(ctx)
	return err
}

// SetSourceEnabled toggles a source and reloads the rules.
func (m *AdBlockManager) SetSourceEnabled(ctx context.Context, url string, enabled bool) error {
	if !m.sourcesMgr.SetEnabled(url, enabled) {
		return fmt.Errorf("unknown source: %s", url)
	}
	if err := m.sourcesMgr.saveMeta(); err != nil {
		return err
	}

	_, err := m.Reload(ctx)
	return err
}

func (m *AdBlockManager) CacheStats() cache.Stats {
	return m.results.Stats()
}

func (m *AdBlockManager) ClearCache() {
	m.results.Clear()
}

// TestResult is the JSON form of one classified URL.
type TestResult struct {
	URL      string `json:"url"`
	Host     string `json:"host"`
	Decision string `json:"decision"`
	Blocked  bool   `json:"blocked"`
	Rule     string `json:"rule"`
}

// CacheKey returns the result cache key for text.
func (m *AdBlockManager) CacheKey(text string) string {
	return cache.GenerateCacheKey(text)
}

// NewTestResult describes mr for rawURL.
func NewTestResult(rawURL string, mr MatchResult) TestResult {
	res := TestResult{
		URL:      rawURL,
		Decision: mr.Decision.String(),
		Blocked:  mr.Blocked(),
		Rule:     mr.Rule,
	}
	if host, ok := util.ExtractHost(rawURL); ok {
		res.Host = host
	}
	return res
}
