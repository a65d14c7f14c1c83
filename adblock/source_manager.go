package adblock

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"adfilter/config"
	"adfilter/logger"
)

// Source status values.
const (
	StatusActive = "active"
	StatusFailed = "failed"
	StatusBad    = "bad" // failed badFailCount times in a row
)

const (
	metaFileName = "rules_meta.json"
	badFailCount = 3
)

type SourceStatus struct {
	URL        string    `json:"url"`
	Enabled    bool      `json:"enabled"`
	Status     string    `json:"status"`
	RuleCount  int       `json:"rule_count"`
	LineCount  int       `json:"line_count"`
	LastUpdate time.Time `json:"last_update"`
	LastError  string    `json:"last_error"`
}

type SourceInfo struct {
	URL          string    `json:"url"`
	Enabled      bool      `json:"enabled"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"last_modified"`
	CacheFile    string    `json:"cache_file"`
	RuleCount    int       `json:"rule_count"`
	LineCount    int       `json:"line_count"`
	LastUpdate   time.Time `json:"last_update"`
	LastError    string    `json:"last_error"`
	FailCount    int       `json:"fail_count"`
	Status       string    `json:"status"`
}

// IsLocal reports whether the source is a file on disk rather than a URL.
func (s *SourceInfo) IsLocal() bool {
	return strings.HasPrefix(s.URL, "file://") || !strings.HasPrefix(s.URL, "http")
}

// LocalPath returns the file path of a local source.
func (s *SourceInfo) LocalPath() string {
	return strings.TrimPrefix(s.URL, "file://")
}

type SourceManager struct {
	sources  map[string]*SourceInfo
	cacheDir string
	metaFile string
	mu       sync.RWMutex
}

func NewSourceManager(cfg *config.AdBlockConfig) (*SourceManager, error) {
	if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	sm := &SourceManager{
		sources:  make(map[string]*SourceInfo),
		cacheDir: cfg.CacheDir,
		metaFile: filepath.Join(cfg.CacheDir, metaFileName),
	}

	if err := sm.loadMeta(); err != nil && !os.IsNotExist(err) {
		// 元数据损坏时从空状态开始
		logger.Warnf("[AdBlock] Ignoring unreadable source metadata %s: %v", sm.metaFile, err)
	}

	for _, url := range cfg.RuleURLs {
		sm.AddSource(url)
	}
	if cfg.CustomRulesFile != "" {
		if err := ensureCustomRulesFile(cfg.CustomRulesFile); err != nil {
			return nil, err
		}
		sm.AddSource(cfg.CustomRulesFile)
	}

	return sm, nil
}

func (sm *SourceManager) loadMeta() error {
	data, err := os.ReadFile(sm.metaFile)
	if err != nil {
		return err
	}

	var sources []*SourceInfo
	if err := json.Unmarshal(data, &sources); err != nil {
		return err
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	for _, s := range sources {
		sm.sources[s.URL] = s
	}
	return nil
}

func (sm *SourceManager) saveMeta() error {
	sources := sm.GetAllSources()

	sm.mu.RLock()
	data, err := json.MarshalIndent(sources, "", "  ")
	sm.mu.RUnlock()
	if err != nil {
		return err
	}

	return os.WriteFile(sm.metaFile, data, 0644)
}

func (sm *SourceManager) AddSource(url string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.sources[url]; !exists {
		h := sha256.Sum256([]byte(url))
		sm.sources[url] = &SourceInfo{
			URL:       url,
			Enabled:   true,
			Status:    StatusActive,
			CacheFile: "rules_" + hex.EncodeToString(h[:16]) + ".txt",
		}
	}
}

func (sm *SourceManager) RemoveSource(url string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if source, exists := sm.sources[url]; exists {
		if !source.IsLocal() {
			os.Remove(filepath.Join(sm.cacheDir, source.CacheFile))
		}
		delete(sm.sources, url)
	}
}

func (sm *SourceManager) SetEnabled(url string, enabled bool) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	source, exists := sm.sources[url]
	if exists {
		source.Enabled = enabled
	}
	return exists
}

func (sm *SourceManager) GetSource(url string) *SourceInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sources[url]
}

// GetAllSources returns the sources ordered by URL.
func (sm *SourceManager) GetAllSources() []*SourceInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sources := make([]*SourceInfo, 0, len(sm.sources))
	for _, s := range sm.sources {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].URL < sources[j].URL })
	return sources
}

// CachePath returns where the rules of s are read from.
func (sm *SourceManager) CachePath(s *SourceInfo) string {
	if s.IsLocal() {
		return s.LocalPath()
	}
	return filepath.Join(sm.cacheDir, s.CacheFile)
}

// UpdateSourceStatus records the outcome of a download attempt.
func (sm *SourceManager) UpdateSourceStatus(url string, err error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	source, exists := sm.sources[url]
	if !exists {
		return
	}

	source.LastUpdate = time.Now()
	if err != nil {
		source.LastError = err.Error()
		source.FailCount++
		source.Status = StatusFailed
		if source.FailCount >= badFailCount {
			source.Status = StatusBad
		}
		return
	}

	source.LastError = ""
	source.FailCount = 0
	source.Status = StatusActive
}

// SetSourceCounts stores the line and rule counts of the last parse.
func (sm *SourceManager) SetSourceCounts(url string, meta Metadata) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if source, exists := sm.sources[url]; exists {
		source.RuleCount = meta.RuleCount
		source.LineCount = meta.LineCount
	}
}

// LocalPaths returns the paths of the enabled local sources.
func (sm *SourceManager) LocalPaths() []string {
	var paths []string
	for _, s := range sm.GetAllSources() {
		if s.IsLocal() && sm.isEnabled(s) {
			paths = append(paths, s.LocalPath())
		}
	}
	return paths
}

func (sm *SourceManager) isEnabled(s *SourceInfo) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return s.Enabled
}

// needsUpdate reports whether s is enabled and older than maxAge.
func (sm *SourceManager) needsUpdate(s *SourceInfo, maxAge time.Duration) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return s.Enabled && time.Since(s.LastUpdate) >= maxAge
}

func (sm *SourceManager) GetStatuses() []SourceStatus {
	sources := sm.GetAllSources()

	sm.mu.RLock()
	defer sm.mu.RUnlock()

	statuses := make([]SourceStatus, 0, len(sources))
	for _, s := range sources {
		statuses = append(statuses, SourceStatus{
			URL:        s.URL,
			Enabled:    s.Enabled,
			Status:     s.Status,
			RuleCount:  s.RuleCount,
			LineCount:  s.LineCount,
			LastUpdate: s.LastUpdate,
			LastError:  s.LastError,
		})
	}
	return statuses
}

// ensureCustomRulesFile creates the custom rules file if it doesn't exist
func ensureCustomRulesFile(filePath string) error {
	if _, err := os.Stat(filePath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}

	defaultContent := `! Title: adfilter custom rules
!
! One rule per line:
!   ||ads.example.com^                     block ads.example.com
!   ||*.tracker.example^                   block tracker.example and its subdomains
!   @@||cdn.example.com^                   never block cdn.example.com
!   ||ads.example.com^$domain=news.example  only on pages of news.example
!   ||pixel.example^$3p                    only as a third-party request
!
! Lines starting with ! are comments.
`
	return os.WriteFile(filePath, []byte(defaultContent), 0644)
}
