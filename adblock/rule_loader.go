package adblock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"adfilter/config"
	"adfilter/logger"

	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxConcurrentDownloads = 5
	defaultDownloadTimeout        = 15 * time.Second
)

// ParseFunc turns the text of one source into a RuleSet.
type ParseFunc func(source, text string) *RuleSet

type RuleLoader struct {
	client        *http.Client
	maxConcurrent int
	sources       *SourceManager
	parse         ParseFunc
}

func NewRuleLoader(cfg *config.AdBlockConfig, sources *SourceManager, parse ParseFunc) *RuleLoader {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentDownloads
	}
	timeout := time.Duration(cfg.DownloadTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = defaultDownloadTimeout
	}
	if parse == nil {
		parse = ParseFilterListFrom
	}

	return &RuleLoader{
		client:        &http.Client{Timeout: timeout},
		maxConcurrent: maxConcurrent,
		sources:       sources,
		parse:         parse,
	}
}

type UpdateResult struct {
	TotalRules      int      `json:"total_rules"`
	TotalLines      int      `json:"total_lines"`
	Sources         int      `json:"sources"`
	Updated         int      `json:"updated"`
	FailedSources   []string `json:"failed_sources"`
	DurationSeconds float64  `json:"duration_seconds"`
}

// errNotModified is returned by download when the server answered 304.
var errNotModified = errors.New("not modified")

// UpdateFromSource refreshes the cached copy of a remote source using ETag and
// Last-Modified. Local sources are only checked for existence.
func (rl *RuleLoader) UpdateFromSource(ctx context.Context, source *SourceInfo) error {
	if source.IsLocal() {
		_, err := os.Stat(source.LocalPath())
		return err
	}

	etag, lastModified, err := rl.download(ctx, source)
	if errors.Is(err, errNotModified) {
		logger.Debugf("[AdBlock] Source %s not modified", source.URL)
		return nil
	}
	if err != nil {
		return err
	}

	rl.sources.mu.Lock()
	source.ETag = etag
	source.LastModified = lastModified
	rl.sources.mu.Unlock()
	return nil
}

func (rl *RuleLoader) download(ctx context.Context, source *SourceInfo) (etag, lastModified string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return "", "", err
	}

	rl.sources.mu.RLock()
	if source.ETag != "" {
		req.Header.Set("If-None-Match", source.ETag)
	}
	if source.LastModified != "" {
		req.Header.Set("If-Modified-Since", source.LastModified)
	}
	rl.sources.mu.RUnlock()

	resp, err := rl.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	cachePath := rl.sources.CachePath(source)
	if resp.StatusCode == http.StatusNotModified {
		if _, statErr := os.Stat(cachePath); statErr == nil {
			return "", "", errNotModified
		}
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("bad status: %s", resp.Status)
	}

	// 先写临时文件，成功后再替换，避免半截文件覆盖旧缓存
	tmp, err := os.CreateTemp(filepath.Dir(cachePath), ".download-*")
	if err != nil {
		return "", "", err
	}
	defer os.Remove(tmp.Name())

	limited := &io.LimitedReader{R: resp.Body, N: MaxListBytes + 1}
	_, err = io.Copy(tmp, limited)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", "", err
	}
	if limited.N == 0 {
		return "", "", fmt.Errorf("file exceeds %d bytes limit", MaxListBytes)
	}

	if err := os.Rename(tmp.Name(), cachePath); err != nil {
		return "", "", err
	}

	return resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), nil
}

// LoadSource reads and parses the cached copy of one source.
func (rl *RuleLoader) LoadSource(source *SourceInfo) (*RuleSet, error) {
	path := rl.sources.CachePath(source)
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > MaxListBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes limit", path, MaxListBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return rl.parse(source.URL, string(data)), nil
}

// LoadAllRules parses every enabled source concurrently. Sources that cannot
// be read are logged and skipped; the returned sets keep source order.
func (rl *RuleLoader) LoadAllRules(ctx context.Context, sources []*SourceInfo) ([]*RuleSet, error) {
	sets := make([]*RuleSet, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(rl.maxConcurrent)

	for i, s := range sources {
		if !rl.sources.isEnabled(s) {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			rs, err := rl.LoadSource(s)
			if err != nil {
				logger.Warnf("[AdBlock] Failed to load rules from %s: %v", s.URL, err)
				return nil
			}
			sets[i] = rs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sets, nil
}
