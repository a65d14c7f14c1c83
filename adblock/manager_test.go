package adblock

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"adfilter/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testList = `! Title: Test list
||ads.example.com^
||*.tracker.example^$3p
@@||ok.tracker.example^
`

// newListServer serves testList with an ETag and counts full downloads.
func newListServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var downloads atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/list.txt", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		downloads.Add(1)
		w.Header().Set("ETag", `"v1"`)
		fmt.Fprint(w, testList)
	})
	mux.HandleFunc("/broken.txt", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &downloads
}

func newTestManager(t *testing.T, urls ...string) *AdBlockManager {
	t.Helper()

	m, err := NewManager(&config.AdBlockConfig{
		Enable:              true,
		Engine:              "native",
		RuleURLs:            urls,
		CacheDir:            t.TempDir(),
		UpdateIntervalHours: 24,
		MaxConcurrent:       2,
		DownloadTimeoutSec:  5,
	}, config.CacheConfig{MaxEntries: 10, TTLMinutes: 30})
	require.NoError(t, err)
	return m
}

func TestManagerUpdateAndCheck(t *testing.T) {
	srv, downloads := newListServer(t)
	listURL := srv.URL + "/list.txt"
	m := newTestManager(t, listURL, srv.URL+"/broken.txt")
	ctx := context.Background()

	res, err := m.UpdateRules(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalRules)
	assert.Equal(t, 2, res.Sources)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, []string{srv.URL + "/broken.txt"}, res.FailedSources)
	assert.Equal(t, int32(1), downloads.Load())

	tr := m.CheckURL("https://ads.example.com/banner.js", MatchContext{})
	assert.True(t, tr.Blocked)
	assert.Equal(t, "blocked", tr.Decision)
	assert.Equal(t, "ads.example.com", tr.Host)
	assert.Equal(t, "||ads.example.com^", tr.Rule)

	third := true
	assert.True(t, m.CheckURL("x.tracker.example", MatchContext{IsThirdParty: &third}).Blocked)
	assert.False(t, m.CheckURL("x.tracker.example", MatchContext{}).Blocked)
	assert.Equal(t, "allowed", m.CheckURL("ok.tracker.example", MatchContext{IsThirdParty: &third}).Decision)

	stats := m.GetStats()
	assert.Equal(t, int64(4), stats.CheckedTotal)
	assert.Equal(t, int64(2), stats.BlockedTotal)
	assert.Equal(t, int64(1), stats.AllowedTotal)
	assert.Equal(t, 3, stats.TotalRules)
	assert.Equal(t, "native", stats.Engine)
	assert.Equal(t, []string{srv.URL + "/broken.txt"}, stats.FailedSources)
	assert.NotEmpty(t, stats.LastUpdate)

	for _, s := range m.GetSources() {
		if s.URL == listURL {
			assert.Equal(t, StatusActive, s.Status)
			assert.Equal(t, 3, s.RuleCount)
			assert.Equal(t, 5, s.LineCount)
		}
	}
}

func TestManagerConditionalDownload(t *testing.T) {
	srv, downloads := newListServer(t)
	m := newTestManager(t, srv.URL+"/list.txt")
	ctx := context.Background()

	_, err := m.UpdateRules(ctx, false)
	require.NoError(t, err)

	// 未过期时不下载
	res, err := m.UpdateRules(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Updated)

	// forced update sends the ETag and gets 304
	res, err = m.UpdateRules(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 3, res.TotalRules)
	assert.Equal(t, int32(1), downloads.Load())

	// every reload parsed identical text, so later parses hit the cache
	cs := m.CacheStats()
	assert.Equal(t, 1, cs.Entries)
	assert.GreaterOrEqual(t, cs.Hits, uint64(2))
}

func TestManagerSetEnabled(t *testing.T) {
	srv, _ := newListServer(t)
	m := newTestManager(t, srv.URL+"/list.txt")
	_, err := m.UpdateRules(context.Background(), true)
	require.NoError(t, err)

	m.SetEnabled(false)
	assert.False(t, m.Enabled())
	tr := m.CheckURL("ads.example.com", MatchContext{})
	assert.False(t, tr.Blocked)
	assert.Equal(t, "neutral", tr.Decision)
	assert.Equal(t, int64(0), m.GetStats().CheckedTotal)

	m.SetEnabled(true)
	assert.True(t, m.CheckURL("ads.example.com", MatchContext{}).Blocked)
}

func TestManagerSourceToggle(t *testing.T) {
	srv, _ := newListServer(t)
	listURL := srv.URL + "/list.txt"
	m := newTestManager(t, listURL)
	ctx := context.Background()

	_, err := m.UpdateRules(ctx, true)
	require.NoError(t, err)

	require.NoError(t, m.SetSourceEnabled(ctx, listURL, false))
	assert.False(t, m.CheckURL("ads.example.com", MatchContext{}).Blocked)
	assert.Equal(t, 0, m.GetStats().TotalRules)

	require.NoError(t, m.SetSourceEnabled(ctx, listURL, true))
	assert.True(t, m.CheckURL("ads.example.com", MatchContext{}).Blocked)

	assert.Error(t, m.SetSourceEnabled(ctx, "https://unknown.example/", true))

	require.NoError(t, m.RemoveSource(ctx, listURL))
	assert.Empty(t, m.GetSources())
	assert.False(t, m.CheckURL("ads.example.com", MatchContext{}).Blocked)
}

func TestManagerURLFilterEngine(t *testing.T) {
	srv, _ := newListServer(t)
	m, err := NewManager(&config.AdBlockConfig{
		Enable:   true,
		Engine:   "urlfilter",
		RuleURLs: []string{srv.URL + "/list.txt"},
		CacheDir: t.TempDir(),
	}, config.CacheConfig{})
	require.NoError(t, err)

	_, err = m.UpdateRules(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, m.CheckURL("ads.example.com", MatchContext{}).Blocked)
	assert.Equal(t, "urlfilter", m.GetStats().Engine)
}

func TestManagerParseCachedConcurrent(t *testing.T) {
	m := newTestManager(t)
	text := "||a.com^\n||b.com^\n@@||c.com^"

	var wg sync.WaitGroup
	results := make([]*RuleSet, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = m.ParseCached("src", text)
		}()
	}
	wg.Wait()

	for _, rs := range results {
		require.NotNil(t, rs)
		assert.Equal(t, 3, rs.Metadata.RuleCount)
		assert.Equal(t, "src", rs.Metadata.Source)
	}
	// callers get independent copies
	results[0].BlockRules[0].Pattern = "mutated.com"
	assert.Equal(t, "a.com", m.ParseText(text).BlockRules[0].Pattern)

	assert.Equal(t, 1, m.CacheStats().Entries)
	m.ClearCache()
	assert.Equal(t, 0, m.CacheStats().Entries)
}

func TestManagerWatchesLocalFile(t *testing.T) {
	// background reloads may still write metadata after the test returns,
	// so the directory is removed without failing the test
	dir, err := os.MkdirTemp("", "adfilter-watch-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	rulesPath := filepath.Join(dir, "custom.txt")

	m, err := NewManager(&config.AdBlockConfig{
		Enable:          true,
		Engine:          "native",
		CustomRulesFile: rulesPath,
		CacheDir:        filepath.Join(dir, "cache"),
		WatchFiles:      true,
	}, config.CacheConfig{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	require.NoError(t, os.WriteFile(rulesPath, []byte("||local.example^\n"), 0644))

	assert.Eventually(t, func() bool {
		return m.CheckURL("local.example", MatchContext{}).Blocked
	}, 5*time.Second, 50*time.Millisecond)
}
