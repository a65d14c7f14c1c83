package adblock

import (
	"strings"
	"sync"

	util "adfilter/internal"

	"github.com/AdguardTeam/urlfilter"
	"github.com/AdguardTeam/urlfilter/filterlist"
)

const urlfilterListID = 1

// URLFilterEngine delegates to AdGuard's DNS engine. It only sees the host,
// so domain=, 3p and 1p options never restrict its matches.
type URLFilterEngine struct {
	mu        sync.RWMutex
	engine    *urlfilter.DNSEngine
	ruleCount int
}

func NewURLFilterEngine() *URLFilterEngine {
	return &URLFilterEngine{}
}

// Load implements the FilterEngine interface.
func (e *URLFilterEngine) Load(rs *RuleSet) error {
	var b strings.Builder
	for _, group := range [][]Rule{rs.BlockRules, rs.ExceptionRules} {
		for i := range group {
			b.WriteString(group[i].RawLine)
			b.WriteByte('\n')
		}
	}

	stringList := filterlist.NewString(&filterlist.StringConfig{
		RulesText:      b.String(),
		ID:             urlfilterListID,
		IgnoreCosmetic: true,
	})

	storage, err := filterlist.NewRuleStorage([]filterlist.Interface{stringList})
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.engine = urlfilter.NewDNSEngine(storage)
	e.ruleCount = rs.Len()
	return nil
}

// Check implements the FilterEngine interface.
func (e *URLFilterEngine) Check(rawURL string, _ MatchContext) MatchResult {
	host, ok := util.ExtractHost(rawURL)
	if !ok {
		return MatchResult{}
	}

	e.mu.RLock()
	engine := e.engine
	e.mu.RUnlock()
	if engine == nil {
		return MatchResult{}
	}

	result, matched := engine.Match(strings.ToLower(host))
	if !matched || result == nil || result.NetworkRule == nil {
		return MatchResult{}
	}

	ruleText := result.NetworkRule.Text()
	if strings.HasPrefix(ruleText, exceptionPrefix) {
		return MatchResult{Decision: DecisionAllowed, Rule: ruleText}
	}
	return MatchResult{Decision: DecisionBlocked, Rule: ruleText}
}

// Count implements the FilterEngine interface.
func (e *URLFilterEngine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.engine != nil && e.engine.RulesCount > 0 {
		return e.engine.RulesCount
	}
	return e.ruleCount
}

// Name implements the FilterEngine interface.
func (e *URLFilterEngine) Name() string {
	return "urlfilter"
}
