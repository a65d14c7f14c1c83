package adblock

import "sync/atomic"

// NativeEngine matches with the built-in domain index and honors every rule
// option, including the page context.
type NativeEngine struct {
	rules atomic.Pointer[RuleSet]
}

// NewNativeEngine creates an engine with no rules.
func NewNativeEngine() *NativeEngine {
	e := &NativeEngine{}
	e.rules.Store(CreateEmptyRuleset())
	return e
}

// Load implements the FilterEngine interface. The index is built here so the
// first request does not pay for it.
func (e *NativeEngine) Load(rs *RuleSet) error {
	if rs == nil {
		rs = CreateEmptyRuleset()
	}
	rs.domainIndex()
	e.rules.Store(rs)
	return nil
}

// Check implements the FilterEngine interface.
func (e *NativeEngine) Check(rawURL string, ctx MatchContext) MatchResult {
	return Match(rawURL, e.rules.Load(), ctx)
}

// Count implements the FilterEngine interface.
func (e *NativeEngine) Count() int {
	return e.rules.Load().Len()
}

// Name implements the FilterEngine interface.
func (e *NativeEngine) Name() string {
	return "native"
}

// RuleSet returns the loaded rules.
func (e *NativeEngine) RuleSet() *RuleSet {
	return e.rules.Load()
}
