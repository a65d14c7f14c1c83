package adblock

import (
	"fmt"
	"strings"
)

// FilterEngine is the interface for adblock filter engines.
type FilterEngine interface {
	// Load replaces the engine's rules. rs must not be modified afterwards.
	Load(rs *RuleSet) error
	Check(rawURL string, ctx MatchContext) MatchResult
	Count() int
	Name() string
}

// NewFilterEngine returns the engine registered under name.
func NewFilterEngine(name string) (FilterEngine, error) {
	switch strings.ToLower(name) {
	case "native", "":
		return NewNativeEngine(), nil
	case "urlfilter":
		return NewURLFilterEngine(), nil
	default:
		return nil, fmt.Errorf("unknown adblock engine: %s", name)
	}
}
