package adblock

import (
	"sync"
	"time"
)

// RuleKind 规则类型
type RuleKind int

const (
	KindBlock     RuleKind = iota // ||example.com^
	KindException                 // @@||example.com^
)

func (k RuleKind) String() string {
	switch k {
	case KindBlock:
		return "block"
	case KindException:
		return "exception"
	default:
		return "unknown"
	}
}

// RuleOptions holds the parsed `$...` suffix of a rule. A nil flag means the
// option was not given and does not constrain matching.
type RuleOptions struct {
	Domains        []string `json:"domains,omitempty"`
	NegatedDomains []string `json:"negated_domains,omitempty"`
	ThirdParty     *bool    `json:"third_party,omitempty"`
	FirstParty     *bool    `json:"first_party,omitempty"`
	Important      *bool    `json:"important,omitempty"`
	MatchCase      *bool    `json:"match_case,omitempty"`
}

// IsEmpty reports whether no option is set.
func (o RuleOptions) IsEmpty() bool {
	return len(o.Domains) == 0 &&
		len(o.NegatedDomains) == 0 &&
		o.ThirdParty == nil &&
		o.FirstParty == nil &&
		o.Important == nil &&
		o.MatchCase == nil
}

func (o RuleOptions) clone() RuleOptions {
	c := RuleOptions{
		ThirdParty: cloneFlag(o.ThirdParty),
		FirstParty: cloneFlag(o.FirstParty),
		Important:  cloneFlag(o.Important),
		MatchCase:  cloneFlag(o.MatchCase),
	}
	if o.Domains != nil {
		c.Domains = append([]string(nil), o.Domains...)
	}
	if o.NegatedDomains != nil {
		c.NegatedDomains = append([]string(nil), o.NegatedDomains...)
	}
	return c
}

func cloneFlag(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func isSet(b *bool) bool {
	return b != nil && *b
}

// Rule 表示一条解析后的过滤规则
type Rule struct {
	ID      string      `json:"id"`
	Kind    RuleKind    `json:"kind"`
	Pattern string      `json:"pattern"`  // host pattern, may contain * segments
	RawLine string      `json:"raw_line"` // 原始规则文本
	Options RuleOptions `json:"options"`
}

// Metadata describes where a RuleSet came from.
type Metadata struct {
	Source     string    `json:"source"`
	Title      string    `json:"title,omitempty"`
	ImportedAt time.Time `json:"imported_at"`
	LineCount  int       `json:"line_count"`
	RuleCount  int       `json:"rule_count"`
	Truncated  bool      `json:"truncated,omitempty"`
}

// RuleSet is the parsed form of one or more filter lists. It must not be
// modified after it has been handed to the matcher.
type RuleSet struct {
	BlockRules     []Rule   `json:"block_rules"`
	ExceptionRules []Rule   `json:"exception_rules"`
	Metadata       Metadata `json:"metadata"`

	indexOnce sync.Once
	index     *domainIndex
}

// Clone returns a deep copy of rs without its domain index.
func (rs *RuleSet) Clone() *RuleSet {
	if rs == nil {
		return nil
	}

	c := &RuleSet{
		BlockRules:     make([]Rule, len(rs.BlockRules)),
		ExceptionRules: make([]Rule, len(rs.ExceptionRules)),
		Metadata:       rs.Metadata,
	}
	for i, r := range rs.BlockRules {
		r.Options = r.Options.clone()
		c.BlockRules[i] = r
	}
	for i, r := range rs.ExceptionRules {
		r.Options = r.Options.clone()
		c.ExceptionRules[i] = r
	}
	return c
}

// Len returns the total number of rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.BlockRules) + len(rs.ExceptionRules)
}

func (rs *RuleSet) add(r *Rule) {
	if r.Kind == KindException {
		rs.ExceptionRules = append(rs.ExceptionRules, *r)
	} else {
		rs.BlockRules = append(rs.BlockRules, *r)
	}
	rs.Metadata.RuleCount++
}

// MatchContext describes the request being classified. An empty CurrentDomain
// and a nil IsThirdParty mean the caller does not know them.
type MatchContext struct {
	CurrentDomain string
	IsThirdParty  *bool
}

// Decision 匹配结果
type Decision int

const (
	DecisionNeutral Decision = iota // no rule applied
	DecisionBlocked
	DecisionAllowed // an exception rule applied
)

func (d Decision) String() string {
	switch d {
	case DecisionBlocked:
		return "blocked"
	case DecisionAllowed:
		return "allowed"
	default:
		return "neutral"
	}
}

// MatchResult 匹配结果及命中的规则
type MatchResult struct {
	Decision Decision
	Rule     string // raw text of the deciding rule, empty when neutral
}

// Blocked reports whether the request should be blocked.
func (m MatchResult) Blocked() bool {
	return m.Decision == DecisionBlocked
}
