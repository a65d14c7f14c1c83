package adblock

import (
	"regexp"
	"strings"

	util "adfilter/internal"
	"adfilter/logger"

	radix "github.com/hashicorp/go-immutable-radix"
)

// wildcardRule is a pattern with '*' segments that the map and the suffix tree
// cannot answer, e.g. "*.*.example.com" or "ad*.example.com".
type wildcardRule struct {
	rule *Rule
	re   *regexp.Regexp
}

// domainIndex lets the matcher find candidate rules for a host without
// scanning the whole rule set:
//
//   - literal: lower-cased pattern -> rules, for patterns without '*'
//   - suffix: reversed labels -> rules, for "*.suffix" patterns
//   - wildcard: everything else, matched with a compiled regexp
type domainIndex struct {
	literal  map[string][]*Rule
	suffix   *radix.Tree
	wildcard []wildcardRule
}

func (rs *RuleSet) domainIndex() *domainIndex {
	rs.indexOnce.Do(func() {
		rs.index = buildDomainIndex(rs)
	})
	return rs.index
}

func buildDomainIndex(rs *RuleSet) *domainIndex {
	idx := &domainIndex{
		literal: make(map[string][]*Rule, rs.Len()),
	}
	suffixes := make(map[string][]*Rule)

	add := func(r *Rule) {
		p := r.Pattern
		switch {
		case !strings.Contains(p, "*"):
			key := strings.ToLower(p)
			idx.literal[key] = append(idx.literal[key], r)
		case strings.HasPrefix(p, "*.") && !strings.Contains(p[2:], "*"):
			key := util.ReverseLabels(strings.ToLower(p[2:]))
			suffixes[key] = append(suffixes[key], r)
		default:
			re, err := compileWildcard(p, isSet(r.Options.MatchCase))
			if err != nil {
				logger.Debugf("[AdBlock] Skipping wildcard rule %q: %v", r.RawLine, err)
				return
			}
			idx.wildcard = append(idx.wildcard, wildcardRule{rule: r, re: re})
		}
	}

	for i := range rs.BlockRules {
		add(&rs.BlockRules[i])
	}
	for i := range rs.ExceptionRules {
		add(&rs.ExceptionRules[i])
	}

	// 批量写入 Radix Tree
	txn := radix.New().Txn()
	for key, rules := range suffixes {
		txn.Insert([]byte(key), rules)
	}
	idx.suffix = txn.Commit()

	return idx
}

// compileWildcard turns a host pattern into an anchored regexp where each '*'
// matches any run of characters.
func compileWildcard(pattern string, matchCase bool) (*regexp.Regexp, error) {
	expr := strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, `.*`)
	expr = "^" + expr + "$"
	if !matchCase {
		expr = "(?i)" + expr
	}
	return regexp.Compile(expr)
}

// candidates returns every rule whose pattern matches host, honoring
// match-case. Option checks are left to the caller.
func (idx *domainIndex) candidates(host string) []*Rule {
	var out []*Rule
	lower := strings.ToLower(host)

	for _, r := range idx.literal[lower] {
		if !isSet(r.Options.MatchCase) || r.Pattern == host {
			out = append(out, r)
		}
	}

	if idx.suffix.Len() > 0 {
		idx.suffix.Root().WalkPath([]byte(util.ReverseLabels(lower)), func(_ []byte, v interface{}) bool {
			for _, r := range v.([]*Rule) {
				if !isSet(r.Options.MatchCase) || hasSuffixExact(host, r.Pattern[2:]) {
					out = append(out, r)
				}
			}
			return false
		})
	}

	for _, w := range idx.wildcard {
		if w.re.MatchString(host) {
			out = append(out, w.rule)
		}
	}

	return out
}

func hasSuffixExact(host, suffix string) bool {
	return host == suffix || strings.HasSuffix(host, "."+suffix)
}
