package adblock

import (
	util "adfilter/internal"
)

// IsURLBlocked reports whether rawURL is blocked by rs in the given context.
// Exceptions always win over blocks. Unparseable URLs are never blocked.
func IsURLBlocked(rawURL string, rs *RuleSet, ctx MatchContext) bool {
	return Match(rawURL, rs, ctx).Blocked()
}

// Match is IsURLBlocked that also reports the deciding rule.
func Match(rawURL string, rs *RuleSet, ctx MatchContext) MatchResult {
	if rs.Len() == 0 {
		return MatchResult{}
	}

	host, ok := util.ExtractHost(rawURL)
	if !ok {
		return MatchResult{}
	}

	return matchHost(host, rs.domainIndex(), ctx)
}

func matchHost(host string, idx *domainIndex, ctx MatchContext) MatchResult {
	candidates := idx.candidates(host)
	if len(candidates) == 0 {
		return MatchResult{}
	}

	current := util.NormalizeDomain(ctx.CurrentDomain)

	var block, exception *Rule
	for _, r := range candidates {
		if !r.appliesTo(current, ctx.IsThirdParty) {
			continue
		}

		if r.Kind == KindException {
			exception = preferImportant(exception, r)
		} else {
			block = preferImportant(block, r)
		}
	}

	switch {
	case exception != nil:
		return MatchResult{Decision: DecisionAllowed, Rule: exception.RawLine}
	case block != nil:
		return MatchResult{Decision: DecisionBlocked, Rule: block.RawLine}
	default:
		return MatchResult{}
	}
}

// preferImportant keeps the first matching rule unless a later one is marked
// important and the current one is not.
func preferImportant(cur, r *Rule) *Rule {
	if cur == nil {
		return r
	}
	if !isSet(cur.Options.Important) && isSet(r.Options.Important) {
		return r
	}
	return cur
}

// appliesTo evaluates the rule options against the request context. current
// is the normalized page domain, empty when unknown.
func (r *Rule) appliesTo(current string, thirdParty *bool) bool {
	opts := &r.Options

	if len(opts.Domains) > 0 {
		if current == "" || !matchesAnyDomain(current, opts.Domains) {
			return false
		}
	}
	if len(opts.NegatedDomains) > 0 && current != "" && matchesAnyDomain(current, opts.NegatedDomains) {
		return false
	}

	isThird := isSet(thirdParty)
	if opts.ThirdParty != nil {
		if *opts.ThirdParty != isThird {
			return false
		}
	}
	if opts.FirstParty != nil {
		if *opts.FirstParty == isThird {
			return false
		}
	}

	return true
}

func matchesAnyDomain(current string, domains []string) bool {
	for _, d := range domains {
		if util.IsSubdomainOf(current, d) {
			return true
		}
	}
	return false
}
