package adblock

import (
	"slices"
	"strings"
)

// ParseOptions parses the comma-separated modifier list that follows '$' in a
// rule. Unknown or malformed tokens are skipped; the result is never nil-like,
// an empty input yields a zero RuleOptions.
func ParseOptions(raw string) RuleOptions {
	var opts RuleOptions
	if strings.TrimSpace(raw) == "" {
		return opts
	}

	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		key, val, hasValue := strings.Cut(token, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if hasValue {
			if key == "domain" {
				parseDomainOption(strings.TrimSpace(val), &opts)
			}
			continue
		}

		negated := strings.HasPrefix(key, "~")
		flag := !negated
		switch strings.TrimPrefix(key, "~") {
		case "3p", "third-party":
			opts.ThirdParty = &flag
		case "1p", "first-party":
			opts.FirstParty = &flag
		case "important":
			opts.Important = &flag
		case "match-case":
			opts.MatchCase = &flag
		default:
			// image, script, popup, ... are not meaningful for host matching
		}
	}

	// A domain listed both ways is an exclusion.
	if len(opts.NegatedDomains) > 0 && len(opts.Domains) > 0 {
		opts.Domains = slices.DeleteFunc(opts.Domains, func(d string) bool {
			return slices.Contains(opts.NegatedDomains, d)
		})
		if len(opts.Domains) == 0 {
			opts.Domains = nil
		}
	}

	return opts
}

func parseDomainOption(val string, opts *RuleOptions) {
	if val == "" {
		return
	}

	for _, d := range strings.Split(val, "|") {
		d = strings.ToLower(strings.TrimSpace(d))
		negated := strings.HasPrefix(d, "~")
		d = strings.TrimPrefix(d, "~")
		// 页面域名按字面比较，通配符永远匹配不上
		if !ValidateDomain(d) || strings.ContainsRune(d, '*') {
			continue
		}

		if negated {
			if !slices.Contains(opts.NegatedDomains, d) {
				opts.NegatedDomains = append(opts.NegatedDomains, d)
			}
		} else if !slices.Contains(opts.Domains, d) {
			opts.Domains = append(opts.Domains, d)
		}
	}
}
