package adblock

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"
)

const (
	// DefaultSource labels rule sets that were not read from a named source.
	DefaultSource = "custom"

	// MaxRuleLen is the longest line the parser looks at.
	MaxRuleLen = 4 * 1024

	// MaxListLines caps the number of lines parsed from a single list.
	MaxListLines = 2_000_000

	// MaxListBytes caps how much is read by ParseFilterListReader.
	MaxListBytes = 50 * 1024 * 1024
)

const titlePrefix = "! Title:"

// ParseUblockFilterLine parses one line of a filter list. It returns nil for
// comments, blank lines and anything that is not a host-anchored rule.
func ParseUblockFilterLine(line string) *Rule {
	if IsEmptyLine(line) || IsCommentLine(line) || len(line) > MaxRuleLen {
		return nil
	}

	raw := strings.TrimSpace(line)
	kind := KindBlock
	body := raw
	if strings.HasPrefix(body, exceptionPrefix) {
		kind = KindException
		body = body[len(exceptionPrefix):]
	}

	if idx := strings.IndexByte(body, optionsMarker); idx >= 0 {
		body = body[:idx]
	}
	body = stripSpaces(body)
	if !IsValidRulePattern(body) {
		return nil
	}

	host := body[len(hostAnchor) : len(body)-len(boundaryMarker)]
	if !ValidateDomain(host) {
		return nil
	}

	r := BuildRuleObject(raw, kind, host)
	return &r
}

// CreateEmptyRuleset returns a rule set with no rules and default metadata.
func CreateEmptyRuleset() *RuleSet {
	return &RuleSet{
		BlockRules:     []Rule{},
		ExceptionRules: []Rule{},
		Metadata: Metadata{
			Source:     DefaultSource,
			ImportedAt: time.Now(),
		},
	}
}

// ParseUblockFilterList parses a whole filter list. Malformed lines are
// dropped; Metadata.LineCount and Metadata.RuleCount tell how many.
func ParseUblockFilterList(text string) *RuleSet {
	return ParseFilterListFrom(DefaultSource, text)
}

// ParseFilterList is ParseUblockFilterList.
func ParseFilterList(text string) *RuleSet {
	return ParseUblockFilterList(text)
}

// ParseFilterListFrom parses text and records source in the metadata.
func ParseFilterListFrom(source, text string) *RuleSet {
	rs := CreateEmptyRuleset()
	if source != "" {
		rs.Metadata.Source = source
	}
	if text == "" {
		return rs
	}

	rest := text
	for {
		if rs.Metadata.LineCount >= MaxListLines {
			rs.Metadata.Truncated = true
			break
		}

		line, tail, more := strings.Cut(rest, "\n")
		line = strings.TrimSuffix(line, "\r")
		rs.Metadata.LineCount++

		if IsCommentLine(line) {
			if rs.Metadata.Title == "" && strings.HasPrefix(line, titlePrefix) {
				rs.Metadata.Title = strings.TrimSpace(line[len(titlePrefix):])
			}
		} else if r := ParseUblockFilterLine(line); r != nil {
			rs.add(r)
		}

		if !more {
			break
		}
		rest = tail
	}

	return rs
}

// ParseFilterListReader reads at most MaxListBytes from r and parses it.
func ParseFilterListReader(source string, r io.Reader) (*RuleSet, error) {
	lr := &io.LimitedReader{R: r, N: MaxListBytes + 1}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, fmt.Errorf("reading filter list %s: %w", source, err)
	}
	if len(data) > MaxListBytes {
		return nil, fmt.Errorf("filter list %s exceeds %d bytes", source, MaxListBytes)
	}

	return ParseFilterListFrom(source, string(data)), nil
}

// MergeRuleSets concatenates sets in order, keeping only the first rule of
// each id.
func MergeRuleSets(source string, sets ...*RuleSet) *RuleSet {
	merged := CreateEmptyRuleset()
	merged.Metadata.Source = source

	seen := make(map[string]struct{})
	for _, rs := range sets {
		if rs == nil {
			continue
		}
		merged.Metadata.LineCount += rs.Metadata.LineCount
		merged.Metadata.Truncated = merged.Metadata.Truncated || rs.Metadata.Truncated

		for _, group := range [][]Rule{rs.BlockRules, rs.ExceptionRules} {
			for i := range group {
				r := group[i]
				if _, dup := seen[r.ID]; dup {
					continue
				}
				seen[r.ID] = struct{}{}
				r.Options = r.Options.clone()
				merged.add(&r)
			}
		}
	}

	return merged
}

func stripSpaces(s string) string {
	if strings.IndexFunc(s, unicode.IsSpace) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
