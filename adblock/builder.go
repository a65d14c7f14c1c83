package adblock

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// BuildRuleObject assembles a Rule from an already validated pattern. The
// options are taken from everything after the first '$' of rawLine.
func BuildRuleObject(rawLine string, kind RuleKind, pattern string) Rule {
	var opts RuleOptions
	if idx := strings.IndexByte(rawLine, optionsMarker); idx >= 0 {
		opts = ParseOptions(rawLine[idx+1:])
	}

	return Rule{
		ID:      ruleID(rawLine),
		Kind:    kind,
		Pattern: pattern,
		RawLine: rawLine,
		Options: opts,
	}
}

// ruleID hashes the whole line with FNV-1a and appends its length, so lines
// sharing a long prefix still get distinct ids.
func ruleID(rawLine string) string {
	h := fnv.New64a()
	h.Write([]byte(rawLine))

	buf := make([]byte, 0, 32)
	buf = append(buf, 'r')
	buf = strconv.AppendUint(buf, h.Sum64(), 36)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, int64(len(rawLine)), 36)
	return string(buf)
}
