package adblock

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUblockFilterLine(t *testing.T) {
	for _, d := range []string{"example.com", "*.ads.net", "*.*.example.com", "ad*.tracker.io", "a-b.c0m"} {
		r := ParseUblockFilterLine("||" + d + "^")
		require.NotNil(t, r, d)
		assert.Equal(t, d, r.Pattern)
		assert.Equal(t, KindBlock, r.Kind)

		e := ParseUblockFilterLine("@@||" + d + "^")
		require.NotNil(t, e, d)
		assert.Equal(t, d, e.Pattern)
		assert.Equal(t, KindException, e.Kind)
	}
}

func TestParseUblockFilterLineRejects(t *testing.T) {
	for _, line := range []string{
		"",
		"   ",
		"! ||comment.com^",
		"example.com^",
		"||example.com",
		"||^",
		"@@||^",
		"||exa_mple.com^",
		"||a..b^",
		"##.banner",
		"example.com##.ad",
		"/ads/*",
		"0.0.0.0 ads.example.com",
		"||" + strings.Repeat("a", MaxRuleLen) + ".com^",
	} {
		assert.Nil(t, ParseUblockFilterLine(line), "%q", line)
	}
}

func TestParseUblockFilterLineWhitespace(t *testing.T) {
	r := ParseUblockFilterLine("  || ads.example.com ^$3p \r")
	require.NotNil(t, r)
	assert.Equal(t, "ads.example.com", r.Pattern)
	assert.Equal(t, "|| ads.example.com ^$3p", r.RawLine)
	assert.Equal(t, boolPtr(true), r.Options.ThirdParty)
}

func TestParseUblockFilterLineOptions(t *testing.T) {
	r := ParseUblockFilterLine("@@||cdn.example.com^$important,domain=a.com|~b.a.com")
	require.NotNil(t, r)
	assert.Equal(t, KindException, r.Kind)
	assert.Equal(t, "cdn.example.com", r.Pattern)
	assert.Equal(t, boolPtr(true), r.Options.Important)
	assert.Equal(t, []string{"a.com"}, r.Options.Domains)
	assert.Equal(t, []string{"b.a.com"}, r.Options.NegatedDomains)
}

func TestParseFilterListScenario(t *testing.T) {
	rs := ParseFilterList("! comment\n||ads.example.com^\n@@||trusted.example.com^")

	require.Len(t, rs.BlockRules, 1)
	require.Len(t, rs.ExceptionRules, 1)
	assert.Equal(t, "ads.example.com", rs.BlockRules[0].Pattern)
	assert.Equal(t, "trusted.example.com", rs.ExceptionRules[0].Pattern)
	assert.Equal(t, 2, rs.Metadata.RuleCount)
	assert.Equal(t, 3, rs.Metadata.LineCount)
	assert.Equal(t, DefaultSource, rs.Metadata.Source)
}

func TestParseFilterListCounts(t *testing.T) {
	lines := []string{
		"! Title: Test list",
		"",
		"||a.com^",
		"garbage",
		"@@||b.com^$domain=c.com",
		"   ",
		"||bad_host^",
		"||d.com^",
	}
	rs := ParseFilterListFrom("https://lists.example/test.txt", strings.Join(lines, "\r\n"))

	assert.Equal(t, len(lines), rs.Metadata.LineCount)
	assert.Equal(t, 3, rs.Metadata.RuleCount)
	assert.Equal(t, rs.Metadata.RuleCount, len(rs.BlockRules)+len(rs.ExceptionRules))
	assert.Equal(t, "Test list", rs.Metadata.Title)
	assert.Equal(t, "https://lists.example/test.txt", rs.Metadata.Source)
	assert.False(t, rs.Metadata.Truncated)
}

func TestParseFilterListEmpty(t *testing.T) {
	rs := ParseFilterList("")
	assert.Equal(t, 0, rs.Metadata.LineCount)
	assert.Equal(t, 0, rs.Metadata.RuleCount)
	assert.NotNil(t, rs.BlockRules)
	assert.NotNil(t, rs.ExceptionRules)
}

func TestCreateEmptyRuleset(t *testing.T) {
	before := time.Now()
	rs := CreateEmptyRuleset()

	assert.Empty(t, rs.BlockRules)
	assert.Empty(t, rs.ExceptionRules)
	assert.Equal(t, 0, rs.Metadata.RuleCount)
	assert.Equal(t, 0, rs.Metadata.LineCount)
	assert.Equal(t, DefaultSource, rs.Metadata.Source)
	assert.False(t, rs.Metadata.ImportedAt.Before(before))
}

func TestParseFilterListReader(t *testing.T) {
	rs, err := ParseFilterListReader("reader", strings.NewReader("||a.com^\n||b.com^\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Metadata.RuleCount)
	// 末尾换行产生一个空行
	assert.Equal(t, 3, rs.Metadata.LineCount)
	assert.Equal(t, "reader", rs.Metadata.Source)
}

func TestParseFilterListTruncated(t *testing.T) {
	text := strings.Repeat("\n", MaxListLines) + "||late.com^"
	rs := ParseFilterList(text)
	assert.True(t, rs.Metadata.Truncated)
	assert.Equal(t, MaxListLines, rs.Metadata.LineCount)
	assert.Zero(t, rs.Metadata.RuleCount)
}

func TestMergeRuleSets(t *testing.T) {
	a := ParseFilterList("||a.com^\n||shared.com^")
	b := ParseFilterList("||shared.com^\n@@||b.com^")

	merged := MergeRuleSets("merged", a, nil, b)
	assert.Equal(t, "merged", merged.Metadata.Source)
	assert.Equal(t, 3, merged.Metadata.RuleCount)
	assert.Equal(t, 4, merged.Metadata.LineCount)
	assert.Len(t, merged.BlockRules, 2)
	assert.Len(t, merged.ExceptionRules, 1)
}

func TestRuleSetClone(t *testing.T) {
	rs := ParseFilterList("||a.com^$domain=x.com,3p")
	c := rs.Clone()

	c.BlockRules[0].Options.Domains[0] = "mutated.com"
	*c.BlockRules[0].Options.ThirdParty = false
	c.BlockRules = append(c.BlockRules, Rule{Pattern: "extra.com"})

	assert.Equal(t, "x.com", rs.BlockRules[0].Options.Domains[0])
	assert.True(t, *rs.BlockRules[0].Options.ThirdParty)
	assert.Len(t, rs.BlockRules, 1)
}

func TestParseFilterListPerformance(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 10000; i++ {
		if i%2 == 0 {
			fmt.Fprintf(&b, "||domain%d.com^$3p,domain=site%d.com\n", i, i)
		} else {
			fmt.Fprintf(&b, "not a rule %d\n", i)
		}
	}
	text := strings.TrimSuffix(b.String(), "\n")

	start := time.Now()
	rs := ParseFilterList(text)
	elapsed := time.Since(start)

	assert.Equal(t, 10000, rs.Metadata.LineCount)
	assert.Equal(t, 5000, rs.Metadata.RuleCount)
	assert.Less(t, elapsed, 5*time.Second)
}

func BenchmarkParseFilterList(b *testing.B) {
	var sb strings.Builder
	for i := 0; i < 10000; i++ {
		fmt.Fprintf(&sb, "||domain%d.com^\n", i)
	}
	text := sb.String()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ParseFilterList(text)
	}
}
