package adblock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFilterEngine(t *testing.T) {
	for name, want := range map[string]string{"": "native", "native": "native", "URLFilter": "urlfilter"} {
		e, err := NewFilterEngine(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, e.Name())
	}

	_, err := NewFilterEngine("regex")
	assert.Error(t, err)
}

func TestNativeEngine(t *testing.T) {
	e := NewNativeEngine()
	assert.Equal(t, 0, e.Count())
	assert.Equal(t, DecisionNeutral, e.Check("ads.example.com", MatchContext{}).Decision)

	rs := ParseFilterList("||ads.example.com^\n||t.com^$domain=a.com\n@@||ok.example.com^")
	require.NoError(t, e.Load(rs))
	assert.Equal(t, 3, e.Count())
	assert.Same(t, rs, e.RuleSet())

	res := e.Check("https://ads.example.com/x.js", MatchContext{})
	assert.True(t, res.Blocked())
	assert.Equal(t, "||ads.example.com^", res.Rule)

	assert.True(t, e.Check("t.com", MatchContext{CurrentDomain: "a.com"}).Blocked())
	assert.False(t, e.Check("t.com", MatchContext{CurrentDomain: "b.com"}).Blocked())
	assert.Equal(t, DecisionAllowed, e.Check("ok.example.com", MatchContext{}).Decision)

	require.NoError(t, e.Load(nil))
	assert.Equal(t, 0, e.Count())
}

func TestURLFilterEngine(t *testing.T) {
	e := NewURLFilterEngine()
	assert.Equal(t, DecisionNeutral, e.Check("ads.example.com", MatchContext{}).Decision)

	rs := ParseFilterList("||ads.example.com^\n||tracker.example^\n@@||tracker.example^")
	require.NoError(t, e.Load(rs))
	assert.Equal(t, 3, e.Count())

	res := e.Check("https://ads.example.com/banner.js", MatchContext{})
	assert.Equal(t, DecisionBlocked, res.Decision)
	assert.Equal(t, "||ads.example.com^", res.Rule)

	assert.Equal(t, DecisionAllowed, e.Check("tracker.example", MatchContext{}).Decision)
	assert.Equal(t, DecisionNeutral, e.Check("news.example.org", MatchContext{}).Decision)
	assert.Equal(t, DecisionNeutral, e.Check("http://127.0.0.1/", MatchContext{}).Decision)
}
