package market

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedKeywords(t *testing.T) {
	words := []string{
		"coffee", "beans", "roasting", "coffee", "about", "roasting", "coffee",
		"their", "espresso", "which", "beans", "beans", "tea",
	}

	seeds := SeedKeywords(words, 3)
	assert.Equal(t, []string{"coffee", "beans", "roasting"}, seeds)

	// "about", "their" and "which" are stop words, "tea" is too short
	all := SeedKeywords(words, 10)
	assert.Equal(t, []string{"coffee", "beans", "roasting", "espresso"}, all)

	assert.Empty(t, SeedKeywords(nil, 5))
}

func TestTopWordsTiesKeepFirstSeenOrder(t *testing.T) {
	top := TopWords([]string{"zeta", "alpha", "zeta", "alpha", "mid"}, 3, -1)
	want := []WordCount{{"zeta", 2}, {"alpha", 2}, {"mid", 1}}
	if diff := cmp.Diff(want, top); diff != "" {
		t.Errorf("TopWords mismatch (-want +got):\n%s", diff)
	}
}

func TestSimulatedIsDeterministic(t *testing.T) {
	ctx := context.Background()
	a, b := NewSimulated(), NewSimulated()

	k1, err := a.KeywordMetrics(ctx, []string{"coffee", "espresso"})
	require.NoError(t, err)
	k2, err := b.KeywordMetrics(ctx, []string{"coffee", "espresso"})
	require.NoError(t, err)
	if diff := cmp.Diff(k1, k2); diff != "" {
		t.Errorf("keyword metrics differ between runs:\n%s", diff)
	}

	b1, err := a.BacklinkProfile(ctx, "example.com")
	require.NoError(t, err)
	b2, err := b.BacklinkProfile(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, b1, b2)

	r1, err := a.RankHistory(ctx, "example.com", []string{"coffee"})
	require.NoError(t, err)
	r2, err := b.RankHistory(ctx, "example.com", []string{"coffee"})
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestSimulatedPayloadsAreLabelled(t *testing.T) {
	ctx := context.Background()
	s := NewSimulated()

	kw, err := s.KeywordMetrics(ctx, []string{"Coffee", "coffee", " "})
	require.NoError(t, err)
	assert.Equal(t, ConfidenceSimulated, kw.Confidence)
	require.Len(t, kw.Keywords, 1)
	m := kw.Keywords[0]
	assert.Equal(t, "coffee", m.Keyword)
	assert.GreaterOrEqual(t, m.Difficulty, 5)
	assert.LessOrEqual(t, m.Difficulty, 95)
	assert.Len(t, m.Trend, 12)
	assert.NotEmpty(t, kw.Related)

	bl, err := s.BacklinkProfile(ctx, "Example.com")
	require.NoError(t, err)
	assert.Equal(t, ConfidenceSimulated, bl.Confidence)
	assert.Equal(t, "example.com", bl.Domain)
	assert.GreaterOrEqual(t, bl.TotalBacklinks, bl.ReferringDomains)

	cs, err := s.CompetitorSet(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, ConfidenceSimulated, cs.Confidence)
	assert.GreaterOrEqual(t, len(cs.Competitors), 3)
	assert.LessOrEqual(t, len(cs.Competitors), 5)
	for _, c := range cs.Competitors {
		assert.Contains(t, c.Domain, "example")
		assert.GreaterOrEqual(t, c.KeywordOverlap, 5)
		assert.LessOrEqual(t, c.KeywordOverlap, 80)
	}

	rh, err := s.RankHistory(ctx, "example.com", []string{"coffee", "beans"})
	require.NoError(t, err)
	assert.Equal(t, ConfidenceSimulated, rh.Confidence)
	require.Len(t, rh.Entries, 2)
	for _, e := range rh.Entries {
		assert.Len(t, e.Positions, rankHistoryLength)
		assert.Equal(t, e.Positions[len(e.Positions)-1], e.Latest)
		assert.GreaterOrEqual(t, e.Latest, 0)
		assert.LessOrEqual(t, e.Latest, 100)
	}
}

func TestSimulatedHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSimulated().BacklinkProfile(ctx, "example.com")
	assert.ErrorIs(t, err, context.Canceled)
}
