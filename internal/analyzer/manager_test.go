package analyzer

import (
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spider-crawler/siteaudit/internal/market"
	"github.com/spider-crawler/siteaudit/internal/parser"
)

type panickingAnalyzer struct{ category Category }

func (a panickingAnalyzer) Category() Category { return a.category }

func (a panickingAnalyzer) Analyze(*AnalysisContext) (*Result, error) {
	panic("index out of range")
}

type failingAnalyzer struct{ category Category }

func (a failingAnalyzer) Category() Category { return a.category }

func (a failingAnalyzer) Analyze(*AnalysisContext) (*Result, error) {
	return nil, errors.New("boom")
}

func TestManagerRunsAllInReportOrder(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	ctx := newTestContext(t, "https://example.com/", scenarioPage())
	ctx.Market = market.NewSimulated()

	results := m.Run(ctx, nil)
	require.Len(t, results, len(Categories()))
	for i, c := range Categories() {
		assert.Equal(t, c, results[i].Category)
		assert.NotEqual(t, ConfidenceNone, results[i].Confidence, string(c))
	}
}

func TestManagerRunSubset(t *testing.T) {
	m := NewManager(nil)
	ctx := newTestContext(t, "https://example.com/", scenarioPage())

	results := m.Run(ctx, []Category{CategoryAltText, CategoryMetaTags})
	require.Len(t, results, 2)
	assert.Equal(t, CategoryMetaTags, results[0].Category)
	assert.Equal(t, CategoryAltText, results[1].Category)
}

func TestManagerRecoversPanics(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	m.Register(panickingAnalyzer{category: CategoryMobile})
	m.Register(failingAnalyzer{category: CategoryCanonical})

	ctx := newTestContext(t, "https://example.com/", scenarioPage())
	results := m.Run(ctx, []Category{CategoryMetaTags, CategoryMobile, CategoryCanonical, CategoryAltText})
	require.Len(t, results, 4)

	for _, r := range results[1:3] {
		assert.Equal(t, 0, r.Score)
		assert.Equal(t, ConfidenceNone, r.Confidence)
		require.Len(t, r.Issues, 1)
		assert.Equal(t, IssueAnalyzerFailed, r.Issues[0].Code)
		assert.Equal(t, SeverityCritical, r.Issues[0].Severity)
		assert.NotNil(t, r.Detail)
	}
	assert.Equal(t, 70, results[0].Score)
	assert.Equal(t, 67, results[3].Score)
}

func TestManagerInvalidSchemaDoesNotStopOthers(t *testing.T) {
	m := NewManager(nil)
	ctx := newTestContext(t, "https://example.com/",
		`<html><head><script type="application/ld+json">{broken</script></head><body><h1>x</h1></body></html>`)

	results := m.Run(ctx, []Category{CategorySchema, CategoryTechnicalSEO})
	require.Len(t, results, 2)

	technical, schema := results[0], results[1]
	assert.Equal(t, CategorySchema, schema.Category)
	assert.Equal(t, 1, countKind(schema, KindError))
	assert.Equal(t, ConfidenceHigh, schema.Confidence)
	assert.Equal(t, ConfidenceHigh, technical.Confidence)
}

func TestManagerMarksFallbackLowConfidence(t *testing.T) {
	u, err := url.Parse("https://example.com/")
	require.NoError(t, err)
	doc, err := parser.New(u, []byte("<html><head><title>Unavailable</title></head><body></body></html>"), true)
	require.NoError(t, err)

	m := NewManager(nil)
	results := m.Run(&AnalysisContext{Document: doc, Market: market.NewSimulated()},
		[]Category{CategoryMetaTags, CategoryBacklinks})

	assert.Equal(t, ConfidenceLow, results[0].Confidence)
	assert.Equal(t, ConfidenceSimulated, results[1].Confidence)
}

func TestResultJSONRoundTrip(t *testing.T) {
	m := NewManager(nil)
	ctx := newTestContext(t, "https://example.com/", scenarioPage())
	ctx.Market = market.NewSimulated()

	for _, r := range m.Run(ctx, nil) {
		data, err := json.Marshal(r)
		require.NoError(t, err)

		var decoded Result
		require.NoError(t, json.Unmarshal(data, &decoded), string(r.Category))
		assert.IsType(t, r.Detail, decoded.Detail)
		assert.Equal(t, r.Score, decoded.Score)
		assert.Equal(t, r.Issues, decoded.Issues)
	}
}

func TestResultUnmarshalUnknownCategory(t *testing.T) {
	var r Result
	err := json.Unmarshal([]byte(`{"category":"nope","detail":{}}`), &r)
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestParseCategories(t *testing.T) {
	got, err := ParseCategories([]string{"meta-tags", "ALT_TEXT", "meta_tags", " "})
	require.NoError(t, err)
	assert.Equal(t, []Category{CategoryMetaTags, CategoryAltText}, got)

	_, err = ParseCategories([]string{"speed"})
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, StatusExcellent, StatusFor(90))
	assert.Equal(t, StatusGood, StatusFor(89))
	assert.Equal(t, StatusGood, StatusFor(70))
	assert.Equal(t, StatusNeedsImprovement, StatusFor(50))
	assert.Equal(t, StatusPoor, StatusFor(49))
}
