package analyzer

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spider-crawler/siteaudit/internal/parser"
	"github.com/spider-crawler/siteaudit/internal/testutil"
)

func newTestContext(t *testing.T, rawURL, markup string) *AnalysisContext {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	doc, err := parser.New(u, []byte(markup), false)
	require.NoError(t, err)
	return &AnalysisContext{
		Context:  context.Background(),
		Document: doc,
		Headers:  http.Header{},
	}
}

func issueCodes(r *Result) []string {
	codes := make([]string, 0, len(r.Issues))
	for _, i := range r.Issues {
		codes = append(codes, i.Code)
	}
	return codes
}

func countKind(r *Result, kind Kind) int {
	n := 0
	for _, i := range r.Issues {
		if i.Kind == kind {
			n++
		}
	}
	return n
}

func TestMetaTagsMissingTitle(t *testing.T) {
	a := NewMetaTagsAnalyzer()

	missing := newTestContext(t, "https://example.com/", testutil.NewHTMLBuilder().
		MetaDescription(strings.Repeat("d", 140)).
		Viewport("width=device-width, initial-scale=1").
		Build())
	withTitle := newTestContext(t, "https://example.com/", testutil.NewHTMLBuilder().
		Title(strings.Repeat("t", 45)).
		MetaDescription(strings.Repeat("d", 140)).
		Viewport("width=device-width, initial-scale=1").
		Build())

	r1, err := a.Analyze(missing)
	require.NoError(t, err)
	r2, err := a.Analyze(withTitle)
	require.NoError(t, err)

	d1 := r1.Detail.(*MetaTagsDetail)
	assert.Equal(t, StatusError, d1.Title.Status)
	assert.False(t, d1.Title.Present)
	assert.Contains(t, issueCodes(r1), IssueMissingTitle)

	d2 := r2.Detail.(*MetaTagsDetail)
	assert.Equal(t, StatusGood, d2.Title.Status)
	assert.Equal(t, 45, d2.Title.Length)
	assert.Less(t, r1.Score, r2.Score)
}

func TestMetaTagsPenalties(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *testutil.HTMLBuilder)
		want  int
		code  string
	}{
		{"long title", func(b *testutil.HTMLBuilder) { b.Title(strings.Repeat("t", 70)) }, 80, IssueTitleTooLong},
		{"keywords meta", func(b *testutil.HTMLBuilder) { b.Head(`<meta name="keywords" content="a,b">`) }, 88, IssueMetaKeywords},
		{"noindex", func(b *testutil.HTMLBuilder) { b.Head(`<meta name="robots" content="noindex">`) }, 80, IssueNoindex},
		{"fixed viewport", func(b *testutil.HTMLBuilder) { b.Viewport("width=1024") }, 85, IssueViewportNoDevice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testutil.NewHTMLBuilder().
				Title(strings.Repeat("t", 45)).
				MetaDescription(strings.Repeat("d", 140)).
				Viewport("width=device-width, initial-scale=1")
			tt.build(b)

			// canonical, Open Graph and Twitter Card are absent: -10 baseline
			r, err := NewMetaTagsAnalyzer().Analyze(newTestContext(t, "https://example.com/", b.Build()))
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Score)
			assert.Contains(t, issueCodes(r), tt.code)
		})
	}
}

func TestMetaTagsCompleteHead(t *testing.T) {
	markup := testutil.NewHTMLBuilder().
		Title(strings.Repeat("t", 45)).
		MetaDescription(strings.Repeat("d", 140)).
		Viewport("width=device-width, initial-scale=1").
		Canonical("https://example.com/").
		Head(`<meta property="og:title" content="OG">`).
		Head(`<meta property="og:description" content="OG description">`).
		Head(`<meta name="twitter:card" content="summary">`).
		Head(`<meta name="twitter:title" content="T">`).
		Head(`<meta name="twitter:description" content="TD">`).
		Build()

	r, err := NewMetaTagsAnalyzer().Analyze(newTestContext(t, "https://example.com/", markup))
	require.NoError(t, err)
	assert.Equal(t, 100, r.Score)
	assert.Equal(t, StatusExcellent, r.Status)
	assert.Empty(t, r.Issues)
}

func TestMetaTagsXRobotsTag(t *testing.T) {
	ctx := newTestContext(t, "https://example.com/", testutil.NewHTMLBuilder().Title("x").Build())
	ctx.Headers.Set("X-Robots-Tag", "noindex")

	r, err := NewMetaTagsAnalyzer().Analyze(ctx)
	require.NoError(t, err)
	assert.Contains(t, issueCodes(r), IssueNoindex)
}

// Title of 20 characters, no description, device-width viewport, three
// images of which one has no alt attribute.
func scenarioPage() string {
	return testutil.NewHTMLBuilder().
		Lang("en").
		Title("Twenty chars title!!").
		Viewport("width=device-width,initial-scale=1").
		H1("Scenario").
		Img("/a.png", "first").
		Img("/b.png", "second").
		ImgNoAlt("/c.png").
		Build()
}

func TestScenarioMetaTagsAndAltText(t *testing.T) {
	ctx := newTestContext(t, "https://example.com/", scenarioPage())

	meta, err := NewMetaTagsAnalyzer().Analyze(ctx)
	require.NoError(t, err)
	// -15 description, -5 short title, -5 canonical, -3 Open Graph, -2 Twitter Card
	assert.Equal(t, 70, meta.Score)
	assert.Less(t, meta.Score, 80)
	assert.Equal(t, StatusGood, meta.Status)

	alt, err := NewAltTextAnalyzer().Analyze(ctx)
	require.NoError(t, err)
	assert.Equal(t, 67, alt.Score)
	assert.Equal(t, StatusNeedsImprovement, alt.Status)
	d := alt.Detail.(*AltTextDetail)
	assert.Equal(t, 3, d.Total)
	assert.Equal(t, 2, d.WithAlt)
	assert.Equal(t, 1, d.Missing)
}

func TestAltText(t *testing.T) {
	t.Run("no images", func(t *testing.T) {
		r, err := NewAltTextAnalyzer().Analyze(newTestContext(t, "https://example.com/", "<p>text</p>"))
		require.NoError(t, err)
		assert.Equal(t, 100, r.Score)
		assert.Empty(t, r.Issues)
	})

	t.Run("empty and long alt", func(t *testing.T) {
		markup := testutil.NewHTMLBuilder().
			Img("/spacer.gif", "").
			Img("/photo.jpg", strings.Repeat("a", 120)).
			Build()
		r, err := NewAltTextAnalyzer().Analyze(newTestContext(t, "https://example.com/", markup))
		require.NoError(t, err)

		assert.Equal(t, 100, r.Score)
		assert.Equal(t, []string{IssueEmptyAlt, IssueLongAlt}, issueCodes(r))
		assert.Equal(t, 2, countKind(r, KindInfo))
	})
}

func TestKeywordDensity(t *testing.T) {
	body := "<p>SEO tools help. SEO tools rank pages. Good seo matters for tools.</p>" +
		"<script>var seo = 'hidden seo seo seo';</script>"

	t.Run("supplied phrases", func(t *testing.T) {
		ctx := newTestContext(t, "https://example.com/", testutil.NewHTMLBuilder().Body(body).Build())
		ctx.Keywords = []string{"seo tools", "seo", "tools", "missing"}

		r, err := NewKeywordDensityAnalyzer().Analyze(ctx)
		require.NoError(t, err)
		d := r.Detail.(*KeywordDensityDetail)

		assert.Equal(t, "supplied", d.Source)
		require.Len(t, d.Keywords, 4)
		assert.Equal(t, 2, d.Keywords[0].Count)
		assert.Equal(t, 1, d.Keywords[1].Count)
		assert.Equal(t, 1, d.Keywords[2].Count)
		assert.Equal(t, 0, d.Keywords[3].Count)

		sum := 0
		for _, k := range d.Keywords {
			sum += k.Count
			assert.InDelta(t, Density(k.Count, d.TotalWords), k.Density, 1e-9)
		}
		assert.LessOrEqual(t, sum, d.TotalWords)
		assert.Contains(t, issueCodes(r), IssueKeywordNotFound)
	})

	t.Run("auto keywords", func(t *testing.T) {
		ctx := newTestContext(t, "https://example.com/", testutil.NewHTMLBuilder().Body(body).Build())
		r, err := NewKeywordDensityAnalyzer().Analyze(ctx)
		require.NoError(t, err)
		d := r.Detail.(*KeywordDensityDetail)

		assert.Equal(t, "auto", d.Source)
		require.NotEmpty(t, d.Keywords)
		assert.Equal(t, "seo", d.Keywords[0].Keyword)
	})

	t.Run("no words", func(t *testing.T) {
		ctx := newTestContext(t, "https://example.com/", "<html><body></body></html>")
		ctx.Keywords = []string{"seo"}
		r, err := NewKeywordDensityAnalyzer().Analyze(ctx)
		require.NoError(t, err)
		d := r.Detail.(*KeywordDensityDetail)

		assert.Equal(t, 0, d.TotalWords)
		require.Len(t, d.Keywords, 1)
		assert.Zero(t, d.Keywords[0].Density)
	})
}

func TestKeywordDensityStuffing(t *testing.T) {
	body := "<p>" + strings.Repeat("widget ", 10) + strings.Repeat("filler text here ", 30) + "</p>"
	ctx := newTestContext(t, "https://example.com/", testutil.NewHTMLBuilder().Body(body).Build())
	ctx.Keywords = []string{"widget"}

	r, err := NewKeywordDensityAnalyzer().Analyze(ctx)
	require.NoError(t, err)

	d := r.Detail.(*KeywordDensityDetail)
	assert.Equal(t, StatusError, d.Keywords[0].Status)
	assert.Equal(t, 90, r.Score)
}

func TestCountPhrasesNeverExceedsTotal(t *testing.T) {
	words := parser.Tokenize("new york new york city new")
	counts := CountPhrases(words, [][]string{{"new"}, {"new", "york"}, {"york", "city"}})

	// "new york" claims positions 0-1 and 2-3 before "york city" is tried
	assert.Equal(t, []int{1, 2, 0}, counts)
	sum := 0
	for _, c := range counts {
		sum += c
	}
	assert.LessOrEqual(t, sum, len(words))
}

func TestMobile(t *testing.T) {
	tests := []struct {
		name     string
		viewport string
		want     int
		friendly bool
	}{
		{"device width", "width=device-width, initial-scale=1", 100, true},
		{"missing", "", 70, false},
		{"fixed width", "width=980", 85, false},
		{"zoom disabled", "width=device-width, user-scalable=no", 95, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			markup := testutil.NewHTMLBuilder().Viewport(tt.viewport).Build()
			r, err := NewMobileAnalyzer().Analyze(newTestContext(t, "https://example.com/", markup))
			require.NoError(t, err)

			d := r.Detail.(*MobileDetail)
			assert.Equal(t, tt.want, r.Score)
			assert.Equal(t, tt.friendly, d.IsMobileFriendly)
			assert.True(t, d.Simplified)
		})
	}
}

func TestMobileCrowdedTargets(t *testing.T) {
	b := testutil.NewHTMLBuilder().Viewport("width=device-width")
	for range 6 {
		b.Link("/x", "x")
	}
	ctx := newTestContext(t, "https://example.com/", b.Body(`<embed src="movie.swf">`).Build())
	ctx.MaxTouchTargets = 5

	r, err := NewMobileAnalyzer().Analyze(ctx)
	require.NoError(t, err)

	d := r.Detail.(*MobileDetail)
	assert.False(t, d.TouchTargetsOK)
	assert.False(t, d.IsMobileFriendly)
	assert.Equal(t, 1, d.Plugins)
	assert.Equal(t, 80, r.Score)
}

func TestPageSpeed(t *testing.T) {
	markup := testutil.NewHTMLBuilder().
		Title("Speed").
		Head(`<script src="/blocking.js"></script>`).
		Body(`<a href="https://other.org/" target="_blank">out</a>`).
		ImgNoAlt("/a.png").
		Build()

	r, err := NewPageSpeedAnalyzer().Analyze(newTestContext(t, "http://example.com/", markup))
	require.NoError(t, err)
	d := r.Detail.(*PageSpeedDetail)

	assert.Equal(t, 95, d.Performance)
	assert.Equal(t, 85, d.Accessibility)
	assert.Equal(t, 75, d.BestPractices)
	assert.Equal(t, 70, d.SEO)
	assert.Equal(t, 81, r.Score)

	require.Len(t, d.CoreWebVitals, 4)
	for _, v := range d.CoreWebVitals {
		assert.False(t, v.Measured)
		assert.Equal(t, "static heuristic", v.Source)
	}
}

func TestTechnicalSEO(t *testing.T) {
	t.Run("all buckets good", func(t *testing.T) {
		markup := testutil.NewHTMLBuilder().H1("One").Img("/a.png", "a").Build()
		r, err := NewTechnicalSEOAnalyzer().Analyze(newTestContext(t, "https://example.com/", markup))
		require.NoError(t, err)

		assert.Equal(t, 100, r.Score)
		d := r.Detail.(*TechnicalSEODetail)
		require.Len(t, d.Buckets, 5)
		for _, b := range d.Buckets {
			assert.Equal(t, StatusGood, b.Status, b.Name)
		}
	})

	t.Run("every bucket failing", func(t *testing.T) {
		markup := testutil.NewHTMLBuilder().
			Body("<h1>One</h1><h1>Two</h1>").
			ImgNoAlt("/a.png").
			Build()
		ctx := newTestContext(t, "http://example.com/", markup)
		ctx.Headers.Add("X-Robots-Tag", "noindex, nofollow")

		r, err := NewTechnicalSEOAnalyzer().Analyze(ctx)
		require.NoError(t, err)

		d := r.Detail.(*TechnicalSEODetail)
		statuses := make(map[string]Status)
		for _, b := range d.Buckets {
			statuses[b.Name] = b.Status
		}
		assert.Equal(t, map[string]Status{
			BucketCrawlability: StatusWarning,
			BucketIndexability: StatusError,
			BucketStructure:    StatusWarning,
			BucketPerformance:  StatusWarning,
			BucketSecurity:     StatusError,
		}, statuses)
		assert.Equal(t, 30, r.Score)
		assert.Equal(t, 2, d.H1Count)
		assert.False(t, d.HTTPS)
	})
}
