package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spider-crawler/siteaudit/internal/prober"
)

func TestBrokenLinks(t *testing.T) {
	ctx := newTestContext(t, "https://example.com/", "<p>links</p>")
	ctx.Links = []prober.LinkRecord{
		{RawHref: "/ok", ResolvedURL: "https://example.com/ok", HTTPStatus: 200, Reachable: true, Occurrences: 1},
		{RawHref: "https://other.org/gone", ResolvedURL: "https://other.org/gone", HTTPStatus: 404, Occurrences: 2},
		{RawHref: "https://other.org/gone#top", ResolvedURL: "https://other.org/gone", HTTPStatus: 404, Occurrences: 2},
		{RawHref: "http://[::1", Error: "unresolvable href", Occurrences: 1},
		{RawHref: "/slow", ResolvedURL: "https://example.com/slow", TimedOut: true, Occurrences: 1},
		{RawHref: "https://third.net/x", ResolvedURL: "https://third.net/x", Skipped: true, Occurrences: 1},
	}

	r, err := NewBrokenLinksAnalyzer().Analyze(ctx)
	require.NoError(t, err)

	// two broken occurrences, one invalid href, one timeout
	assert.Equal(t, 100-5-5-5-2, r.Score)
	assert.Equal(t, []string{IssueBrokenLink, IssueInvalidHref, IssueLinkTimedOut}, issueCodes(r))
	assert.Equal(t, 1, countKind(r, KindError))

	d := r.Detail.(*BrokenLinksDetail)
	assert.Equal(t, 6, d.Total)
	assert.Equal(t, 4, d.Unique)
	assert.Equal(t, 2, d.Internal)
	assert.Equal(t, 2, d.External)
	assert.Equal(t, 2, d.Broken)
	assert.Equal(t, 1, d.Invalid)
	assert.Equal(t, 1, d.TimedOut)
	assert.Equal(t, 1, d.Skipped)
}

func TestBrokenLinksNone(t *testing.T) {
	r, err := NewBrokenLinksAnalyzer().Analyze(newTestContext(t, "https://example.com/", "<p>no links</p>"))
	require.NoError(t, err)
	assert.Equal(t, 100, r.Score)
	assert.Empty(t, r.Issues)
}
