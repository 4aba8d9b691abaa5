package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spider-crawler/siteaudit/internal/analyzer"
	"github.com/spider-crawler/siteaudit/internal/report"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testReport(rawURL string, score int, at time.Time) *report.Report {
	results := []*analyzer.Result{
		{
			Category:   analyzer.CategoryMetaTags,
			Score:      score,
			Status:     analyzer.StatusFor(score),
			Confidence: analyzer.ConfidenceHigh,
			Issues: []analyzer.Issue{
				analyzer.NewIssue(analyzer.CategoryMetaTags, analyzer.IssueMissingMetaDesc,
					analyzer.KindWarning, analyzer.SeverityHigh, "missing description"),
			},
			Recommendations: []string{},
			Detail:          &analyzer.MetaTagsDetail{},
		},
		{
			Category:        analyzer.CategoryAltText,
			Score:           100,
			Status:          analyzer.StatusExcellent,
			Confidence:      analyzer.ConfidenceHigh,
			Issues:          []analyzer.Issue{},
			Recommendations: []string{},
			Detail:          &analyzer.AltTextDetail{},
		},
	}
	r := report.Build(rawURL, rawURL, results, report.FetchSummary{StatusCode: 200}, at)
	r.GeneratedAt = at.UTC()
	r.Duration = 1500 * time.Millisecond
	return r
}

func TestSaveAndGetReport(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	r := testReport("https://example.com/", 70, time.Now())
	require.NoError(t, db.SaveReport(ctx, r))

	got, err := db.GetReport(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, r.OverallScore, got.OverallScore)
	assert.Equal(t, r.ActionPlan, got.ActionPlan)
	assert.IsType(t, &analyzer.MetaTagsDetail{}, got.Result(analyzer.CategoryMetaTags).Detail)

	scores, err := db.CategoryScores(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, string(analyzer.CategoryMetaTags), scores[0].Category)
	assert.Equal(t, 70, scores[0].Score)
	assert.Equal(t, 1, scores[0].IssueCount)
}

func TestGetReportNotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetReport(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteReport(context.Background(), "missing"), ErrNotFound)
}

func TestSaveReportTwiceReplaces(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	r := testReport("https://example.com/", 70, time.Now())
	require.NoError(t, db.SaveReport(ctx, r))
	require.NoError(t, db.SaveReport(ctx, r))

	records, err := db.ListReports(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	scores, err := db.CategoryScores(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, scores, 2)
}

func TestListReports(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	older := testReport("https://example.com/", 60, base)
	newer := testReport("https://example.com/", 80, base.Add(time.Hour))
	other := testReport("https://other.test/page", 40, base.Add(30*time.Minute))
	for _, r := range []*report.Report{older, newer, other} {
		require.NoError(t, db.SaveReport(ctx, r))
	}

	all, err := db.ListReports(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{newer.ID, other.ID, older.ID}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "example.com", all[0].Host)
	assert.Equal(t, 1500*time.Millisecond, all[0].Duration)
	assert.True(t, all[0].GeneratedAt.Equal(newer.GeneratedAt))

	limited, err := db.ListReports(ctx, ListOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, newer.ID, limited[0].ID)

	byURL, err := db.ListReports(ctx, ListOptions{URL: "https://other.test/page"})
	require.NoError(t, err)
	require.Len(t, byURL, 1)
	assert.Equal(t, 40, byURL[0].OverallScore)

	latest, err := db.ListReports(ctx, ListOptions{Latest: true})
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, newer.ID, latest[0].ID)
	assert.Equal(t, other.ID, latest[1].ID)
}

func TestDeleteReportCascades(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	r := testReport("https://example.com/", 70, time.Now())
	require.NoError(t, db.SaveReport(ctx, r))
	require.NoError(t, db.DeleteReport(ctx, r.ID))

	scores, err := db.CategoryScores(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, scores)

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalReports)
	assert.Equal(t, 0, stats.TotalIssues)
}

func TestStatsAndIssueSummary(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, db.SaveReport(ctx, testReport("https://example.com/", 70, now)))
	require.NoError(t, db.SaveReport(ctx, testReport("https://other.test/", 30, now.Add(time.Second))))

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalReports)
	assert.Equal(t, 2, stats.DistinctURLs)
	assert.Equal(t, 2, stats.TotalIssues)
	// overall scores are (70+100)/2 = 85 and (30+100)/2 = 65
	assert.InDelta(t, 75.0, stats.AverageScore, 1e-9)
	assert.Equal(t, map[string]int{"good": 1, "needs-improvement": 1}, stats.ByStatus)

	summary, err := db.IssueSummary(ctx, 0)
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, analyzer.IssueMissingMetaDesc, summary[0].IssueCode)
	assert.Equal(t, 2, summary[0].Occurrences)
	assert.Equal(t, 2, summary[0].Reports)
}
