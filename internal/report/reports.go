// Package report aggregates analyzer results into a report and exports it.
package report

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/spider-crawler/siteaudit/internal/analyzer"
)

// FetchSummary describes how the page markup was obtained.
type FetchSummary struct {
	StatusCode     int           `json:"status_code"`
	ContentType    string        `json:"content_type,omitempty"`
	Redirects      int           `json:"redirects"`
	Rendered       bool          `json:"rendered"`
	Fallback       bool          `json:"fallback"`
	FallbackReason string        `json:"fallback_reason,omitempty"`
	FallbackDetail string        `json:"fallback_detail,omitempty"`
	ResponseTime   time.Duration `json:"response_time"`
	Bytes          int           `json:"bytes"`
}

// ActionItem is one issue of the action plan.
type ActionItem struct {
	analyzer.Issue
	Rank int `json:"rank"`
}

// Report is the outcome of one analysis run.
type Report struct {
	ID           string             `json:"id"`
	URL          string             `json:"url"`
	FinalURL     string             `json:"final_url"`
	OverallScore int                `json:"overall_score"`
	Status       analyzer.Status    `json:"status"`
	Categories   []*analyzer.Result `json:"categories"`
	ActionPlan   []ActionItem       `json:"action_plan"`
	Fetch        FetchSummary       `json:"fetch"`
	GeneratedAt  time.Time          `json:"generated_at"`
	Duration     time.Duration      `json:"duration"`
}

// Build assembles a report from analyzer results. Results are placed in
// report order whatever order they arrive in.
func Build(url, finalURL string, results []*analyzer.Result, fetch FetchSummary, started time.Time) *Report {
	categories := make([]*analyzer.Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			categories = append(categories, r)
		}
	}
	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].Category.Index() < categories[j].Category.Index()
	})

	now := time.Now()
	r := &Report{
		ID:          uuid.NewString(),
		URL:         url,
		FinalURL:    finalURL,
		Categories:  categories,
		ActionPlan:  ActionPlan(categories),
		Fetch:       fetch,
		GeneratedAt: now.UTC(),
		Duration:    now.Sub(started),
	}
	r.OverallScore = OverallScore(categories)
	r.Status = analyzer.StatusFor(r.OverallScore)
	return r
}

// OverallScore is the unweighted mean of the category scores, rounded. An
// empty list scores 0.
func OverallScore(results []*analyzer.Result) int {
	if len(results) == 0 {
		return 0
	}
	sum := 0
	for _, r := range results {
		sum += r.Score
	}
	// round half up; scores are never negative
	return (2*sum + len(results)) / (2 * len(results))
}

// ActionPlan lists every issue ordered critical > high > medium > low,
// keeping category order and insertion order within a severity.
func ActionPlan(results []*analyzer.Result) []ActionItem {
	plan := make([]ActionItem, 0)
	for _, r := range results {
		for _, issue := range r.Issues {
			plan = append(plan, ActionItem{Issue: issue})
		}
	}
	sort.SliceStable(plan, func(i, j int) bool {
		return analyzer.SeverityRank(plan[i].Severity) < analyzer.SeverityRank(plan[j].Severity)
	})
	for i := range plan {
		plan[i].Rank = i + 1
	}
	return plan
}

// Result returns the result of category c, or nil.
func (r *Report) Result(c analyzer.Category) *analyzer.Result {
	for _, res := range r.Categories {
		if res.Category == c {
			return res
		}
	}
	return nil
}

// Summary counts the issues of a report.
type Summary struct {
	TotalIssues      int
	CriticalIssues   int
	HighIssues       int
	MediumIssues     int
	LowIssues        int
	Errors           int
	Warnings         int
	IssuesByCategory map[analyzer.Category]int
}

// Summarize returns issue counts by severity, kind and category.
func (r *Report) Summarize() *Summary {
	s := &Summary{IssuesByCategory: make(map[analyzer.Category]int)}
	for _, item := range r.ActionPlan {
		s.TotalIssues++
		switch item.Severity {
		case analyzer.SeverityCritical:
			s.CriticalIssues++
		case analyzer.SeverityHigh:
			s.HighIssues++
		case analyzer.SeverityMedium:
			s.MediumIssues++
		case analyzer.SeverityLow:
			s.LowIssues++
		}
		switch item.Kind {
		case analyzer.KindError:
			s.Errors++
		case analyzer.KindWarning:
			s.Warnings++
		}
		s.IssuesByCategory[item.Category]++
	}
	return s
}
