package analyzer

import (
	"fmt"
	"net/url"

	"github.com/spider-crawler/siteaudit/internal/prober"
	"github.com/spider-crawler/siteaudit/internal/urlutil"
)

// BrokenLinksDetail summarizes the probed links of the page.
type BrokenLinksDetail struct {
	Total    int                 `json:"total"`
	Unique   int                 `json:"unique"`
	Internal int                 `json:"internal"`
	External int                 `json:"external"`
	Broken   int                 `json:"broken"`
	Invalid  int                 `json:"invalid"`
	TimedOut int                 `json:"timed_out"`
	Skipped  int                 `json:"skipped"`
	Links    []prober.LinkRecord `json:"links"`
}

// BrokenLinksAnalyzer scores the results of the link prober.
type BrokenLinksAnalyzer struct{}

func NewBrokenLinksAnalyzer() *BrokenLinksAnalyzer {
	return &BrokenLinksAnalyzer{}
}

func (a *BrokenLinksAnalyzer) Category() Category {
	return CategoryBrokenLinks
}

func (a *BrokenLinksAnalyzer) Analyze(ctx *AnalysisContext) (*Result, error) {
	page := ctx.Document.URL()
	detail := &BrokenLinksDetail{
		Total: len(ctx.Links),
		Links: make([]prober.LinkRecord, 0, len(ctx.Links)),
	}
	detail.Links = append(detail.Links, ctx.Links...)
	result := newResult(CategoryBrokenLinks, detail)

	reported := make(map[string]bool)
	unique := make(map[string]bool)
	for _, rec := range ctx.Links {
		if rec.Invalid() {
			detail.Invalid++
			result.penalize(5, NewIssue(CategoryBrokenLinks, IssueInvalidHref, KindWarning, SeverityLow,
				fmt.Sprintf("Link href %q cannot be resolved: %s", rec.RawHref, rec.Error)))
			continue
		}

		if !unique[rec.ResolvedURL] {
			unique[rec.ResolvedURL] = true
			if u, err := url.Parse(rec.ResolvedURL); err == nil && urlutil.IsSameHost(page, u) {
				detail.Internal++
			} else {
				detail.External++
			}
		}

		switch {
		case rec.Skipped:
			detail.Skipped++
		case rec.TimedOut:
			detail.TimedOut++
			result.Score -= 2
			if !reported[rec.ResolvedURL] {
				reported[rec.ResolvedURL] = true
				result.note(NewIssue(CategoryBrokenLinks, IssueLinkTimedOut, KindInfo, SeverityLow,
					fmt.Sprintf("Link timed out: %s", rec.ResolvedURL)))
			}
		case rec.Broken():
			detail.Broken++
			result.Score -= 5
			if !reported[rec.ResolvedURL] {
				reported[rec.ResolvedURL] = true
				msg := fmt.Sprintf("Broken link (status %d): %s", rec.HTTPStatus, rec.ResolvedURL)
				if rec.HTTPStatus == 0 {
					msg = fmt.Sprintf("Broken link (%s): %s", rec.Error, rec.ResolvedURL)
				}
				result.note(NewIssue(CategoryBrokenLinks, IssueBrokenLink, KindError, SeverityHigh, msg))
			}
		}
	}
	detail.Unique = len(unique)

	if detail.Broken > 0 {
		result.recommend("Fix or remove links that return errors")
	}
	if detail.Invalid > 0 {
		result.recommend("Correct malformed link hrefs")
	}
	if detail.Skipped > 0 {
		result.recommend(fmt.Sprintf("%d link(s) were not checked because the link limit was reached", detail.Skipped))
	}

	return result.finish(), nil
}
