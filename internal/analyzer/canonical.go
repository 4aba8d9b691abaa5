package analyzer

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spider-crawler/siteaudit/internal/urlutil"
)

// Canonical states
const (
	CanonicalMissing       = "missing"
	CanonicalSelf          = "self-referencing"
	CanonicalCanonicalised = "canonicalised"
	CanonicalInvalid       = "invalid"
)

// CanonicalDetail describes the rel="canonical" declaration of the page.
type CanonicalDetail struct {
	Canonical string   `json:"canonical"`
	Resolved  string   `json:"resolved,omitempty"`
	All       []string `json:"all"`
	State     string   `json:"state"`
	IsSelf    bool     `json:"is_self"`
	Relative  bool     `json:"relative"`
	CrossHost bool     `json:"cross_host"`
}

// CanonicalAnalyzer validates the canonical URL of the page.
type CanonicalAnalyzer struct{}

func NewCanonicalAnalyzer() *CanonicalAnalyzer {
	return &CanonicalAnalyzer{}
}

func (a *CanonicalAnalyzer) Category() Category {
	return CategoryCanonical
}

func (a *CanonicalAnalyzer) Analyze(ctx *AnalysisContext) (*Result, error) {
	page := ctx.Document.URL()
	canonicals := ctx.Document.Canonicals()
	detail := &CanonicalDetail{All: make([]string, 0, len(canonicals))}
	detail.All = append(detail.All, canonicals...)
	result := newResult(CategoryCanonical, detail)
	issue := func(code string, kind Kind, severity Severity, msg string) Issue {
		return NewIssue(CategoryCanonical, code, kind, severity, msg)
	}

	if len(canonicals) == 0 || canonicals[0] == "" {
		detail.State = CanonicalMissing
		result.penalize(40, issue(IssueMissingCanonical, KindWarning, SeverityMedium, "Page is missing a canonical tag"))
		result.recommend(`Add <link rel="canonical"> pointing at the preferred URL of the page`)
		return result.finish(), nil
	}

	if len(canonicals) > 1 {
		result.penalize(20, issue(IssueMultipleCanonicals, KindError, SeverityHigh,
			fmt.Sprintf("Page declares %d canonical URLs", len(canonicals))))
		result.recommend("Declare exactly one canonical URL")
	}

	detail.Canonical = canonicals[0]
	ref, err := url.Parse(detail.Canonical)
	if err != nil {
		detail.State = CanonicalInvalid
		result.penalize(40, issue(IssueInvalidCanonical, KindError, SeverityHigh,
			fmt.Sprintf("Canonical URL %q cannot be parsed", detail.Canonical)))
		return result.finish(), nil
	}

	if !ref.IsAbs() {
		detail.Relative = true
		result.penalize(10, issue(IssueRelativeCanonical, KindWarning, SeverityLow,
			"Canonical URL is relative"))
		result.recommend("Use an absolute URL in the canonical tag")
	}

	resolved, err := urlutil.Resolve(page, detail.Canonical)
	if err != nil {
		detail.State = CanonicalInvalid
		result.penalize(40, issue(IssueInvalidCanonical, KindError, SeverityHigh,
			fmt.Sprintf("Canonical URL %q does not resolve to a web address", detail.Canonical)))
		return result.finish(), nil
	}
	detail.Resolved = resolved.String()

	if !urlutil.IsSameHost(page, resolved) {
		detail.CrossHost = true
		result.penalize(20, issue(IssueCrossHostCanonical, KindWarning, SeverityMedium,
			fmt.Sprintf("Canonical points to another host: %s", resolved.Host)))
	}
	if page.Scheme == "https" && resolved.Scheme == "http" {
		result.penalize(10, issue(IssueInsecureCanonical, KindWarning, SeverityMedium,
			"Canonical points to an http URL from an https page"))
		result.recommend("Point the canonical at the https version of the page")
	}

	detail.IsSelf = sameDocument(page, resolved)
	if detail.IsSelf {
		detail.State = CanonicalSelf
	} else {
		detail.State = CanonicalCanonicalised
	}

	return result.finish(), nil
}

// sameDocument compares two URLs by normalized key, ignoring a trailing slash.
func sameDocument(a, b *url.URL) bool {
	ka := strings.TrimSuffix(urlutil.Key(a), "/")
	kb := strings.TrimSuffix(urlutil.Key(b), "/")
	return ka == kb
}
