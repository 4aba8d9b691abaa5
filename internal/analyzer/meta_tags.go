package analyzer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spider-crawler/siteaudit/internal/robots"
)

// TagCheck is the outcome of one head tag check.
type TagCheck struct {
	Value   string `json:"value"`
	Length  int    `json:"length"`
	Present bool   `json:"present"`
	Status  Status `json:"status"`
}

// MetaTagsDetail holds the per-tag checks.
type MetaTagsDetail struct {
	Title       TagCheck `json:"title"`
	Description TagCheck `json:"description"`
	Keywords    TagCheck `json:"keywords"`
	Viewport    TagCheck `json:"viewport"`
	Robots      TagCheck `json:"robots"`
	Canonical   TagCheck `json:"canonical"`
	OpenGraph   TagCheck `json:"open_graph"`
	TwitterCard TagCheck `json:"twitter_card"`
}

// MetaTagsAnalyzer checks the title and meta tags of the head.
type MetaTagsAnalyzer struct{}

func NewMetaTagsAnalyzer() *MetaTagsAnalyzer {
	return &MetaTagsAnalyzer{}
}

func (a *MetaTagsAnalyzer) Category() Category {
	return CategoryMetaTags
}

func (a *MetaTagsAnalyzer) Analyze(ctx *AnalysisContext) (*Result, error) {
	doc := ctx.Document
	detail := &MetaTagsDetail{}
	result := newResult(CategoryMetaTags, detail)
	issue := func(code string, kind Kind, severity Severity, msg string) Issue {
		return NewIssue(CategoryMetaTags, code, kind, severity, msg)
	}

	// Title
	title := doc.Title()
	titleLength := utf8.RuneCountInString(title)
	detail.Title = TagCheck{Value: title, Length: titleLength, Present: title != "", Status: StatusGood}
	switch {
	case title == "":
		detail.Title.Status = StatusError
		result.penalize(20, issue(IssueMissingTitle, KindError, SeverityHigh, "Page is missing a title tag"))
		result.recommend("Add a descriptive title of 30 to 60 characters")
	case titleLength < Thresholds.TitleMinLength:
		detail.Title.Status = StatusWarning
		result.penalize(5, issue(IssueTitleTooShort, KindWarning, SeverityLow,
			fmt.Sprintf("Title is too short (%d characters, recommended min: %d)", titleLength, Thresholds.TitleMinLength)))
		result.recommend("Expand the title to at least 30 characters")
	case titleLength > Thresholds.TitleMaxLength:
		detail.Title.Status = StatusWarning
		result.penalize(10, issue(IssueTitleTooLong, KindWarning, SeverityMedium,
			fmt.Sprintf("Title is too long (%d characters, recommended max: %d)", titleLength, Thresholds.TitleMaxLength)))
		result.recommend("Shorten the title to 60 characters or fewer so it is not truncated in results")
	}

	// Meta description
	desc, _ := doc.Meta("description")
	descLength := utf8.RuneCountInString(desc)
	detail.Description = TagCheck{Value: desc, Length: descLength, Present: desc != "", Status: StatusGood}
	switch {
	case desc == "":
		detail.Description.Status = StatusError
		result.penalize(15, issue(IssueMissingMetaDesc, KindError, SeverityHigh, "Page is missing a meta description"))
		result.recommend("Add a meta description of 120 to 160 characters summarizing the page")
	case descLength < Thresholds.MetaDescMinLength:
		detail.Description.Status = StatusWarning
		result.penalize(5, issue(IssueMetaDescTooShort, KindWarning, SeverityLow,
			fmt.Sprintf("Meta description is too short (%d characters, recommended min: %d)", descLength, Thresholds.MetaDescMinLength)))
	case descLength > Thresholds.MetaDescMaxLength:
		detail.Description.Status = StatusWarning
		result.penalize(3, issue(IssueMetaDescTooLong, KindWarning, SeverityLow,
			fmt.Sprintf("Meta description is too long (%d characters, recommended max: %d)", descLength, Thresholds.MetaDescMaxLength)))
	}

	// Legacy keywords
	if kw, ok := doc.Meta("keywords"); ok {
		detail.Keywords = TagCheck{Value: kw, Length: utf8.RuneCountInString(kw), Present: true, Status: StatusWarning}
		result.penalize(2, issue(IssueMetaKeywords, KindWarning, SeverityLow,
			"Meta keywords tag is ignored by search engines"))
		result.recommend("Remove the meta keywords tag")
	} else {
		detail.Keywords = TagCheck{Status: StatusGood}
	}

	// Viewport
	viewport, hasViewport := doc.Meta("viewport")
	detail.Viewport = TagCheck{Value: viewport, Length: len(viewport), Present: hasViewport, Status: StatusGood}
	switch {
	case !hasViewport:
		detail.Viewport.Status = StatusError
		result.penalize(15, issue(IssueMissingViewport, KindError, SeverityHigh, "Page is missing a viewport meta tag"))
		result.recommend(`Add <meta name="viewport" content="width=device-width, initial-scale=1">`)
	case !hasDeviceWidth(viewport):
		detail.Viewport.Status = StatusWarning
		result.penalize(5, issue(IssueViewportNoDevice, KindWarning, SeverityMedium,
			"Viewport does not use width=device-width"))
	}

	// Robots
	robotsContent, _ := doc.Meta("robots")
	directives := robots.ParseMetaRobots(robotsContent)
	directives.Merge(robots.ParseXRobotsTag(ctx.Headers.Values("X-Robots-Tag")))
	detail.Robots = TagCheck{Value: robotsContent, Length: len(robotsContent), Present: robotsContent != "", Status: StatusGood}
	if directives.NoIndex {
		detail.Robots.Status = StatusWarning
		result.penalize(10, issue(IssueNoindex, KindWarning, SeverityHigh, "Page is marked noindex"))
		result.recommend("Remove noindex if the page should appear in search results")
	}

	// Canonical
	canonicals := doc.Canonicals()
	detail.Canonical = TagCheck{Status: StatusGood, Present: len(canonicals) > 0}
	if len(canonicals) > 0 {
		detail.Canonical.Value = canonicals[0]
		detail.Canonical.Length = len(canonicals[0])
	} else {
		detail.Canonical.Status = StatusWarning
		result.penalize(5, issue(IssueMissingCanonical, KindWarning, SeverityLow, "Page has no canonical link"))
	}

	// Open Graph
	ogTitle, _ := doc.MetaProperty("og:title")
	ogDesc, _ := doc.MetaProperty("og:description")
	detail.OpenGraph = TagCheck{Value: ogTitle, Present: ogTitle != "" || ogDesc != "", Status: StatusGood}
	if ogTitle == "" || ogDesc == "" {
		detail.OpenGraph.Status = StatusWarning
		result.penalize(3, issue(IssueOpenGraphIncomplete, KindWarning, SeverityLow,
			"Open Graph title and description are not both set"))
		result.recommend("Add og:title and og:description for richer social previews")
	}

	// Twitter Card
	var missing []string
	for _, name := range []string{"twitter:card", "twitter:title", "twitter:description"} {
		if twitterTag(ctx, name) == "" {
			missing = append(missing, name)
		}
	}
	card := twitterTag(ctx, "twitter:card")
	detail.TwitterCard = TagCheck{Value: card, Present: len(missing) < 3, Status: StatusGood}
	if len(missing) > 0 {
		detail.TwitterCard.Status = StatusWarning
		result.penalize(2, issue(IssueTwitterIncomplete, KindWarning, SeverityLow,
			"Twitter Card is incomplete, missing "+strings.Join(missing, ", ")))
	}

	return result.finish(), nil
}

func twitterTag(ctx *AnalysisContext, name string) string {
	if v, ok := ctx.Document.Meta(name); ok && v != "" {
		return v
	}
	v, _ := ctx.Document.MetaProperty(name)
	return v
}

func hasDeviceWidth(viewport string) bool {
	return strings.Contains(strings.ReplaceAll(strings.ToLower(viewport), " ", ""), "width=device-width")
}
