package analyzer

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spider-crawler/siteaudit/internal/urlutil"
)

// WebVital is a Core Web Vitals entry. Without a browser no timing is
// measured, so the values are fixed reference figures and Measured is false.
type WebVital struct {
	Metric   string  `json:"metric"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit"`
	Source   string  `json:"source"`
	Measured bool    `json:"measured"`
}

const webVitalSource = "static heuristic"

// placeholderVitals are the "good" thresholds published for each metric.
var placeholderVitals = []WebVital{
	{Metric: "FCP", Value: 1.8, Unit: "s", Source: webVitalSource},
	{Metric: "LCP", Value: 2.5, Unit: "s", Source: webVitalSource},
	{Metric: "FID", Value: 100, Unit: "ms", Source: webVitalSource},
	{Metric: "CLS", Value: 0.1, Unit: "", Source: webVitalSource},
}

// PageSpeedDetail holds the four sub-scores and the signals behind them.
type PageSpeedDetail struct {
	Performance   int        `json:"performance"`
	Accessibility int        `json:"accessibility"`
	BestPractices int        `json:"best_practices"`
	SEO           int        `json:"seo"`
	CoreWebVitals []WebVital `json:"core_web_vitals"`

	DocumentBytes         int `json:"document_bytes"`
	RenderBlockingScripts int `json:"render_blocking_scripts"`
	Stylesheets           int `json:"stylesheets"`
	EagerImages           int `json:"eager_images"`
	ImagesMissingAlt      int `json:"images_missing_alt"`
	UnsafeExternalLinks   int `json:"unsafe_external_links"`
	H1Count               int `json:"h1_count"`
}

// PageSpeedAnalyzer estimates page quality from static signals in the markup.
type PageSpeedAnalyzer struct{}

func NewPageSpeedAnalyzer() *PageSpeedAnalyzer {
	return &PageSpeedAnalyzer{}
}

func (a *PageSpeedAnalyzer) Category() Category {
	return CategoryPageSpeed
}

func (a *PageSpeedAnalyzer) Analyze(ctx *AnalysisContext) (*Result, error) {
	doc := ctx.Document
	detail := &PageSpeedDetail{
		CoreWebVitals: append([]WebVital(nil), placeholderVitals...),
		DocumentBytes: doc.Size(),
	}
	result := newResult(CategoryPageSpeed, detail)
	issue := func(code string, kind Kind, severity Severity, msg string) Issue {
		return NewIssue(CategoryPageSpeed, code, kind, severity, msg)
	}

	// Performance
	performance := 100
	for _, s := range doc.Scripts() {
		if s.InHead && !s.Async && !s.Defer && !s.Module {
			detail.RenderBlockingScripts++
		}
	}
	if detail.RenderBlockingScripts > 0 {
		performance -= min(30, detail.RenderBlockingScripts*5)
		result.note(issue(IssueRenderBlockingScripts, KindWarning, SeverityMedium,
			fmt.Sprintf("%d render-blocking script(s) in the head", detail.RenderBlockingScripts)))
		result.recommend("Load head scripts with async or defer")
	}

	detail.Stylesheets = len(doc.Stylesheets())
	if extra := detail.Stylesheets - Thresholds.MaxStylesheets; extra > 0 {
		performance -= extra * 2
		result.note(issue(IssueTooManyStylesheets, KindInfo, SeverityLow,
			fmt.Sprintf("%d stylesheets are loaded (recommended max: %d)", detail.Stylesheets, Thresholds.MaxStylesheets)))
		result.recommend("Combine stylesheets to reduce requests")
	}

	images := doc.Images()
	for _, img := range images {
		if img.Loading != "lazy" {
			detail.EagerImages++
		}
		if !img.HasAlt {
			detail.ImagesMissingAlt++
		}
	}
	if extra := detail.EagerImages - Thresholds.MaxEagerImages; extra > 0 {
		performance -= min(10, extra)
		result.note(issue(IssueEagerImages, KindInfo, SeverityLow,
			fmt.Sprintf("%d images are not lazy loaded", detail.EagerImages)))
		result.recommend(`Add loading="lazy" to images below the fold`)
	}

	if detail.DocumentBytes > Thresholds.LargeDocumentBytes {
		performance -= 10
		result.note(issue(IssueLargeDocument, KindWarning, SeverityMedium,
			fmt.Sprintf("HTML document is %d KB", detail.DocumentBytes/1024)))
	}
	detail.Performance = clampScore(performance)

	// Accessibility
	accessibility := 100
	if detail.ImagesMissingAlt > 0 {
		accessibility -= min(40, detail.ImagesMissingAlt*5)
		result.note(issue(IssueMissingAlt, KindWarning, SeverityMedium,
			fmt.Sprintf("%d image(s) have no alt attribute", detail.ImagesMissingAlt)))
	}
	if doc.Lang() == "" {
		accessibility -= 10
		result.note(issue(IssueMissingLang, KindWarning, SeverityMedium, "The html element has no lang attribute"))
		result.recommend("Declare the page language with <html lang>")
	}
	detail.Accessibility = clampScore(accessibility)

	// Best practices
	bestPractices := 100
	page := doc.URL()
	for _, link := range doc.Links() {
		if link.Target != "_blank" || !isExternal(page, link.Href) {
			continue
		}
		if !hasRel(link.Rel, "noopener") && !hasRel(link.Rel, "noreferrer") {
			detail.UnsafeExternalLinks++
		}
	}
	if detail.UnsafeExternalLinks > 0 {
		bestPractices -= min(30, detail.UnsafeExternalLinks*5)
		result.note(issue(IssueUnsafeBlankTarget, KindWarning, SeverityLow,
			fmt.Sprintf("%d external link(s) open a new tab without rel=noopener", detail.UnsafeExternalLinks)))
		result.recommend(`Add rel="noopener noreferrer" to external links with target="_blank"`)
	}
	if page.Scheme != "https" {
		bestPractices -= 20
		result.note(issue(IssueInsecurePage, KindError, SeverityHigh, "Page is not served over HTTPS"))
		result.recommend("Serve the page over HTTPS")
	}
	detail.BestPractices = clampScore(bestPractices)

	// SEO
	seo := 100
	detail.H1Count = len(doc.Headings(1))
	switch {
	case detail.H1Count == 0:
		seo -= 20
		result.note(issue(IssueMissingH1, KindError, SeverityHigh, "Page has no H1 heading"))
	case detail.H1Count > 1:
		seo -= 10
		result.note(issue(IssueMultipleH1, KindWarning, SeverityMedium,
			fmt.Sprintf("Page has %d H1 headings", detail.H1Count)))
	}
	if doc.Title() == "" {
		seo -= 15
		result.note(issue(IssueMissingTitle, KindError, SeverityHigh, "Page is missing a title tag"))
	}
	if desc, _ := doc.Meta("description"); desc == "" {
		seo -= 10
		result.note(issue(IssueMissingMetaDesc, KindWarning, SeverityMedium, "Page is missing a meta description"))
	}
	detail.SEO = clampScore(seo)

	result.Score = roundScore(float64(detail.Performance+detail.Accessibility+detail.BestPractices+detail.SEO) / 4)
	return result.finish(), nil
}

// isExternal reports whether href resolves to another host than page.
func isExternal(page *url.URL, href string) bool {
	u, err := urlutil.Resolve(page, href)
	if err != nil {
		return false
	}
	return !urlutil.IsSameHost(page, u)
}

func hasRel(rel, token string) bool {
	for _, t := range strings.Fields(rel) {
		if t == token {
			return true
		}
	}
	return false
}
