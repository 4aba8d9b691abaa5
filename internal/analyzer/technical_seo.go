package analyzer

import (
	"fmt"
	"strings"

	"github.com/spider-crawler/siteaudit/internal/robots"
)

// Bucket is one of the five technical SEO areas.
type Bucket struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// TechnicalSEODetail holds the bucket outcomes and the directives behind them.
type TechnicalSEODetail struct {
	Buckets          []Bucket           `json:"buckets"`
	MetaRobots       string             `json:"meta_robots"`
	XRobotsTag       string             `json:"x_robots_tag"`
	Directives       *robots.MetaRobots `json:"directives"`
	H1Count          int                `json:"h1_count"`
	ImagesWithoutAlt int                `json:"images_without_alt"`
	HTTPS            bool               `json:"https"`
}

// Bucket names
const (
	BucketCrawlability = "crawlability"
	BucketIndexability = "indexability"
	BucketStructure    = "structure"
	BucketPerformance  = "performance"
	BucketSecurity     = "security"
)

// TechnicalSEOAnalyzer rolls robots directives, headings, images and the URL
// scheme into five status buckets.
type TechnicalSEOAnalyzer struct{}

func NewTechnicalSEOAnalyzer() *TechnicalSEOAnalyzer {
	return &TechnicalSEOAnalyzer{}
}

func (a *TechnicalSEOAnalyzer) Category() Category {
	return CategoryTechnicalSEO
}

func (a *TechnicalSEOAnalyzer) Analyze(ctx *AnalysisContext) (*Result, error) {
	doc := ctx.Document
	detail := &TechnicalSEODetail{}
	result := newResult(CategoryTechnicalSEO, detail)

	// X-Robots-Tag directives add to the meta robots ones
	detail.MetaRobots, _ = doc.Meta("robots")
	xRobots := ctx.Headers.Values("X-Robots-Tag")
	detail.XRobotsTag = strings.Join(xRobots, ", ")
	directives := robots.ParseMetaRobots(detail.MetaRobots)
	directives.Merge(robots.ParseXRobotsTag(xRobots))
	detail.Directives = directives

	add := func(name string, status Status, code string, severity Severity, msg string) {
		detail.Buckets = append(detail.Buckets, Bucket{Name: name, Status: status, Message: msg})
		switch status {
		case StatusError:
			result.penalize(20, NewIssue(CategoryTechnicalSEO, code, KindError, severity, msg))
		case StatusWarning:
			result.penalize(10, NewIssue(CategoryTechnicalSEO, code, KindWarning, severity, msg))
		}
	}

	if directives.NoFollow {
		add(BucketCrawlability, StatusWarning, IssueNofollow, SeverityMedium, "Robots directives tell crawlers not to follow links")
		result.recommend("Remove nofollow unless links on this page should not pass authority")
	} else {
		add(BucketCrawlability, StatusGood, "", "", "Links on the page can be followed")
	}

	if directives.NoIndex {
		add(BucketIndexability, StatusError, IssueNoindex, SeverityCritical, "Page is non-indexable: noindex")
		result.recommend("Remove noindex so the page can be indexed")
	} else {
		add(BucketIndexability, StatusGood, "", "", "Page is indexable")
	}

	detail.H1Count = len(doc.Headings(1))
	switch {
	case detail.H1Count == 0:
		add(BucketStructure, StatusError, IssueMissingH1, SeverityHigh, "Page has no H1 heading")
		result.recommend("Add a single H1 describing the page topic")
	case detail.H1Count > 1:
		add(BucketStructure, StatusWarning, IssueMultipleH1, SeverityMedium,
			fmt.Sprintf("Page has %d H1 headings", detail.H1Count))
		result.recommend("Keep a single H1 and use H2-H6 for sections")
	default:
		add(BucketStructure, StatusGood, "", "", "Page has one H1 heading")
	}

	for _, img := range doc.Images() {
		if !img.HasAlt {
			detail.ImagesWithoutAlt++
		}
	}
	if detail.ImagesWithoutAlt > 0 {
		add(BucketPerformance, StatusWarning, IssueImagesWithoutAlt, SeverityMedium,
			fmt.Sprintf("%d image(s) have no alt attribute", detail.ImagesWithoutAlt))
	} else {
		add(BucketPerformance, StatusGood, "", "", "All images have alt attributes")
	}

	detail.HTTPS = doc.URL().Scheme == "https"
	if detail.HTTPS {
		add(BucketSecurity, StatusGood, "", "", "Page is served over HTTPS")
	} else {
		add(BucketSecurity, StatusError, IssueInsecurePage, SeverityHigh, "Page is not served over HTTPS")
		result.recommend("Serve the page over HTTPS")
	}

	return result.finish(), nil
}
