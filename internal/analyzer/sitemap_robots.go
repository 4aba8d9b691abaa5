package analyzer

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/spider-crawler/siteaudit/internal/robots"
)

// RobotsDetail summarizes robots.txt.
type RobotsDetail struct {
	URL        string          `json:"url"`
	Exists     bool            `json:"exists"`
	StatusCode int             `json:"status_code"`
	Groups     []*robots.Group `json:"groups"`
	Sitemaps   []string        `json:"sitemaps"`
	BlocksAll  bool            `json:"blocks_all"`
	Warnings   int             `json:"warnings"`
}

// SitemapDetail summarizes sitemap.xml.
type SitemapDetail struct {
	URL          string   `json:"url"`
	Exists       bool     `json:"exists"`
	StatusCode   int      `json:"status_code"`
	Valid        bool     `json:"valid"`
	Type         string   `json:"type,omitempty"` // urlset or sitemapindex
	URLCount     int      `json:"url_count"`
	SitemapCount int      `json:"sitemap_count"`
	WithLastMod  int      `json:"with_lastmod"`
	Sample       []string `json:"sample,omitempty"`
}

// SitemapRobotsDetail holds both site files.
type SitemapRobotsDetail struct {
	Robots  RobotsDetail  `json:"robots"`
	Sitemap SitemapDetail `json:"sitemap"`
}

const sitemapSampleSize = 5

// SitemapRobotsAnalyzer checks {origin}/robots.txt and {origin}/sitemap.xml.
type SitemapRobotsAnalyzer struct{}

func NewSitemapRobotsAnalyzer() *SitemapRobotsAnalyzer {
	return &SitemapRobotsAnalyzer{}
}

func (a *SitemapRobotsAnalyzer) Category() Category {
	return CategorySitemapRobots
}

func (a *SitemapRobotsAnalyzer) Analyze(ctx *AnalysisContext) (*Result, error) {
	detail := &SitemapRobotsDetail{}
	result := newResult(CategorySitemapRobots, detail)
	result.Score = 0
	issue := func(code string, kind Kind, severity Severity, msg string) Issue {
		return NewIssue(CategorySitemapRobots, code, kind, severity, msg)
	}

	if f := ctx.Site.Robots; f != nil {
		detail.Robots.URL, detail.Robots.StatusCode = f.URL, f.StatusCode
		detail.Robots.Exists = f.Exists
	}
	if detail.Robots.Exists {
		result.Score += 50
		parsed := robots.Parse(ctx.Site.Robots.Body)
		detail.Robots.Groups = parsed.Groups
		detail.Robots.Sitemaps = parsed.Sitemaps
		detail.Robots.BlocksAll = parsed.BlocksAll()
		detail.Robots.Warnings = len(parsed.Warnings)

		for _, w := range parsed.Warnings {
			result.note(issue(IssueRobotsMalformed, KindInfo, SeverityLow, "robots.txt "+w.String()))
		}
		if detail.Robots.BlocksAll {
			result.note(issue(IssueBlockedRobots, KindError, SeverityHigh,
				"robots.txt disallows the whole site for all user agents"))
			result.recommend("Remove 'Disallow: /' for User-agent: * unless the site must stay out of search engines")
		}
		if len(parsed.Sitemaps) == 0 {
			result.recommend("Reference the sitemap from robots.txt with a Sitemap: directive")
		}
	} else {
		result.note(issue(IssueMissingRobots, KindWarning, SeverityMedium, "robots.txt was not found"))
		result.recommend("Publish a robots.txt at the site root")
	}

	if f := ctx.Site.Sitemap; f != nil {
		detail.Sitemap.URL, detail.Sitemap.StatusCode = f.URL, f.StatusCode
		detail.Sitemap.Exists = f.Exists
	}
	if detail.Sitemap.Exists {
		result.Score += 50
		if err := parseSitemap(ctx.Site.Sitemap.Body, &detail.Sitemap); err != nil {
			result.note(issue(IssueInvalidSitemap, KindWarning, SeverityMedium, "sitemap.xml is not valid: "+err.Error()))
			result.recommend("Fix the XML syntax of sitemap.xml")
		} else if detail.Sitemap.Type == "" {
			result.note(issue(IssueUnknownSitemap, KindWarning, SeverityMedium,
				"sitemap.xml root element is neither urlset nor sitemapindex"))
		} else if detail.Sitemap.URLCount+detail.Sitemap.SitemapCount == 0 {
			result.note(issue(IssueEmptySitemap, KindWarning, SeverityLow, "sitemap.xml lists no entries"))
		}
	} else {
		result.note(issue(IssueMissingSitemap, KindWarning, SeverityMedium, "sitemap.xml was not found"))
		result.recommend("Publish an XML sitemap at /sitemap.xml")
	}

	return result.finish(), nil
}

// parseSitemap fills the entry counts of d from an XML sitemap body.
func parseSitemap(body string, d *SitemapDetail) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(strings.TrimSpace(body)); err != nil {
		return err
	}
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("no root element")
	}
	d.Valid = true

	var entries []*etree.Element
	switch strings.ToLower(root.Tag) {
	case "urlset":
		d.Type = "urlset"
		entries = root.SelectElements("url")
		d.URLCount = len(entries)
	case "sitemapindex":
		d.Type = "sitemapindex"
		entries = root.SelectElements("sitemap")
		d.SitemapCount = len(entries)
	default:
		return nil
	}

	for _, e := range entries {
		if e.SelectElement("lastmod") != nil {
			d.WithLastMod++
		}
		if loc := e.SelectElement("loc"); loc != nil && len(d.Sample) < sitemapSampleSize {
			d.Sample = append(d.Sample, strings.TrimSpace(loc.Text()))
		}
	}
	return nil
}
