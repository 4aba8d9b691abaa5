// Package analyzer provides the page audit analyzers.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spider-crawler/siteaudit/internal/market"
	"github.com/spider-crawler/siteaudit/internal/parser"
	"github.com/spider-crawler/siteaudit/internal/prober"
)

// ErrUnknownCategory is returned for category names no analyzer handles.
var ErrUnknownCategory = errors.New("unknown analyzer category")

// Category identifies one analyzer and its section of the report.
type Category string

const (
	CategoryMetaTags        Category = "meta_tags"
	CategoryPageSpeed       Category = "pagespeed"
	CategoryKeywordDensity  Category = "keyword_density"
	CategoryMobile          Category = "mobile"
	CategorySitemapRobots   Category = "sitemap_robots"
	CategoryTechnicalSEO    Category = "technical_seo"
	CategorySchema          Category = "schema"
	CategoryAltText         Category = "alt_text"
	CategoryCanonical       Category = "canonical"
	CategoryBrokenLinks     Category = "broken_links"
	CategoryKeywordResearch Category = "keyword_research"
	CategoryBacklinks       Category = "backlinks"
	CategoryCompetitors     Category = "competitors"
	CategoryRankTracking    Category = "rank_tracking"
)

// categoryOrder is the order of categories in a report.
var categoryOrder = []Category{
	CategoryMetaTags,
	CategoryPageSpeed,
	CategoryKeywordDensity,
	CategoryMobile,
	CategorySitemapRobots,
	CategoryTechnicalSEO,
	CategorySchema,
	CategoryAltText,
	CategoryCanonical,
	CategoryBrokenLinks,
	CategoryKeywordResearch,
	CategoryBacklinks,
	CategoryCompetitors,
	CategoryRankTracking,
}

// Categories returns every category in report order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// ParseCategory converts a name such as "meta_tags" or "meta-tags".
func ParseCategory(name string) (Category, error) {
	c := Category(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_"))
	if c.Index() < 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	return c, nil
}

// ParseCategories converts a list of names, dropping duplicates.
func ParseCategories(names []string) ([]Category, error) {
	out := make([]Category, 0, len(names))
	seen := make(map[Category]bool)
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		c, err := ParseCategory(name)
		if err != nil {
			return nil, err
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out, nil
}

// Index returns the position of c in report order, or -1.
func (c Category) Index() int {
	for i, known := range categoryOrder {
		if known == c {
			return i
		}
	}
	return -1
}

// NeedsLinks reports whether the analyzer consumes probed links.
func (c Category) NeedsLinks() bool {
	return c == CategoryBrokenLinks
}

// NeedsSiteFiles reports whether the analyzer consumes robots.txt and sitemap.xml.
func (c Category) NeedsSiteFiles() bool {
	return c == CategorySitemapRobots
}

// IsMarket reports whether the analyzer reads from the market data provider.
func (c Category) IsMarket() bool {
	switch c {
	case CategoryKeywordResearch, CategoryBacklinks, CategoryCompetitors, CategoryRankTracking:
		return true
	}
	return false
}

// Analyzer is the interface for all analysis modules.
type Analyzer interface {
	// Category returns the report section the analyzer fills
	Category() Category

	// Analyze inspects the page. It must not modify anything reachable from ctx.
	Analyze(ctx *AnalysisContext) (*Result, error)
}

// SiteFile is a probe of an auxiliary file such as robots.txt.
type SiteFile struct {
	URL        string `json:"url"`
	Exists     bool   `json:"exists"`
	StatusCode int    `json:"status_code"`
	Body       string `json:"-"`
}

// SiteFiles carries the {origin}/robots.txt and {origin}/sitemap.xml probes.
type SiteFiles struct {
	Robots  *SiteFile
	Sitemap *SiteFile
}

// AnalysisContext contains all data needed for analysis. It is built once per
// run and shared read-only by every analyzer.
type AnalysisContext struct {
	// Context bounds provider calls
	Context context.Context

	Document *parser.Document
	Links    []prober.LinkRecord
	Site     SiteFiles

	// Response headers of the page (X-Robots-Tag)
	Headers http.Header

	// Keywords supplied by the caller; empty means derive them from the page
	Keywords []string

	Market market.Provider

	// Interactive element count above which touch targets are considered crowded
	MaxTouchTargets int

	// Number of seed keywords handed to the market provider
	SeedKeywords int
}

func (ctx *AnalysisContext) runContext() context.Context {
	if ctx.Context == nil {
		return context.Background()
	}
	return ctx.Context
}

// seeds returns the supplied keywords, or the most frequent long words of the page.
func (ctx *AnalysisContext) seeds() []string {
	if len(ctx.Keywords) > 0 {
		return ctx.Keywords
	}
	n := ctx.SeedKeywords
	if n <= 0 {
		n = 5
	}
	return market.SeedKeywords(ctx.Document.Words(), n)
}

// Thresholds for SEO analysis
var Thresholds = struct {
	TitleMinLength       int
	TitleMaxLength       int
	MetaDescMinLength    int
	MetaDescMaxLength    int
	AltTextMaxLength     int
	KeywordWarnDensity   float64
	KeywordErrorDensity  float64
	AutoKeywordCount     int
	AutoKeywordMinLength int
	MaxStylesheets       int
	MaxEagerImages       int
	LargeDocumentBytes   int
	LowDomainAuthority   int
}{
	TitleMinLength:       30,
	TitleMaxLength:       60,
	MetaDescMinLength:    120,
	MetaDescMaxLength:    160,
	AltTextMaxLength:     100,
	KeywordWarnDensity:   2,
	KeywordErrorDensity:  3,
	AutoKeywordCount:     10,
	AutoKeywordMinLength: 3,
	MaxStylesheets:       5,
	MaxEagerImages:       10,
	LargeDocumentBytes:   500 * 1024,
	LowDomainAuthority:   30,
}
