// Package engine runs one single-page audit: fetch, parse, probe, analyze and
// aggregate into a report.
package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spider-crawler/siteaudit/internal/analyzer"
	"github.com/spider-crawler/siteaudit/internal/config"
	"github.com/spider-crawler/siteaudit/internal/fetcher"
	"github.com/spider-crawler/siteaudit/internal/market"
	"github.com/spider-crawler/siteaudit/internal/parser"
	"github.com/spider-crawler/siteaudit/internal/prober"
	"github.com/spider-crawler/siteaudit/internal/renderer"
	"github.com/spider-crawler/siteaudit/internal/report"
	"github.com/spider-crawler/siteaudit/internal/urlutil"
)

// ErrInvalidTarget is returned for targets that are not absolute http(s) URLs.
var ErrInvalidTarget = urlutil.ErrInvalidTarget

// Request is one analysis target.
type Request struct {
	URL string `json:"url"`

	// Keywords for keyword density and market seeds; empty derives them from the page
	Keywords []string `json:"keywords,omitempty"`

	// Categories to run; empty runs the configured default, or all of them
	Categories []analyzer.Category `json:"categories,omitempty"`

	// Deadline for the whole run; zero uses the configured one
	Timeout time.Duration `json:"timeout,omitempty"`
}

// PageRenderer produces markup after JavaScript execution.
type PageRenderer interface {
	Render(ctx context.Context, pageURL string) (*renderer.RenderResult, error)
	Close() error
}

// Option configures the Engine.
type Option func(*Engine)

// WithProvider sets the market data provider.
func WithProvider(p market.Provider) Option {
	return func(e *Engine) {
		e.provider = p
	}
}

// WithHTTPClient sets the client used for the page fetch, site files and link probes.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) {
		e.client = client
	}
}

// WithRenderer sets the JavaScript renderer. A renderer is only used when
// render.mode is "js".
func WithRenderer(r PageRenderer) Option {
	return func(e *Engine) {
		e.renderer = r
	}
}

// Engine holds everything a run needs. It is built once and safe for
// concurrent Analyze calls.
type Engine struct {
	cfg    *config.Config
	logger *zap.Logger

	client   *http.Client
	fetcher  *fetcher.Fetcher
	renderer PageRenderer
	prober   *prober.Prober
	provider market.Provider
	manager  *analyzer.Manager

	// default categories from configuration
	categories []analyzer.Category
}

// New builds an engine. A nil cfg uses the defaults.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	categories, err := analyzer.ParseCategories(cfg.Analysis.Categories)
	if err != nil {
		return nil, fmt.Errorf("analysis.categories: %w", err)
	}

	e := &Engine{
		cfg:        cfg,
		logger:     logger.Named("engine"),
		categories: categories,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.client == nil {
		e.client = fetcher.NewHTTPClient(cfg.Fetch)
	}
	e.fetcher = fetcher.New(cfg.Fetch, e.client, logger)
	e.prober = prober.New(cfg.Probe, e.fetcher, logger)
	e.manager = analyzer.NewManager(logger)
	if e.provider == nil {
		e.provider = market.NewSimulated()
	}

	if cfg.Render.Mode == config.RenderJS {
		if e.renderer == nil {
			e.renderer = renderer.New(cfg.Render, e.fetcher.NextUserAgent(), logger)
		}
	} else if e.renderer != nil {
		e.logger.Debug("Renderer supplied but render.mode is html, ignoring it")
		e.renderer = nil
	}

	return e, nil
}

// Close releases the renderer and idle connections.
func (e *Engine) Close() error {
	var err error
	if e.renderer != nil {
		err = e.renderer.Close()
	}
	e.fetcher.Close()
	return err
}

// Analyze audits req.URL and returns the report. Only an invalid target or an
// unknown category is an error; unreachable pages produce a low-scoring report.
func (e *Engine) Analyze(ctx context.Context, req Request) (*report.Report, error) {
	target, err := urlutil.ParseTarget(req.URL)
	if err != nil {
		return nil, err
	}
	categories, err := e.resolveCategories(req.Categories)
	if err != nil {
		return nil, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.cfg.Analysis.Deadline
	}
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	logger := e.logger.With(zap.String("url", target.String()))
	logger.Info("Analysis started", zap.Int("categories", len(categories)), zap.Duration("deadline", timeout))

	resp, rendered := e.load(ctx, target.String())

	pageURL := target
	if u, err := url.Parse(resp.FinalURL); err == nil && u.IsAbs() {
		pageURL = u
	}
	doc, err := parser.New(pageURL, resp.Body, resp.Fallback)
	if err != nil {
		// markup that goquery rejects is handled like any other failed fetch
		logger.Warn("Failed to parse document, using fallback", zap.Error(err))
		resp.Fallback = true
		resp.FallbackReason = fetcher.ReasonReadError
		resp.FallbackDetail = err.Error()
		resp.Body = fetcher.FallbackHTML(pageURL.Hostname())
		if doc, err = parser.New(pageURL, resp.Body, true); err != nil {
			return nil, fmt.Errorf("parse fallback document: %w", err)
		}
	}

	keywords := req.Keywords
	if len(keywords) == 0 {
		keywords = e.cfg.Analysis.Keywords
	}

	actx := &analyzer.AnalysisContext{
		Context:         ctx,
		Document:        doc,
		Headers:         resp.Headers,
		Keywords:        keywords,
		Market:          e.provider,
		MaxTouchTargets: e.cfg.Analysis.MaxTouchTargets,
		SeedKeywords:    e.cfg.Analysis.SeedKeywords,
	}
	e.gather(ctx, actx, categories)

	// The run deadline bounds loading and probing only; analyzers get their own budget.
	runCtx, cancelRun := context.WithTimeout(parent, e.cfg.Analysis.AnalyzerTimeout)
	defer cancelRun()
	actx.Context = runCtx
	results := e.manager.Run(actx, categories)

	rep := report.Build(req.URL, resp.FinalURL, results, summarize(resp, rendered), started)
	logger.Info("Analysis finished",
		zap.String("report_id", rep.ID),
		zap.Int("overall_score", rep.OverallScore),
		zap.Bool("fallback", resp.Fallback),
		zap.Duration("elapsed", rep.Duration),
	)
	return rep, nil
}

// AnalyzeCategory runs a single analyzer against req.URL.
func (e *Engine) AnalyzeCategory(ctx context.Context, req Request, c analyzer.Category) (*analyzer.Result, error) {
	req.Categories = []analyzer.Category{c}
	rep, err := e.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	if res := rep.Result(c); res != nil {
		return res, nil
	}
	return nil, fmt.Errorf("%w: %q", analyzer.ErrUnknownCategory, c)
}

func (e *Engine) resolveCategories(requested []analyzer.Category) ([]analyzer.Category, error) {
	for _, c := range requested {
		if c.Index() < 0 {
			return nil, fmt.Errorf("%w: %q", analyzer.ErrUnknownCategory, c)
		}
	}
	if len(requested) > 0 {
		return requested, nil
	}
	if len(e.categories) > 0 {
		return e.categories, nil
	}
	return analyzer.Categories(), nil
}

// load returns the page markup, rendered when a renderer is configured. Any
// render failure falls back to the plain HTTP fetch.
func (e *Engine) load(ctx context.Context, target string) (*fetcher.Response, bool) {
	if e.renderer != nil {
		rr, err := e.renderer.Render(ctx, target)
		if err == nil {
			finalURL := rr.FinalURL
			if finalURL == "" {
				finalURL = target
			}
			return &fetcher.Response{
				RequestURL:   target,
				FinalURL:     finalURL,
				StatusCode:   rr.StatusCode,
				ContentType:  "text/html",
				Body:         []byte(rr.HTML),
				ResponseTime: rr.RenderTime,
			}, true
		}
		e.logger.Warn("Render failed, falling back to HTTP fetch",
			zap.String("url", target),
			zap.Error(err),
		)
	}
	return e.fetcher.Fetch(ctx, target), false
}

// gather fills the site files and probed links of actx, concurrently and
// only for the categories that read them.
func (e *Engine) gather(ctx context.Context, actx *analyzer.AnalysisContext, categories []analyzer.Category) {
	var needLinks, needSite bool
	for _, c := range categories {
		needLinks = needLinks || c.NeedsLinks()
		needSite = needSite || c.NeedsSiteFiles()
	}

	page := actx.Document.URL()
	origin := urlutil.Origin(page)

	var g errgroup.Group
	if needSite {
		g.Go(func() error {
			actx.Site.Robots = siteFile(e.fetcher.Resource(ctx, origin+"/robots.txt"))
			return nil
		})
		g.Go(func() error {
			actx.Site.Sitemap = siteFile(e.fetcher.Resource(ctx, origin+"/sitemap.xml"))
			return nil
		})
	}
	if needLinks {
		g.Go(func() error {
			actx.Links = e.prober.Probe(ctx, actx.Document.Links(), page)
			return nil
		})
	}
	g.Wait()
}

func siteFile(res *fetcher.Resource) *analyzer.SiteFile {
	return &analyzer.SiteFile{
		URL:        res.URL,
		Exists:     res.Exists,
		StatusCode: res.StatusCode,
		Body:       res.Body,
	}
}

func summarize(resp *fetcher.Response, rendered bool) report.FetchSummary {
	return report.FetchSummary{
		StatusCode:     resp.StatusCode,
		ContentType:    resp.ContentType,
		Redirects:      len(resp.RedirectChain),
		Rendered:       rendered,
		Fallback:       resp.Fallback,
		FallbackReason: string(resp.FallbackReason),
		FallbackDetail: resp.FallbackDetail,
		ResponseTime:   resp.ResponseTime,
		Bytes:          len(resp.Body),
	}
}
