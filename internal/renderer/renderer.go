// Package renderer provides JavaScript rendering capabilities using Chromium.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/spider-crawler/siteaudit/internal/config"
)

// ErrClosed is returned by Render after Close.
var ErrClosed = errors.New("renderer closed")

// RenderResult holds the result of rendering a page.
type RenderResult struct {
	// Final HTML after JavaScript execution
	HTML string

	// Final URL after any client-side redirects
	FinalURL string

	// Response status code of the main document
	StatusCode int

	// Render duration
	RenderTime time.Duration
}

// Renderer renders pages in a single headless Chromium instance. The browser
// is started lazily on the first Render call.
type Renderer struct {
	mu     sync.Mutex
	cfg    config.RenderConfig
	logger *zap.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc
	closed      bool
}

// New creates a renderer. userAgent is sent with every navigation.
func New(cfg config.RenderConfig, userAgent string, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("mute-audio", true),
		chromedp.WindowSize(1366, 900),
	)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}
	if cfg.ChromiumPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromiumPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Renderer{
		cfg:         cfg,
		logger:      logger.Named("renderer"),
		allocCtx:    allocCtx,
		allocCancel: cancel,
	}
}

// Render navigates to urlStr and returns the serialized DOM.
func (r *Renderer) Render(ctx context.Context, urlStr string) (*RenderResult, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	allocCtx := r.allocCtx
	r.mu.Unlock()

	startTime := time.Now()
	result := &RenderResult{}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	timeout := r.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
	}
	timeoutCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()

	// Abort when the caller gives up, even though the tab context does not
	// derive from ctx.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var statusMu sync.Mutex
	chromedp.ListenTarget(timeoutCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if e.Type == network.ResourceTypeDocument {
				statusMu.Lock()
				if result.StatusCode == 0 {
					result.StatusCode = int(e.Response.Status)
				}
				statusMu.Unlock()
			}
		case *page.EventJavascriptDialogOpening:
			go chromedp.Run(timeoutCtx, page.HandleJavaScriptDialog(true))
		}
	})

	var html, finalURL string
	err := chromedp.Run(timeoutCtx,
		network.Enable(),
		chromedp.Navigate(urlStr),
		r.waitAction(),
		chromedp.Location(&finalURL),
		chromedp.ActionFunc(func(ctx context.Context) error {
			node, err := dom.GetDocument().Do(ctx)
			if err != nil {
				return err
			}
			html, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("render failed: %w", err)
	}

	statusMu.Lock()
	defer statusMu.Unlock()
	result.HTML = html
	result.FinalURL = finalURL
	result.RenderTime = time.Since(startTime)

	r.logger.Debug("Rendered page",
		zap.String("url", urlStr),
		zap.Int("status", result.StatusCode),
		zap.Duration("elapsed", result.RenderTime),
	)
	return result, nil
}

func (r *Renderer) waitAction() chromedp.Action {
	switch r.cfg.WaitCondition {
	case config.WaitNetworkIdle:
		// Simplified network idle
		return chromedp.Tasks{
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(2 * time.Second),
		}
	case config.WaitSelector:
		if r.cfg.WaitSelector != "" {
			return chromedp.WaitVisible(r.cfg.WaitSelector, chromedp.ByQuery)
		}
	}
	return chromedp.WaitReady("body", chromedp.ByQuery)
}

// Close shuts down the browser. It is safe to call more than once.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	r.allocCancel()
	return nil
}
