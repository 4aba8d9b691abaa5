// Package prober checks the health of the links found on an analyzed page.
package prober

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spider-crawler/siteaudit/internal/config"
	"github.com/spider-crawler/siteaudit/internal/parser"
	"github.com/spider-crawler/siteaudit/internal/urlutil"
)

// LinkRecord is the resolved and probed state of one href occurrence.
type LinkRecord struct {
	RawHref     string `json:"raw_href"`
	ResolvedURL string `json:"resolved_url"`
	AnchorText  string `json:"anchor_text"`
	HTTPStatus  int    `json:"http_status"`
	Reachable   bool   `json:"reachable"`
	TimedOut    bool   `json:"timed_out"`
	Skipped     bool   `json:"skipped,omitempty"` // link limit reached before this URL
	Error       string `json:"error,omitempty"`
	Occurrences int    `json:"occurrences"`
}

// Invalid reports whether the href could not be resolved at all.
func (r LinkRecord) Invalid() bool {
	return r.ResolvedURL == ""
}

// Broken reports whether the link was probed and found unreachable.
func (r LinkRecord) Broken() bool {
	return !r.Invalid() && !r.Skipped && !r.TimedOut && !r.Reachable
}

// Header issues one HEAD request and returns the status code.
type Header interface {
	Head(ctx context.Context, rawURL string) (int, error)
}

// StatusGetter is implemented by checkers that can retry a refused HEAD with
// a GET. The retry belongs to the same probe.
type StatusGetter interface {
	GetStatus(ctx context.Context, rawURL string) (int, error)
}

// Prober probes links through a bounded worker pool.
type Prober struct {
	head     Header
	cfg      config.ProbeConfig
	logger   *zap.Logger
	limiters *hostLimiters
}

// New creates a prober. Workers are clamped to the configured bounds.
func New(cfg config.ProbeConfig, head Header, logger *zap.Logger) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers < config.MinProbeWorkers {
		cfg.Workers = config.MinProbeWorkers
	}
	if cfg.Workers > config.MaxProbeWorkers {
		cfg.Workers = config.MaxProbeWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Prober{
		head:     head,
		cfg:      cfg,
		logger:   logger.Named("prober"),
		limiters: newHostLimiters(cfg.PerHostRateLimit, cfg.PerHostBurst),
	}
}

type outcome struct {
	status   int
	reached  bool
	timedOut bool
	err      string
	done     bool
}

// Probe resolves every link against base and checks each distinct URL once.
// The result has one record per input link, in input order. When ctx is done
// before a URL was checked, its records are marked TimedOut.
func (p *Prober) Probe(ctx context.Context, links []parser.Link, base *url.URL) []LinkRecord {
	records := make([]LinkRecord, len(links))

	// unique URLs in first-seen order, and the record indexes sharing each one
	var keys []string
	targets := make(map[string]string)
	occurrences := make(map[string][]int)

	for i, link := range links {
		records[i] = LinkRecord{RawHref: link.Href, AnchorText: link.Text}

		resolved, err := urlutil.Resolve(base, link.Href)
		if err != nil {
			records[i].Error = err.Error()
			records[i].Occurrences = 1
			continue
		}

		key := urlutil.Key(resolved)
		records[i].ResolvedURL = resolved.String()
		if _, seen := occurrences[key]; !seen {
			keys = append(keys, key)
			targets[key] = resolved.String()
		}
		occurrences[key] = append(occurrences[key], i)
	}

	outcomes := make([]outcome, len(keys))
	probeCount := len(keys)
	if p.cfg.MaxLinks > 0 && probeCount > p.cfg.MaxLinks {
		probeCount = p.cfg.MaxLinks
	}

	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)

	started := time.Now()
	for i := 0; i < probeCount; i++ {
		if ctx.Err() != nil {
			break
		}
		target := targets[keys[i]]
		g.Go(func() error {
			outcomes[i] = p.probeOne(ctx, target)
			return nil
		})
	}
	_ = g.Wait()

	var broken, timedOut int
	for i, key := range keys {
		o := outcomes[i]
		for _, idx := range occurrences[key] {
			rec := &records[idx]
			rec.Occurrences = len(occurrences[key])
			switch {
			case i >= probeCount:
				rec.Skipped = true
				rec.Error = "link limit reached"
			case !o.done:
				rec.TimedOut = true
				rec.Error = "deadline exceeded before probe"
			default:
				rec.HTTPStatus = o.status
				rec.Reachable = o.reached
				rec.TimedOut = o.timedOut
				rec.Error = o.err
			}
		}
		if i < probeCount && (!o.done || o.timedOut) {
			timedOut++
		} else if o.done && !o.reached {
			broken++
		}
	}

	p.logger.Debug("Probed links",
		zap.Int("links", len(links)),
		zap.Int("unique", len(keys)),
		zap.Int("broken", broken),
		zap.Int("timed_out", timedOut),
		zap.Duration("elapsed", time.Since(started)),
	)
	return records
}

func (p *Prober) probeOne(ctx context.Context, target string) outcome {
	u, err := url.Parse(target)
	if err != nil {
		return outcome{done: true, err: err.Error()}
	}

	if err := p.limiters.Wait(ctx, u.Host); err != nil {
		// The run deadline expired while waiting for the host's turn.
		return outcome{}
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	status, err := p.head.Head(ctx, target)
	if err == nil && headRefused(status) {
		if g, ok := p.head.(StatusGetter); ok {
			status, err = g.GetStatus(ctx, target)
		}
	}
	if err != nil {
		return outcome{done: true, timedOut: isTimeout(err) || ctx.Err() != nil, err: err.Error()}
	}
	return outcome{
		done:    true,
		status:  status,
		reached: status >= 200 && status < 400,
	}
}

func headRefused(status int) bool {
	return status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
