package fetcher

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spider-crawler/siteaudit/internal/config"
)

// errStatus marks a final response at or above 400.
var errStatus = errors.New("error status")

// Fetcher handles HTTP requests with redirect tracking and user agent rotation.
type Fetcher struct {
	client *http.Client
	cfg    config.FetchConfig
	logger *zap.Logger
	next   atomic.Uint64
}

// NewHTTPClient builds the client shared by the fetcher and the link prober.
// Redirects are never followed by the client itself.
func NewHTTPClient(cfg config.FetchConfig) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		// Content-Encoding is negotiated and decoded by readBody.
		DisableCompression: true,
	}

	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// New creates a Fetcher. A nil client gets NewHTTPClient(cfg).
func New(cfg config.FetchConfig, client *http.Client, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = NewHTTPClient(cfg)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = config.DefaultUserAgents
	}
	return &Fetcher{
		client: client,
		cfg:    cfg,
		logger: logger.Named("fetcher"),
	}
}

// Client returns the underlying HTTP client.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// NextUserAgent returns the next user agent of the rotation pool.
func (f *Fetcher) NextUserAgent() string {
	n := f.next.Add(1) - 1
	return f.cfg.UserAgents[n%uint64(len(f.cfg.UserAgents))]
}

// Fetch retrieves rawURL. It never fails: on any error, an error status, or a
// body too short to be a real page, the returned Response carries fallback
// markup and the reason is logged.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) *Response {
	startTime := time.Now()
	response := &Response{
		RequestURL:    rawURL,
		FinalURL:      rawURL,
		RedirectChain: make([]RedirectHop, 0),
		UserAgent:     f.NextUserAgent(),
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	reason, err := f.fetch(ctx, response)
	response.ResponseTime = time.Since(startTime)

	if reason == ReasonNone && len(strings.TrimSpace(string(response.Body))) < f.cfg.MinBodyLength {
		reason = ReasonBodyTooShort
		err = fmt.Errorf("body has %d bytes, minimum is %d", len(response.Body), f.cfg.MinBodyLength)
	}

	if reason != ReasonNone {
		f.fallback(response, reason, err)
	}
	return response
}

func (f *Fetcher) fetch(ctx context.Context, response *Response) (Reason, error) {
	currentURL := response.RequestURL
	var ttfbRecorded bool

	for i := 0; i <= f.cfg.MaxRedirects; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, currentURL, nil)
		if err != nil {
			return ReasonInvalidRequest, fmt.Errorf("failed to create request: %w", err)
		}
		f.setRequestHeaders(req, response.UserAgent)

		reqStart := time.Now()
		resp, err := f.client.Do(req)
		if err != nil {
			response.FinalURL = currentURL
			return categorizeError(err), err
		}

		if !ttfbRecorded {
			response.TTFB = time.Since(reqStart)
			ttfbRecorded = true
		}

		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			location := resp.Header.Get("Location")
			resp.Body.Close()

			if location != "" {
				response.RedirectChain = append(response.RedirectChain, RedirectHop{
					URL:        currentURL,
					StatusCode: resp.StatusCode,
					Location:   location,
				})

				next, err := resolveRedirectURL(currentURL, location)
				if err != nil {
					response.StatusCode = resp.StatusCode
					return ReasonInvalidRequest, fmt.Errorf("invalid redirect location: %w", err)
				}
				currentURL = next
				continue
			}
		}

		response.FinalURL = currentURL
		response.StatusCode = resp.StatusCode
		response.Headers = resp.Header
		response.ContentType = extractContentType(resp.Header.Get("Content-Type"))

		if resp.StatusCode >= 400 || resp.StatusCode < 200 {
			resp.Body.Close()
			return ReasonHTTPStatus, fmt.Errorf("%w: %d", errStatus, resp.StatusCode)
		}

		body, err := readBody(resp, f.cfg.MaxBodyBytes)
		resp.Body.Close()
		if err != nil {
			return ReasonReadError, fmt.Errorf("failed to read body: %w", err)
		}
		response.Body = body
		return ReasonNone, nil
	}

	response.FinalURL = currentURL
	return ReasonTooManyRedirects, fmt.Errorf("max redirects (%d) exceeded", f.cfg.MaxRedirects)
}

func (f *Fetcher) fallback(response *Response, reason Reason, err error) {
	host := ""
	if u, perr := url.Parse(response.RequestURL); perr == nil {
		host = u.Hostname()
	}

	response.Fallback = true
	response.FallbackReason = reason
	response.Body = FallbackHTML(host)
	response.ContentType = "text/html"
	if err != nil {
		response.FallbackDetail = err.Error()
	}

	f.logger.Warn("Fetch failed, using fallback document",
		zap.String("url", response.RequestURL),
		zap.String("reason", string(reason)),
		zap.Int("status", response.StatusCode),
		zap.Duration("elapsed", response.ResponseTime),
		zap.Error(err),
	)
}

// Head issues a single HEAD request and returns the status code. Redirects are
// not followed.
func (f *Fetcher) Head(ctx context.Context, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	f.setRequestHeaders(req, f.NextUserAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// GetStatus issues a GET for the first byte of rawURL and returns the status
// code. The body is discarded. It serves servers that refuse HEAD.
func (f *Fetcher) GetStatus(ctx context.Context, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	f.setRequestHeaders(req, f.NextUserAgent())
	req.Header.Set("Range", "bytes=0-0")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, nil
}

// Resource fetches an auxiliary file with GET, following redirects. It never
// fails; Exists is true only for a final 2xx response.
func (f *Fetcher) Resource(ctx context.Context, rawURL string) *Resource {
	res := &Resource{URL: rawURL}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	response := &Response{RequestURL: rawURL, UserAgent: f.NextUserAgent()}
	reason, err := f.fetch(ctx, response)
	res.StatusCode = response.StatusCode
	if reason != ReasonNone {
		res.Err = err.Error()
		f.logger.Debug("Resource unavailable",
			zap.String("url", rawURL),
			zap.String("reason", string(reason)),
			zap.Error(err),
		)
		return res
	}

	res.Exists = response.IsSuccess()
	res.Body = string(response.Body)
	return res
}

// setRequestHeaders sets browser-like request headers.
func (f *Fetcher) setRequestHeaders(req *http.Request, userAgent string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	if f.cfg.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", f.cfg.AcceptLanguage)
	}
	for k, v := range f.cfg.Headers {
		req.Header.Set(k, v)
	}
}

// Close releases idle connections.
func (f *Fetcher) Close() {
	f.client.CloseIdleConnections()
}

// categorizeError maps transport errors to fallback reasons.
func categorizeError(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ReasonDNS
	}

	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuth) || errors.As(err, &hostErr) ||
		strings.Contains(err.Error(), "tls:") {
		return ReasonTLS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return ReasonConnection
	}

	return ReasonNetwork
}

func resolveRedirectURL(baseURL, location string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}

	loc, err := url.Parse(location)
	if err != nil {
		return "", err
	}

	return base.ResolveReference(loc).String(), nil
}

func extractContentType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx != -1 {
		return strings.ToLower(strings.TrimSpace(contentType[:idx]))
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
