// Package fetcher retrieves documents over HTTP and never fails: any problem
// is turned into a fallback document.
package fetcher

import (
	"fmt"
	"html"
	"net/http"
	"time"
)

// Reason categorizes why a fetch fell back.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonInvalidRequest    Reason = "invalid_request"
	ReasonTimeout           Reason = "timeout"
	ReasonDNS               Reason = "dns"
	ReasonConnection        Reason = "connection_refused"
	ReasonTLS               Reason = "tls"
	ReasonHTTPStatus        Reason = "http_status"
	ReasonTooManyRedirects  Reason = "too_many_redirects"
	ReasonReadError         Reason = "read_error"
	ReasonBodyTooShort      Reason = "body_too_short"
	ReasonNetwork           Reason = "network"
)

// Response represents the result of fetching the target document.
type Response struct {
	// Original requested URL
	RequestURL string

	// Final URL after redirects
	FinalURL string

	// HTTP status code, 0 when no response was received
	StatusCode int

	// Response headers
	Headers http.Header

	// Content-Type without parameters
	ContentType string

	// Decoded UTF-8 body, or the synthesized fallback markup
	Body []byte

	// Redirect chain (list of URLs in redirect sequence)
	RedirectChain []RedirectHop

	// User agent sent with the request
	UserAgent string

	// Time to first byte
	TTFB time.Duration

	// Total response time
	ResponseTime time.Duration

	// Fallback is set when Body was synthesized
	Fallback bool

	// Why the fetch fell back, with a human readable detail
	FallbackReason Reason
	FallbackDetail string
}

// RedirectHop represents a single redirect in the chain.
type RedirectHop struct {
	URL        string
	StatusCode int
	Location   string
}

// Resource is the result of fetching an auxiliary file such as robots.txt.
type Resource struct {
	URL        string
	StatusCode int
	Exists     bool
	Body       string
	Err        string
}

// IsSuccess returns true if the response was successful (2xx).
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// HasRedirects returns true if there were any redirects.
func (r *Response) HasRedirects() bool {
	return len(r.RedirectChain) > 0
}

// GetHeader returns a header value (case-insensitive).
func (r *Response) GetHeader(name string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get(name)
}

// FallbackHTML synthesizes the minimal document used when a fetch fails.
func FallbackHTML(host string) []byte {
	if host == "" {
		host = "Unknown site"
	}
	return []byte(fmt.Sprintf(
		"<!DOCTYPE html><html><head><title>%s</title></head><body><p>Content unavailable.</p></body></html>",
		html.EscapeString(host),
	))
}
