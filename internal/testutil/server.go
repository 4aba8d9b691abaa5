// Package testutil provides test helpers shared by the audit packages.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// TestServer provides a configurable test HTTP server.
type TestServer struct {
	Server    *httptest.Server
	mu        sync.RWMutex
	pages     map[string]*TestPage
	handlers  map[string]http.HandlerFunc
	delays    map[string]time.Duration
	errors    map[string]int // path -> status code
	hits      map[string]int
	methods   map[string][]string
	redirects map[string]string
}

// TestPage represents a test page.
type TestPage struct {
	Content     string
	ContentType string
	StatusCode  int
	Headers     map[string]string
}

// NewTestServer creates and starts a new test server.
func NewTestServer() *TestServer {
	ts := &TestServer{
		pages:     make(map[string]*TestPage),
		handlers:  make(map[string]http.HandlerFunc),
		delays:    make(map[string]time.Duration),
		errors:    make(map[string]int),
		hits:      make(map[string]int),
		methods:   make(map[string][]string),
		redirects: make(map[string]string),
	}

	ts.Server = httptest.NewServer(http.HandlerFunc(ts.handler))
	return ts
}

func (ts *TestServer) handler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	ts.mu.Lock()
	ts.hits[path]++
	ts.methods[path] = append(ts.methods[path], r.Method)
	delay := ts.delays[path]
	errorCode := ts.errors[path]
	redirect := ts.redirects[path]
	custom := ts.handlers[path]
	page := ts.pages[path]
	ts.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	switch {
	case redirect != "":
		http.Redirect(w, r, redirect, http.StatusMovedPermanently)
	case errorCode > 0:
		w.WriteHeader(errorCode)
	case custom != nil:
		custom(w, r)
	case page != nil:
		for k, v := range page.Headers {
			w.Header().Set(k, v)
		}
		if page.ContentType != "" {
			w.Header().Set("Content-Type", page.ContentType)
		} else {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		}
		if page.StatusCode > 0 {
			w.WriteHeader(page.StatusCode)
		}
		if r.Method != http.MethodHead {
			io.WriteString(w, page.Content)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// AddPage adds an HTML page.
func (ts *TestServer) AddPage(path, content string) {
	ts.AddPageWithType(path, content, "text/html; charset=utf-8")
}

// AddPageWithType adds a page with a specific content type.
func (ts *TestServer) AddPageWithType(path, content, contentType string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.pages[path] = &TestPage{
		Content:     content,
		ContentType: contentType,
		StatusCode:  http.StatusOK,
	}
}

// AddPageWithStatus adds an HTML page answered with the given status code.
func (ts *TestServer) AddPageWithStatus(path, content string, status int) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.pages[path] = &TestPage{
		Content:     content,
		ContentType: "text/html; charset=utf-8",
		StatusCode:  status,
	}
}

// Handle installs a custom handler for path.
func (ts *TestServer) Handle(path string, h http.HandlerFunc) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.handlers[path] = h
}

// SetDelay sets response delay for a path.
func (ts *TestServer) SetDelay(path string, delay time.Duration) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.delays[path] = delay
}

// SetError sets error status for a path.
func (ts *TestServer) SetError(path string, statusCode int) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.errors[path] = statusCode
}

// SetRedirect sets a 301 redirect for a path.
func (ts *TestServer) SetRedirect(from, to string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.redirects[from] = to
}

// GetHits returns hit count for a path.
func (ts *TestServer) GetHits(path string) int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.hits[path]
}

// GetMethods returns the request methods seen for a path, in arrival order.
func (ts *TestServer) GetMethods(path string) []string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	out := make([]string, len(ts.methods[path]))
	copy(out, ts.methods[path])
	return out
}

// URL returns the server base URL.
func (ts *TestServer) URL() string {
	return ts.Server.URL
}

// Close closes the test server.
func (ts *TestServer) Close() {
	ts.Server.Close()
}

// BuildTestSite installs a small site: a home page with links, an about page,
// robots.txt and sitemap.xml.
func (ts *TestServer) BuildTestSite() {
	ts.AddPage("/", NewHTMLBuilder().
		Title("Test Site Home Page for Audit Engine Checks").
		MetaDescription("This is the test site home page used to exercise every analyzer of the audit engine with realistic content and links.").
		Viewport("width=device-width, initial-scale=1").
		Canonical(ts.URL()+"/").
		H1("Welcome to Test Site").
		Body("<p>Test site content about audits, audits and more audits for search engines.</p>").
		Link("/about", "About").
		Link("/missing", "Missing").
		Link("/about", "About again").
		Img("/logo.png", "Logo").
		Build())

	ts.AddPage("/about", NewHTMLBuilder().Title("About Us").H1("About Us").Build())

	ts.AddPageWithType("/robots.txt", "User-agent: *\nDisallow: /private/\nSitemap: "+ts.URL()+"/sitemap.xml\n", "text/plain")

	ts.AddPageWithType("/sitemap.xml", `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<url><loc>`+ts.URL()+`/</loc></url>
	<url><loc>`+ts.URL()+`/about</loc></url>
</urlset>`, "application/xml")
}
