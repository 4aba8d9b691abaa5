package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spider-crawler/siteaudit/internal/config"
	"github.com/spider-crawler/siteaudit/internal/testutil"
)

func testConfig() config.FetchConfig {
	cfg := config.Default().Fetch
	cfg.Timeout = 2 * time.Second
	cfg.MinBodyLength = 50
	return cfg
}

func longPage() string {
	return testutil.NewHTMLBuilder().Title("Fetched page").Body(testutil.Pad(40)).Build()
}

func TestFetchSuccess(t *testing.T) {
	ts := testutil.NewTestServer()
	defer ts.Close()
	ts.AddPage("/", longPage())

	f := New(testConfig(), nil, nil)
	defer f.Close()

	resp := f.Fetch(context.Background(), ts.URL()+"/")
	assert.False(t, resp.Fallback)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html", resp.ContentType)
	assert.Contains(t, string(resp.Body), "Fetched page")
	assert.NotEmpty(t, resp.UserAgent)
}

func TestFetchFollowsRedirects(t *testing.T) {
	ts := testutil.NewTestServer()
	defer ts.Close()
	ts.SetRedirect("/old", "/new")
	ts.AddPage("/new", longPage())

	f := New(testConfig(), nil, nil)
	resp := f.Fetch(context.Background(), ts.URL()+"/old")

	require.False(t, resp.Fallback)
	assert.Equal(t, ts.URL()+"/new", resp.FinalURL)
	require.Len(t, resp.RedirectChain, 1)
	assert.Equal(t, http.StatusMovedPermanently, resp.RedirectChain[0].StatusCode)
}

func TestFetchTooManyRedirects(t *testing.T) {
	ts := testutil.NewTestServer()
	defer ts.Close()
	ts.SetRedirect("/a", "/b")
	ts.SetRedirect("/b", "/a")

	cfg := testConfig()
	cfg.MaxRedirects = 3
	resp := New(cfg, nil, nil).Fetch(context.Background(), ts.URL()+"/a")

	assert.True(t, resp.Fallback)
	assert.Equal(t, ReasonTooManyRedirects, resp.FallbackReason)
	assert.Len(t, resp.RedirectChain, 4)
}

func TestFetchFallbacks(t *testing.T) {
	ts := testutil.NewTestServer()
	defer ts.Close()
	ts.SetError("/forbidden", http.StatusForbidden)
	ts.AddPage("/tiny", "<p>hi</p>")
	ts.AddPage("/slow", longPage())
	ts.SetDelay("/slow", 500*time.Millisecond)

	cfg := testConfig()
	cfg.Timeout = 100 * time.Millisecond

	tests := []struct {
		path   string
		reason Reason
	}{
		{"/forbidden", ReasonHTTPStatus},
		{"/tiny", ReasonBodyTooShort},
		{"/slow", ReasonTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			f := New(cfg, nil, zap.New(core))

			resp := f.Fetch(context.Background(), ts.URL()+tt.path)
			require.NotNil(t, resp)
			assert.True(t, resp.Fallback)
			assert.Equal(t, tt.reason, resp.FallbackReason)
			assert.Contains(t, string(resp.Body), "<title>127.0.0.1</title>")
			require.Equal(t, 1, logs.Len())
			assert.Equal(t, string(tt.reason), logs.All()[0].ContextMap()["reason"])
		})
	}
}

func TestFetchUnresolvableHost(t *testing.T) {
	f := New(testConfig(), nil, nil)
	resp := f.Fetch(context.Background(), "https://this-host-does-not-exist.invalid")

	require.NotNil(t, resp)
	assert.True(t, resp.Fallback)
	assert.Equal(t, 0, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "<title>this-host-does-not-exist.invalid</title>")
}

func TestFetchDecodesContentEncodings(t *testing.T) {
	page := longPage()

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write([]byte(page))
	require.NoError(t, gw.Close())

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	_, _ = bw.Write([]byte(page))
	require.NoError(t, bw.Close())

	ts := testutil.NewTestServer()
	defer ts.Close()
	serve := func(encoding string, body []byte) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.Header.Get("Accept-Encoding"), encoding)
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("Content-Encoding", encoding)
			_, _ = w.Write(body)
		}
	}
	ts.Handle("/gzip", serve("gzip", gz.Bytes()))
	ts.Handle("/br", serve("br", br.Bytes()))

	f := New(testConfig(), nil, nil)
	for _, path := range []string{"/gzip", "/br"} {
		resp := f.Fetch(context.Background(), ts.URL()+path)
		assert.False(t, resp.Fallback, path)
		assert.Equal(t, page, string(resp.Body), path)
	}
}

func TestFetchConvertsCharset(t *testing.T) {
	// "café" in ISO-8859-1
	latin1 := append([]byte("<html><head><title>caf"), 0xe9)
	latin1 = append(latin1, []byte("</title></head><body>"+testutil.Pad(30)+"</body></html>")...)

	ts := testutil.NewTestServer()
	defer ts.Close()
	ts.Handle("/latin1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		_, _ = w.Write(latin1)
	})

	resp := New(testConfig(), nil, nil).Fetch(context.Background(), ts.URL()+"/latin1")
	require.False(t, resp.Fallback)
	assert.Contains(t, string(resp.Body), "café")
}

func TestUserAgentRotation(t *testing.T) {
	cfg := testConfig()
	cfg.UserAgents = []string{"ua-1", "ua-2", "ua-3"}
	f := New(cfg, nil, nil)

	var got []string
	for i := 0; i < 4; i++ {
		got = append(got, f.NextUserAgent())
	}
	assert.Equal(t, []string{"ua-1", "ua-2", "ua-3", "ua-1"}, got)
}

func TestHeadAndResource(t *testing.T) {
	ts := testutil.NewTestServer()
	defer ts.Close()
	ts.AddPageWithType("/robots.txt", "User-agent: *\nDisallow:", "text/plain")
	ts.SetRedirect("/moved", "/robots.txt")

	f := New(testConfig(), nil, nil)

	status, err := f.Head(context.Background(), ts.URL()+"/moved")
	require.NoError(t, err)
	assert.Equal(t, http.StatusMovedPermanently, status)
	assert.Equal(t, []string{http.MethodHead}, ts.GetMethods("/moved"))

	res := f.Resource(context.Background(), ts.URL()+"/robots.txt")
	assert.True(t, res.Exists)
	assert.True(t, strings.HasPrefix(res.Body, "User-agent"))

	missing := f.Resource(context.Background(), ts.URL()+"/sitemap.xml")
	assert.False(t, missing.Exists)
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}
