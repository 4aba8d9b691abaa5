package prober

import (
	"context"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/spider-crawler/siteaudit/internal/config"
	"github.com/spider-crawler/siteaudit/internal/fetcher"
	"github.com/spider-crawler/siteaudit/internal/parser"
	"github.com/spider-crawler/siteaudit/internal/testutil"
)

func newTestProber(t *testing.T, cfg config.ProbeConfig) (*Prober, *fetcher.Fetcher) {
	t.Helper()
	f := fetcher.New(config.Default().Fetch, nil, nil)
	t.Cleanup(f.Close)
	return New(cfg, f, nil), f
}

func probeConfig() config.ProbeConfig {
	return config.ProbeConfig{
		Workers: 10,
		Timeout: 2 * time.Second,
	}
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestProbeReachability(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ts := testutil.NewTestServer()
	defer ts.Close()
	ts.AddPage("/ok", "fine")
	ts.SetRedirect("/moved", "/ok")
	ts.SetError("/gone", http.StatusGone)

	p, f := newTestProber(t, probeConfig())
	defer f.Close()

	records := p.Probe(context.Background(), []parser.Link{
		{Href: "/ok", Text: "ok"},
		{Href: "/moved", Text: "moved"},
		{Href: "/gone", Text: "gone"},
		{Href: "/nowhere", Text: "nowhere"},
	}, mustParse(t, ts.URL()+"/blog/post"))

	require.Len(t, records, 4)

	assert.True(t, records[0].Reachable)
	assert.Equal(t, http.StatusOK, records[0].HTTPStatus)
	assert.Equal(t, ts.URL()+"/ok", records[0].ResolvedURL)
	assert.Equal(t, "ok", records[0].AnchorText)

	assert.True(t, records[1].Reachable, "3xx counts as reachable")
	assert.Equal(t, http.StatusMovedPermanently, records[1].HTTPStatus)

	assert.False(t, records[2].Reachable)
	assert.Equal(t, http.StatusGone, records[2].HTTPStatus)
	assert.True(t, records[2].Broken())

	assert.False(t, records[3].Reachable)
	assert.Equal(t, http.StatusNotFound, records[3].HTTPStatus)

	assert.Equal(t, []string{http.MethodHead}, ts.GetMethods("/ok"))
}

func TestProbeRetriesRefusedHeadWithGet(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ts := testutil.NewTestServer()
	defer ts.Close()
	getOnly := func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Write([]byte("hello"))
	}
	ts.Handle("/get-only", getOnly)
	ts.Handle("/no-head", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotImplemented)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	p, f := newTestProber(t, probeConfig())
	defer f.Close()

	records := p.Probe(context.Background(), []parser.Link{
		{Href: "/get-only"},
		{Href: "/no-head"},
	}, mustParse(t, ts.URL()+"/"))
	require.Len(t, records, 2)

	assert.True(t, records[0].Reachable)
	assert.False(t, records[0].Broken())
	assert.Equal(t, http.StatusOK, records[0].HTTPStatus)
	assert.Equal(t, []string{http.MethodHead, http.MethodGet}, ts.GetMethods("/get-only"))

	assert.True(t, records[1].Broken())
	assert.Equal(t, http.StatusNotFound, records[1].HTTPStatus)
	assert.Equal(t, []string{http.MethodHead, http.MethodGet}, ts.GetMethods("/no-head"))
}

func TestProbeWithoutGetterKeepsHeadStatus(t *testing.T) {
	p := New(probeConfig(), headFunc(func(ctx context.Context, rawURL string) (int, error) {
		return http.StatusMethodNotAllowed, nil
	}), nil)

	records := p.Probe(context.Background(), []parser.Link{{Href: "/x"}}, mustParse(t, "https://example.com/"))
	require.Len(t, records, 1)
	assert.Equal(t, http.StatusMethodNotAllowed, records[0].HTTPStatus)
	assert.True(t, records[0].Broken())
}

func TestProbeDuplicatesProbedOnce(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ts := testutil.NewTestServer()
	defer ts.Close()
	ts.AddPage("/about", "about")

	p, f := newTestProber(t, probeConfig())
	defer f.Close()

	records := p.Probe(context.Background(), []parser.Link{
		{Href: "/about", Text: "first"},
		{Href: "/about#team", Text: "second"},
		{Href: ts.URL() + "/about", Text: "third"},
	}, mustParse(t, ts.URL()+"/"))

	require.Len(t, records, 3)
	assert.Equal(t, 1, ts.GetHits("/about"))
	for _, rec := range records {
		assert.True(t, rec.Reachable)
		assert.Equal(t, http.StatusOK, rec.HTTPStatus)
		assert.Equal(t, 3, rec.Occurrences)
	}
	assert.Equal(t, "first", records[0].AnchorText)
	assert.Equal(t, "third", records[2].AnchorText)
}

func TestProbeInvalidHref(t *testing.T) {
	p, f := newTestProber(t, probeConfig())
	defer f.Close()

	records := p.Probe(context.Background(), []parser.Link{
		{Href: "http://[::1", Text: "broken"},
		{Href: "ftp://example.com/file", Text: "ftp"},
	}, mustParse(t, "https://example.com/"))

	require.Len(t, records, 2)
	for _, rec := range records {
		assert.True(t, rec.Invalid())
		assert.False(t, rec.Reachable)
		assert.Equal(t, 0, rec.HTTPStatus)
		assert.Empty(t, rec.ResolvedURL)
		assert.NotEmpty(t, rec.Error)
		assert.False(t, rec.Broken())
	}
}

func TestProbeDeadlineMarksRemainingTimedOut(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ts := testutil.NewTestServer()
	defer ts.Close()
	ts.AddPage("/fast", "fast")
	ts.AddPage("/slow", "slow")
	ts.SetDelay("/slow", 3*time.Second)

	p, f := newTestProber(t, probeConfig())
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	records := p.Probe(ctx, []parser.Link{
		{Href: "/fast"},
		{Href: "/slow"},
	}, mustParse(t, ts.URL()))

	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, records, 2)
	assert.True(t, records[0].Reachable)
	assert.True(t, records[1].TimedOut)
	assert.False(t, records[1].Reachable)
	assert.Equal(t, 0, records[1].HTTPStatus)
}

func TestProbeCancelledContext(t *testing.T) {
	p, f := newTestProber(t, probeConfig())
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := p.Probe(ctx, []parser.Link{{Href: "/a"}, {Href: "/b"}}, mustParse(t, "https://example.com"))
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.True(t, rec.TimedOut)
		assert.False(t, rec.Reachable)
	}
}

func TestProbeLinkLimit(t *testing.T) {
	cfg := probeConfig()
	cfg.MaxLinks = 1

	var calls atomic.Int32
	p := New(cfg, headFunc(func(ctx context.Context, rawURL string) (int, error) {
		calls.Add(1)
		return http.StatusOK, nil
	}), nil)

	records := p.Probe(context.Background(), []parser.Link{{Href: "/a"}, {Href: "/b"}}, mustParse(t, "https://example.com"))
	require.Len(t, records, 2)
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, records[0].Reachable)
	assert.True(t, records[1].Skipped)
	assert.False(t, records[1].Broken())
}

func TestProbeRespectsWorkerLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	p := New(probeConfig(), headFunc(func(ctx context.Context, rawURL string) (int, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return http.StatusOK, nil
	}), nil)

	links := make([]parser.Link, 40)
	for i := range links {
		// distinct hosts so per-host politeness does not serialize the test
		links[i] = parser.Link{Href: "https://host" + string(rune('a'+i%26)) + string(rune('a'+i/26)) + ".example/"}
	}

	records := p.Probe(context.Background(), links, mustParse(t, "https://example.com"))
	require.Len(t, records, 40)
	assert.LessOrEqual(t, peak.Load(), int32(config.MinProbeWorkers))
}

type headFunc func(ctx context.Context, rawURL string) (int, error)

func (f headFunc) Head(ctx context.Context, rawURL string) (int, error) {
	return f(ctx, rawURL)
}
