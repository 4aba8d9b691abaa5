package urlutil

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestResolve(t *testing.T) {
	base := mustParse(t, "https://example.com/blog/post")

	tests := []struct {
		href string
		want string
	}{
		{"/about", "https://example.com/about"},
		{"/about?x=1#team", "https://example.com/about?x=1#team"},
		{"https://other.org/page", "https://other.org/page"},
		{"http://other.org", "http://other.org"},
		{"//cdn.example.net/lib.js", "https://cdn.example.net/lib.js"},
		{"next", "https://example.com/blog/next"},
		{"../index.html", "https://example.com/index.html"},
		{"?page=2", "https://example.com/blog/post?page=2"},
		{"  /padded  ", "https://example.com/padded"},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			got, err := Resolve(base, tt.href)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestResolveFailures(t *testing.T) {
	base := mustParse(t, "https://example.com/blog/post")

	for _, href := range []string{
		"",
		"http://exa mple.com/",
		"%zz",
		"mailto:someone@example.com",
		"javascript:void(0)",
		"ftp://files.example.com/a",
	} {
		t.Run(href, func(t *testing.T) {
			_, err := Resolve(base, href)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnresolvable))
		})
	}
}

func TestParseTarget(t *testing.T) {
	u, err := ParseTarget(" https://example.com/page ")
	require.NoError(t, err)
	assert.Equal(t, "example.com", u.Host)

	for _, raw := range []string{"", "example.com", "/relative", "ftp://example.com", "https://", "http://[::1"} {
		_, err := ParseTarget(raw)
		assert.ErrorIs(t, err, ErrInvalidTarget, raw)
	}
}

func TestKey(t *testing.T) {
	a := mustParse(t, "HTTPS://Example.com:443#top")
	b := mustParse(t, "https://example.com/")
	assert.Equal(t, Key(b), Key(a))

	c := mustParse(t, "http://example.com:80/a?b=1#frag")
	assert.Equal(t, "http://example.com/a?b=1", Key(c))
}

func TestOriginAndHosts(t *testing.T) {
	u := mustParse(t, "https://www.example.com:8443/path")
	assert.Equal(t, "https://www.example.com:8443", Origin(u))
	assert.True(t, IsSameHost(u, mustParse(t, "http://example.com/other")))
	assert.False(t, IsSameHost(u, mustParse(t, "https://blog.example.com/")))

	assert.Equal(t, "example.com", ExtractDomain("www.example.com:8080"))
	assert.Equal(t, "localhost", ExtractDomain("localhost"))
}
