package fetcher

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
)

// readBody decodes Content-Encoding, caps the decoded size at maxBytes and
// converts the declared or sniffed charset to UTF-8.
func readBody(resp *http.Response, maxBytes int64) ([]byte, error) {
	reader, closer, err := decodeContent(resp.Body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, err
	}
	if closer != nil {
		defer closer.Close()
	}

	limited := io.LimitReader(reader, maxBytes)

	utf8Reader, err := charset.NewReader(limited, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(utf8Reader)
}

func decodeContent(body io.Reader, encoding string) (io.Reader, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return body, nil, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip decode error: %w", err)
		}
		return zr, zr, nil
	case "br":
		return brotli.NewReader(body), nil, nil
	case "deflate":
		// Servers send either zlib-wrapped or raw deflate streams.
		buffered := bufio.NewReader(body)
		header, err := buffered.Peek(2)
		if err == nil && isZlibHeader(header) {
			zr, err := zlib.NewReader(buffered)
			if err != nil {
				return nil, nil, fmt.Errorf("zlib decode error: %w", err)
			}
			return zr, zr, nil
		}
		fr := flate.NewReader(buffered)
		return fr, fr, nil
	default:
		return nil, nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}

func isZlibHeader(h []byte) bool {
	if len(h) < 2 {
		return false
	}
	cmf, flg := h[0], h[1]
	return cmf&0x0f == 8 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}
