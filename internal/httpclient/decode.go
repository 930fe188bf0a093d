package httpclient

import (
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/net/html/charset"
)

// AcceptEncoding is sent on every panel request; DecodeBody undoes whichever one comes back.
const AcceptEncoding = "gzip, deflate, br, zstd"

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error { return r.close() }

// DecodeBody wraps resp.Body so reads return identity-encoded bytes. Closing the
// returned reader closes the response body.
func DecodeBody(resp *http.Response) (io.ReadCloser, error) {
	enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	body := resp.Body
	switch enc {
	case "", "identity":
		return body, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			body.Close()
			return nil, fmt.Errorf("gzip body: %w", err)
		}
		return readCloser{zr, func() error { zr.Close(); return body.Close() }}, nil
	case "deflate":
		zr, err := zlib.NewReader(body)
		if err != nil {
			body.Close()
			return nil, fmt.Errorf("deflate body: %w", err)
		}
		return readCloser{zr, func() error { zr.Close(); return body.Close() }}, nil
	case "br":
		return readCloser{brotli.NewReader(body), body.Close}, nil
	case "zstd":
		zr, err := zstd.NewReader(body)
		if err != nil {
			body.Close()
			return nil, fmt.Errorf("zstd body: %w", err)
		}
		return readCloser{zr, func() error { zr.Close(); return body.Close() }}, nil
	default:
		body.Close()
		return nil, fmt.Errorf("unsupported content-encoding %q", enc)
	}
}

// DecodeText is DecodeBody plus conversion to UTF-8 using the Content-Type charset
// (or a sniff of the first bytes when none is declared).
func DecodeText(resp *http.Response) (io.ReadCloser, error) {
	rc, err := DecodeBody(resp)
	if err != nil {
		return nil, err
	}
	r, err := charset.NewReader(rc, resp.Header.Get("Content-Type"))
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("charset: %w", err)
	}
	return readCloser{r, rc.Close}, nil
}
