package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

func TestNewSet_defaultsAndNoKeepAlive(t *testing.T) {
	s := NewSet(Budgets{Streams: 5 * time.Second})
	if s.Category.Timeout != DefaultCategoryTimeout {
		t.Errorf("category timeout %v", s.Category.Timeout)
	}
	if s.Streams.Timeout != 5*time.Second {
		t.Errorf("streams timeout %v", s.Streams.Timeout)
	}
	if s.Detail.Timeout != DefaultDetailTimeout {
		t.Errorf("detail timeout %v", s.Detail.Timeout)
	}
	for _, c := range []*http.Client{s.Category, s.Streams, s.Detail} {
		tr, ok := c.Transport.(*http.Transport)
		if !ok || !tr.DisableKeepAlives {
			t.Fatalf("transport must disable keep-alives: %#v", c.Transport)
		}
	}
}

func TestHostSemaphore_limits(t *testing.T) {
	sem := NewHostSemaphore(2)
	var inflight, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := sem.Acquire(context.Background(), "http://panel.test:8080/player_api.php?x=1")
			if err != nil {
				t.Error(err)
				return
			}
			n := atomic.AddInt32(&inflight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inflight, -1)
			release()
		}()
	}
	wg.Wait()
	if peak > 2 {
		t.Errorf("peak concurrency %d > 2", peak)
	}
}

func TestHostSemaphore_ctxDone(t *testing.T) {
	sem := NewHostSemaphore(1)
	release, err := sem.Acquire(context.Background(), "http://a.test")
	if err != nil {
		t.Fatal(err)
	}
	defer release()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := sem.Acquire(ctx, "http://a.test/other"); err == nil {
		t.Error("expected ctx error while host is saturated")
	}
	var nilSem *HostSemaphore
	r, err := nilSem.Acquire(context.Background(), "http://a.test")
	if err != nil {
		t.Fatal(err)
	}
	r()
}

func serveEncoded(t *testing.T, enc string, body []byte) *http.Response {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", enc)
		w.Header().Set("Content-Type", "text/plain; charset=iso-8859-1")
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	resp, err := WithTimeout(5 * time.Second).Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestDecodeBody_encodings(t *testing.T) {
	plain := []byte("#EXTM3U\n")
	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	gw.Write(plain)
	gw.Close()
	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	bw.Write(plain)
	bw.Close()
	zw, _ := zstd.NewWriter(nil)
	zs := zw.EncodeAll(plain, nil)
	zw.Close()

	for enc, body := range map[string][]byte{"": plain, "gzip": gz.Bytes(), "br": br.Bytes(), "zstd": zs} {
		resp := serveEncoded(t, enc, body)
		rc, err := DecodeBody(resp)
		if err != nil {
			t.Fatalf("%q: %v", enc, err)
		}
		got, err := io.ReadAll(rc)
		rc.Close()
		if err != nil || !bytes.Equal(got, plain) {
			t.Errorf("%q: got %q err %v", enc, got, err)
		}
	}
}

func TestDecodeText_latin1(t *testing.T) {
	resp := serveEncoded(t, "", []byte("Caf\xe9"))
	rc, err := DecodeText(resp)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "Café" {
		t.Errorf("got %q", got)
	}
}
