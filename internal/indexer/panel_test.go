package indexer

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/snapetech/panelm3u/internal/credentials"
	"github.com/snapetech/panelm3u/internal/httpclient"
)

// fakePanel serves player_api.php actions from canned bodies. A body of "!NNN"
// answers with that status code; "!sleep" stalls past any test budget.
type fakePanel struct {
	srv      *httptest.Server
	bodies   map[string]string
	series   map[string]string // series_id -> get_series_info body
	export   string
	requests atomic.Int64
}

func newFakePanel(t *testing.T) *fakePanel {
	t.Helper()
	p := &fakePanel{bodies: map[string]string{}, series: map[string]string{}}
	p.srv = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *fakePanel) serve(w http.ResponseWriter, r *http.Request) {
	p.requests.Add(1)
	q := r.URL.Query()
	if q.Get("username") != "u" || q.Get("password") != "p" {
		http.Error(w, "auth", http.StatusUnauthorized)
		return
	}
	var body string
	switch {
	case strings.HasSuffix(r.URL.Path, "/get.php"):
		body = p.export
	case q.Get("action") == "get_series_info":
		body = p.series[q.Get("series_id")]
	default:
		var ok bool
		if body, ok = p.bodies[q.Get("action")]; !ok {
			http.NotFound(w, r)
			return
		}
	}
	switch {
	case body == "!sleep":
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		return
	case strings.HasPrefix(body, "!"):
		var code int
		for _, c := range body[1:] {
			code = code*10 + int(c-'0')
		}
		w.WriteHeader(code)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func (p *fakePanel) client(t *testing.T) *Client {
	t.Helper()
	conn, err := credentials.Resolve(p.srv.URL + "/get.php?username=u&password=p")
	if err != nil {
		t.Fatal(err)
	}
	return NewClient(conn, Options{Budgets: httpclient.Budgets{
		Category: 300 * time.Millisecond,
		Streams:  300 * time.Millisecond,
		Detail:   300 * time.Millisecond,
	}})
}
