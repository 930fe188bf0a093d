// Integration test against a real panel: set PANEL_M3U_CONNECTION (or put it in .env).
// Skipped otherwise; no credentials are stored in the repo.
package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/snapetech/panelm3u/internal/catalog"
	"github.com/snapetech/panelm3u/internal/config"
	"github.com/snapetech/panelm3u/internal/playlist"
)

func TestIntegration_loadAndGenerate(t *testing.T) {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		_ = config.LoadEnvFile(p)
	}
	cfg := config.Load()
	if cfg.Connection == "" {
		t.Skip("no panel connection (set PANEL_M3U_CONNECTION in .env)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	p := newPipeline(cfg, nil)
	s, err := p.Load(ctx, cfg.Connection)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	live := s.Catalog.SnapshotLive()
	t.Logf("%d live channels, facets %+v", len(live), s.Facets)
	if len(live) > 3 {
		live = live[:3]
	}
	var ids []int64
	for _, ch := range live {
		ids = append(ids, ch.StreamID)
	}
	res := p.Generate(ctx, s, catalog.NewSelection(s.Catalog.SnapshotLive(), ids), nil)
	if !strings.HasPrefix(string(res.Document), playlist.Header) {
		t.Fatal("document does not start with the header")
	}
	r := playlist.NewReader(strings.NewReader(string(res.Document)))
	n := 0
	for r.Next() {
		n++
	}
	if n != res.Counts.Live+res.Counts.Movies+res.Counts.Episodes {
		t.Fatalf("re-parsed %d entries, wrote %+v", n, res.Counts)
	}
	t.Logf("counts %+v, failures %+v", res.Counts, res.Failures)
}
