package indexer

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/snapetech/panelm3u/internal/httpclient"
	"github.com/snapetech/panelm3u/internal/playlist"
	"github.com/snapetech/panelm3u/internal/provider"
)

// Export is an open bulk playlist download. Read entries through Reader and Close when done.
type Export struct {
	*playlist.Reader
	body    io.Closer
	started time.Time
	c       *Client
}

// Status is StatusOK unless reading failed part way through. Scanner failures such
// as an over-long line count as malformed content.
func (e *Export) Status() provider.Status {
	err := e.Reader.Err()
	if err == nil {
		return provider.StatusOK
	}
	if st := provider.Classify(err); st != provider.StatusUnreachable {
		return st
	}
	return provider.StatusMalformed
}

// Close releases the connection and records the fetch outcome.
func (e *Export) Close() error {
	err := e.body.Close()
	st := e.Reader.Stats()
	e.c.observe(FacetExport, e.started, e.Status(), st.Orphans+st.Dangling, e.Reader.Err())
	return err
}

// Export opens get.php?type=m3u_plus&output=ts and returns a streaming reader over it.
// The body is decoded (content encoding and charset) before parsing. Status is
// provider.StatusOK when the download started.
func (c *Client) Export(ctx context.Context) (*Export, provider.Status, error) {
	start := time.Now()
	resp, err := c.open(ctx, c.clients.Streams, c.conn.ExportURL())
	if err != nil {
		err = fmt.Errorf("export: %w", err)
		st := provider.Classify(err)
		c.observe(FacetExport, start, st, 0, err)
		return nil, st, err
	}
	body, err := httpclient.DecodeText(resp)
	if err != nil {
		err = fmt.Errorf("export: %w: %v", provider.ErrMalformed, err)
		c.observe(FacetExport, start, provider.StatusMalformed, 0, err)
		return nil, provider.StatusMalformed, err
	}
	return &Export{
		Reader:  playlist.NewReader(body),
		body:    body,
		started: start,
		c:       c,
	}, provider.StatusOK, nil
}
