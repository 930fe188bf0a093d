package indexer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/snapetech/panelm3u/internal/catalog"
	"github.com/snapetech/panelm3u/internal/credentials"
	"github.com/snapetech/panelm3u/internal/httpclient"
	"github.com/snapetech/panelm3u/internal/metrics"
	"github.com/snapetech/panelm3u/internal/provider"
)

// Facet names, used as metric and log labels.
const (
	FacetLiveCategories   = "live_categories"
	FacetLiveStreams      = "live_streams"
	FacetVODCategories    = "vod_categories"
	FacetVODStreams       = "vod_streams"
	FacetSeriesCategories = "series_categories"
	FacetSeries           = "series"
	FacetSeriesInfo       = "series_info"
	FacetExport           = "export"
)

// Facet is the outcome of one catalog call. It never carries a panic or a partial
// list on failure: Status other than ok means Items is empty.
type Facet[T any] struct {
	Items   []T
	Status  provider.Status
	Err     error
	Skipped int // items dropped because they did not decode or had no usable id
}

// OK reports whether the call succeeded.
func (f Facet[T]) OK() bool { return f.Status == provider.StatusOK }

func failed[T any](err error) Facet[T] {
	return Facet[T]{Status: provider.Classify(err), Err: err}
}

// Options configures a Client. Zero values take defaults.
type Options struct {
	Budgets         httpclient.Budgets
	HostConcurrency int
	UserAgent       string
	Metrics         *metrics.Metrics
	Logger          zerolog.Logger
}

// Client reads one panel's player_api.php. It keeps no connections between calls.
type Client struct {
	conn      credentials.Connection
	clients   httpclient.Set
	hostSem   *httpclient.HostSemaphore
	userAgent string
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

// NewClient returns a client for conn.
func NewClient(conn credentials.Connection, o Options) *Client {
	ua := o.UserAgent
	if ua == "" {
		ua = httpclient.DefaultUserAgent
	}
	hc := o.HostConcurrency
	if hc <= 0 {
		hc = httpclient.DefaultHostConcurrency
	}
	return &Client{
		conn:      conn,
		clients:   httpclient.NewSet(o.Budgets),
		hostSem:   httpclient.NewHostSemaphore(hc),
		userAgent: ua,
		metrics:   o.Metrics,
		log:       o.Logger,
	}
}

// Connection returns the credentials this client uses.
func (c *Client) Connection() credentials.Connection { return c.conn }

// open performs one GET. On success resp.Body still carries the panel's content
// encoding and holds a host slot until it is closed.
func (c *Client) open(ctx context.Context, hc *http.Client, rawURL string) (*http.Response, error) {
	release, err := c.hostSem.Acquire(ctx, c.conn.Host)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		release()
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Encoding", httpclient.AcceptEncoding)
	resp, err := hc.Do(req)
	if err != nil {
		release()
		return nil, err
	}
	if err := provider.CheckResponse(resp); err != nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		release()
		return nil, err
	}
	resp.Body = &releasingBody{ReadCloser: resp.Body, release: release}
	return resp, nil
}

type releasingBody struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (b *releasingBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.release)
	return err
}

// apiGet fetches one action and returns the whole decoded body. No retries: a failed call is final.
func (c *Client) apiGet(ctx context.Context, hc *http.Client, action string, extra url.Values) ([]byte, error) {
	resp, err := c.open(ctx, hc, c.conn.APIURL(action, extra))
	if err != nil {
		return nil, err
	}
	body, err := httpclient.DecodeBody(resp)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

func (c *Client) observe(facet string, start time.Time, status provider.Status, skipped int, err error) {
	elapsed := time.Since(start)
	c.metrics.ObserveFetch(facet, string(status), elapsed, skipped)
	ev := c.log.Debug()
	if !status.OK() {
		ev = c.log.Warn().Err(err)
	}
	ev.Str("facet", facet).Str("status", string(status)).Dur("elapsed", elapsed).Int("skipped", skipped).Msg("panel fetch")
}

// fetchList runs one list action and decodes each element independently with decode.
// decode returns ok=false to skip an element.
func fetchList[T any](ctx context.Context, c *Client, hc *http.Client, facet, action string, extra url.Values,
	split func([]byte) ([]json.RawMessage, error), decode func(json.RawMessage) (T, bool)) Facet[T] {
	start := time.Now()
	body, err := c.apiGet(ctx, hc, action, extra)
	if err == nil {
		var raws []json.RawMessage
		raws, err = split(body)
		if err == nil {
			f := Facet[T]{Items: make([]T, 0, len(raws)), Status: provider.StatusOK}
			for _, r := range raws {
				v, ok := decode(r)
				if !ok {
					f.Skipped++
					continue
				}
				f.Items = append(f.Items, v)
			}
			c.observe(facet, start, f.Status, f.Skipped, nil)
			return f
		}
	}
	err = fmt.Errorf("%s: %w", strings.ReplaceAll(facet, "_", " "), err)
	f := failed[T](err)
	c.observe(facet, start, f.Status, 0, err)
	return f
}

type rawCategory struct {
	ID   flexString `json:"category_id"`
	Name flexString `json:"category_name"`
}

func decodeCategory(r json.RawMessage) (catalog.Category, bool) {
	var rc rawCategory
	if err := json.Unmarshal(r, &rc); err != nil || rc.ID == "" {
		return catalog.Category{}, false
	}
	return catalog.Category{ID: rc.ID.String(), Name: rc.Name.String()}, true
}

func (c *Client) categories(ctx context.Context, facet, action string) Facet[catalog.Category] {
	return fetchList(ctx, c, c.clients.Category, facet, action, nil, splitArray, decodeCategory)
}

// LiveCategories calls get_live_categories.
func (c *Client) LiveCategories(ctx context.Context) Facet[catalog.Category] {
	return c.categories(ctx, FacetLiveCategories, "get_live_categories")
}

// VODCategories calls get_vod_categories.
func (c *Client) VODCategories(ctx context.Context) Facet[catalog.Category] {
	return c.categories(ctx, FacetVODCategories, "get_vod_categories")
}

// SeriesCategories calls get_series_categories.
func (c *Client) SeriesCategories(ctx context.Context) Facet[catalog.Category] {
	return c.categories(ctx, FacetSeriesCategories, "get_series_categories")
}

type rawLive struct {
	StreamID     flexString `json:"stream_id"`
	Name         flexString `json:"name"`
	CategoryID   flexString `json:"category_id"`
	StreamIcon   flexString `json:"stream_icon"`
	EpgChannelID flexString `json:"epg_channel_id"`
}

func decodeLive(r json.RawMessage) (catalog.Channel, bool) {
	var s rawLive
	if err := json.Unmarshal(r, &s); err != nil {
		return catalog.Channel{}, false
	}
	id, ok := s.StreamID.id()
	if !ok {
		return catalog.Channel{}, false
	}
	name := s.Name.String()
	if name == "" {
		name = "Channel " + strconv.FormatInt(id, 10)
	}
	return catalog.Channel{
		StreamID:     id,
		Name:         name,
		CategoryID:   s.CategoryID.String(),
		Icon:         s.StreamIcon.String(),
		EPGChannelID: s.EpgChannelID.String(),
	}, true
}

// LiveStreams calls get_live_streams.
func (c *Client) LiveStreams(ctx context.Context) Facet[catalog.Channel] {
	return fetchList(ctx, c, c.clients.Streams, FacetLiveStreams, "get_live_streams", nil, splitArray, decodeLive)
}

type rawMovie struct {
	StreamID           flexString `json:"stream_id"`
	Name               flexString `json:"name"`
	ContainerExtension flexString `json:"container_extension"`
	CategoryID         flexString `json:"category_id"`
	StreamIcon         flexString `json:"stream_icon"`
}

func decodeMovie(r json.RawMessage) (catalog.Movie, bool) {
	var m rawMovie
	if err := json.Unmarshal(r, &m); err != nil {
		return catalog.Movie{}, false
	}
	id, ok := m.StreamID.id()
	if !ok {
		return catalog.Movie{}, false
	}
	name := m.Name.String()
	if name == "" {
		name = "Movie " + strconv.FormatInt(id, 10)
	}
	return catalog.Movie{
		StreamID:           id,
		Name:               name,
		ContainerExtension: containerExt(m.ContainerExtension),
		CategoryID:         m.CategoryID.String(),
		Icon:               m.StreamIcon.String(),
	}, true
}

// containerExt applies catalog.DefaultMovieExtension to missing or implausible extensions.
func containerExt(f flexString) string {
	ext := strings.TrimPrefix(strings.ToLower(f.String()), ".")
	if ext == "" || len(ext) > 5 || strings.ContainsAny(ext, "/?# ") {
		return catalog.DefaultMovieExtension
	}
	return ext
}

// VODStreams calls get_vod_streams.
func (c *Client) VODStreams(ctx context.Context) Facet[catalog.Movie] {
	return fetchList(ctx, c, c.clients.Streams, FacetVODStreams, "get_vod_streams", nil, splitArray, decodeMovie)
}

type rawSeries struct {
	SeriesID   flexString `json:"series_id"`
	ID         flexString `json:"id"`
	Name       flexString `json:"name"`
	CategoryID flexString `json:"category_id"`
	Cover      flexString `json:"cover"`
}

func decodeSeries(r json.RawMessage) (catalog.SeriesRef, bool) {
	var s rawSeries
	if err := json.Unmarshal(r, &s); err != nil {
		return catalog.SeriesRef{}, false
	}
	id, ok := s.SeriesID.id()
	if !ok {
		if id, ok = s.ID.id(); !ok {
			return catalog.SeriesRef{}, false
		}
	}
	name := s.Name.String()
	if name == "" {
		name = "Series " + strconv.FormatInt(id, 10)
	}
	return catalog.SeriesRef{
		SeriesID:   id,
		Name:       name,
		CategoryID: s.CategoryID.String(),
		Cover:      s.Cover.String(),
	}, true
}

// Series calls get_series. The list may arrive as an array or as an object keyed by id.
func (c *Client) Series(ctx context.Context) Facet[catalog.SeriesRef] {
	return fetchList(ctx, c, c.clients.Streams, FacetSeries, "get_series", nil, splitArrayOrObject, decodeSeries)
}

type rawEpisode struct {
	ID                 flexString      `json:"id"`
	EpisodeNum         flexString      `json:"episode_num"`
	Title              flexString      `json:"title"`
	Season             flexString      `json:"season"`
	ContainerExtension flexString      `json:"container_extension"`
	Info               json.RawMessage `json:"info"` // object, or [] when empty
}

type rawEpisodeInfo struct {
	MovieImage flexString `json:"movie_image"`
}

// SeriesInfo calls get_series_info for one series. A response without an "episodes"
// object is malformed; an empty object is a successful empty result.
func (c *Client) SeriesInfo(ctx context.Context, ref catalog.SeriesRef) Facet[catalog.Episode] {
	start := time.Now()
	extra := url.Values{"series_id": {strconv.FormatInt(ref.SeriesID, 10)}}
	body, err := c.apiGet(ctx, c.clients.Detail, "get_series_info", extra)
	var f Facet[catalog.Episode]
	if err == nil {
		f, err = decodeSeriesInfo(body, ref)
	}
	if err != nil {
		err = fmt.Errorf("series %d: %w", ref.SeriesID, err)
		f = failed[catalog.Episode](err)
	}
	c.observe(FacetSeriesInfo, start, f.Status, f.Skipped, err)
	return f
}

func decodeSeriesInfo(body []byte, ref catalog.SeriesRef) (Facet[catalog.Episode], error) {
	var info struct {
		Episodes json.RawMessage `json:"episodes"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return Facet[catalog.Episode]{}, fmt.Errorf("%w: %v", provider.ErrMalformed, err)
	}
	eps := bytes.TrimSpace(info.Episodes)
	if len(eps) == 0 || eps[0] != '{' {
		return Facet[catalog.Episode]{}, fmt.Errorf("%w: episodes missing or not an object", provider.ErrMalformed)
	}
	var seasons map[string]json.RawMessage
	if err := json.Unmarshal(eps, &seasons); err != nil {
		return Facet[catalog.Episode]{}, fmt.Errorf("%w: %v", provider.ErrMalformed, err)
	}
	keys := make([]string, 0, len(seasons))
	for k := range seasons {
		keys = append(keys, k)
	}
	sortKeys(keys)

	f := Facet[catalog.Episode]{Items: []catalog.Episode{}, Status: provider.StatusOK}
	for _, season := range keys {
		var raws []json.RawMessage
		if err := json.Unmarshal(seasons[season], &raws); err != nil {
			f.Skipped++
			continue
		}
		for _, r := range raws {
			ep, ok := decodeEpisode(r, season, ref)
			if !ok {
				f.Skipped++
				continue
			}
			f.Items = append(f.Items, ep)
		}
	}
	return f, nil
}

func decodeEpisode(r json.RawMessage, seasonKey string, ref catalog.SeriesRef) (catalog.Episode, bool) {
	var e rawEpisode
	if err := json.Unmarshal(r, &e); err != nil {
		return catalog.Episode{}, false
	}
	// episode_num is a position in the season, not a stream id.
	id := e.ID.String()
	if id == "" {
		return catalog.Episode{}, false
	}
	season := e.Season.String()
	if season == "" {
		season = seasonKey
	}
	var info rawEpisodeInfo
	_ = json.Unmarshal(e.Info, &info)
	cover := info.MovieImage.String()
	if cover == "" {
		cover = ref.Cover
	}
	ep := catalog.Episode{
		ID:                 id,
		SeriesID:           ref.SeriesID,
		Season:             season,
		EpisodeNum:         e.EpisodeNum.String(),
		Title:              e.Title.String(),
		ContainerExtension: containerExt(e.ContainerExtension),
		Category:           ref.Category,
		Cover:              cover,
	}
	if ep.Title == "" {
		ep.Title = EpisodeTitle(ref.Name, ep.Season, ep.EpisodeNum)
	}
	return ep, true
}

// EpisodeTitle is the display title used when the panel sends none: "<series> S<season> E<num>".
// Season and number are used verbatim.
func EpisodeTitle(series, season, num string) string {
	return fmt.Sprintf("%s S%s E%s", series, season, num)
}
