// Package httpclient builds the HTTP clients used against panel servers. Every client
// disables keep-alive: one logical fetch holds at most one connection and nothing is pooled.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

const (
	DefaultCategoryTimeout = 20 * time.Second
	DefaultStreamsTimeout  = 30 * time.Second
	DefaultDetailTimeout   = 12 * time.Second
	DefaultDialTimeout     = 10 * time.Second

	DefaultUserAgent = "panel-m3u/1.0"
)

// Budgets are the per-request timeouts for each class of panel call.
type Budgets struct {
	Category time.Duration
	Streams  time.Duration
	Detail   time.Duration
}

// DefaultBudgets returns the stock timeout budgets.
func DefaultBudgets() Budgets {
	return Budgets{
		Category: DefaultCategoryTimeout,
		Streams:  DefaultStreamsTimeout,
		Detail:   DefaultDetailTimeout,
	}
}

// withDefaults fills zero fields from DefaultBudgets.
func (b Budgets) withDefaults() Budgets {
	d := DefaultBudgets()
	if b.Category <= 0 {
		b.Category = d.Category
	}
	if b.Streams <= 0 {
		b.Streams = d.Streams
	}
	if b.Detail <= 0 {
		b.Detail = d.Detail
	}
	return b
}

// Set is one client per budget, sharing nothing but configuration.
type Set struct {
	Category *http.Client
	Streams  *http.Client
	Detail   *http.Client
}

// NewSet builds a client for each budget. Zero budgets take defaults.
func NewSet(b Budgets) Set {
	b = b.withDefaults()
	return Set{
		Category: WithTimeout(b.Category),
		Streams:  WithTimeout(b.Streams),
		Detail:   WithTimeout(b.Detail),
	}
}

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: DefaultDialTimeout,
		}).DialContext,
		DisableKeepAlives:     true,
		TLSHandshakeTimeout:   DefaultDialTimeout,
		ResponseHeaderTimeout: 0,
		// Content-Encoding is negotiated and decoded by DecodeBody.
		DisableCompression: true,
	}
}

// WithTimeout returns a client with the given overall timeout and a fresh no-keep-alive transport.
func WithTimeout(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: newTransport(),
	}
}
