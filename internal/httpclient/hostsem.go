package httpclient

import (
	"context"
	"net/url"
	"sync"
)

// HostSemaphore caps concurrent requests per panel host across every client in the
// process, so the detail fan-out and a bulk fetch cannot pile onto one server together.
//
//	release, err := sem.Acquire(ctx, host)
//	if err != nil { ... }
//	defer release()
type HostSemaphore struct {
	mu    sync.Mutex
	sems  map[string]chan struct{}
	limit int
}

// DefaultHostConcurrency is the per-host cap when none is configured.
const DefaultHostConcurrency = 10

func NewHostSemaphore(concurrency int) *HostSemaphore {
	if concurrency < 1 {
		concurrency = 1
	}
	return &HostSemaphore{
		sems:  make(map[string]chan struct{}),
		limit: concurrency,
	}
}

// Limit is the per-host cap.
func (h *HostSemaphore) Limit() int { return h.limit }

// Acquire blocks until a slot is free for host or ctx is done. A nil receiver never blocks.
func (h *HostSemaphore) Acquire(ctx context.Context, host string) (func(), error) {
	if h == nil {
		return func() {}, nil
	}
	sem := h.semFor(host)
	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *HostSemaphore) semFor(host string) chan struct{} {
	if u, err := url.Parse(host); err == nil && u.Host != "" {
		host = u.Scheme + "://" + u.Host
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sems[host]
	if !ok {
		s = make(chan struct{}, h.limit)
		h.sems[host] = s
	}
	return s
}
