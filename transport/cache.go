package transport

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a cached response stays fresh.
const DefaultCacheTTL = 30 * time.Second

type cacheEntry struct {
	status   int
	header   http.Header
	body     []byte
	storedAt time.Time
}

// Cache keeps successful GET responses keyed by URL and credential. A
// response fetched before [Cache.InvalidateAll] is never stored after it, so
// data from a terminated session cannot reappear.
type Cache struct {
	next     http.RoundTripper
	ttl      time.Duration
	now      func() time.Time
	observer Observer

	mu         sync.RWMutex
	entries    map[string]cacheEntry
	generation uint64
}

// NewCache wraps next. A non-positive ttl uses [DefaultCacheTTL].
func NewCache(next http.RoundTripper, ttl time.Duration, observer Observer) *Cache {
	if next == nil {
		next = http.DefaultTransport
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &Cache{
		next:     next,
		ttl:      ttl,
		now:      time.Now,
		observer: observer,
		entries:  make(map[string]cacheEntry),
	}
}

func (c *Cache) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet || strings.Contains(req.Header.Get("Cache-Control"), "no-cache") {
		return c.next.RoundTrip(req)
	}

	key := req.URL.String() + "\x00" + req.Header.Get("Authorization")

	c.mu.RLock()
	entry, ok := c.entries[key]
	generation := c.generation
	c.mu.RUnlock()

	if ok && c.now().Sub(entry.storedAt) < c.ttl {
		c.observer.CacheLookup(true)
		return entry.response(req), nil
	}
	c.observer.CacheLookup(false)

	resp, err := c.next.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusOK || resp.Body == nil {
		return resp, err
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	c.mu.Lock()
	if c.generation == generation {
		c.entries[key] = cacheEntry{
			status:   resp.StatusCode,
			header:   resp.Header.Clone(),
			body:     body,
			storedAt: c.now(),
		}
	}
	c.mu.Unlock()

	return resp, nil
}

// InvalidateAll drops every entry and discards fills still in flight.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.generation++
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (e cacheEntry) response(req *http.Request) *http.Response {
	return &http.Response{
		Status:        strconv.Itoa(e.status) + " " + http.StatusText(e.status),
		StatusCode:    e.status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        e.header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(e.body)),
		ContentLength: int64(len(e.body)),
		Request:       req,
	}
}

// CloseIdleConnections forwards to the wrapped transport.
func (c *Cache) CloseIdleConnections() { closeIdle(c.next) }
