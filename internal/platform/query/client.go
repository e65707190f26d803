// Package query is the cache-aware read/write layer between feature services
// and the API clients. Reads are cached per Key and marked stale after a
// configurable duration; writes go through Mutate, which serializes mutations
// per resource family, applies optimistic cache writes, rolls them back on
// failure and invalidates affected keys on success.
//
// Every cache entry carries a version. Any write (fetch result, optimistic
// update, restore, invalidation) bumps it, and a fetch only stores its result
// when the version is unchanged since the fetch began. A slow fetch therefore
// never clobbers an optimistic write or an invalidation that happened while it
// was in flight.
//
// Entries nobody has read or written for the gc time are dropped on the next
// Fetch or Invalidate. A Client holds one principal's reads; see Clients.
package query

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultStaleTime is how long a fetched entry is served without refetching.
	DefaultStaleTime = 5 * time.Minute
	// DefaultGCTime is how long an unused entry is kept.
	DefaultGCTime = 10 * time.Minute
)

// Key identifies one cached read: a resource family plus its filter parameters.
type Key struct {
	Resource string
	Params   string
}

// NewKey builds a Key with canonical (sorted) parameter encoding, so equal
// filters always map to the same entry.
func NewKey(resource string, params url.Values) Key {
	return Key{Resource: resource, Params: params.Encode()}
}

func (k Key) String() string {
	if k.Params == "" {
		return k.Resource
	}
	return k.Resource + "?" + k.Params
}

type entry struct {
	data      any
	hasData   bool
	err       error
	updatedAt time.Time
	usedAt    time.Time
	stale     bool
	version   uint64
	flightID  uint64
	cancel    context.CancelFunc
}

// Option configures a Client.
type Option func(*Client)

// WithStaleTime overrides DefaultStaleTime.
func WithStaleTime(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.staleTime = d
		}
	}
}

// WithGCTime overrides DefaultGCTime. Zero or less keeps entries forever.
func WithGCTime(d time.Duration) Option {
	return func(c *Client) { c.gcTime = d }
}

// WithFetchTimeout bounds every backend call made by Fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Client) { c.fetchTimeout = d }
}

// WithLogger attaches a logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client owns one principal's query cache. The gateway gets them from Clients;
// the CLI creates a single one. There is no package-level instance.
type Client struct {
	mu           sync.Mutex
	entries      map[Key]*entry
	flights      uint64
	staleTime    time.Duration
	gcTime       time.Duration
	fetchTimeout time.Duration
	lastSweep    time.Time
	now          func() time.Time
	group        singleflight.Group
	logger       zerolog.Logger

	// onInvalidate is set by Clients before the Client is handed out.
	onInvalidate func(from *Client, resources []string)

	famMu    sync.Mutex
	families map[string]*sync.Mutex
}

// NewClient creates an empty cache.
func NewClient(opts ...Option) *Client {
	c := &Client{
		entries:   make(map[Key]*entry),
		staleTime: DefaultStaleTime,
		gcTime:    DefaultGCTime,
		now:       time.Now,
		logger:    zerolog.Nop(),
		families:  make(map[string]*sync.Mutex),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Result is what a read hands to its consumer.
type Result[T any] struct {
	Data      T
	IsLoading bool
	IsError   bool
	Err       error
	UpdatedAt time.Time
	// FromCache is true when the data was served without a backend call.
	FromCache bool
}

// entryLocked returns the entry for key, creating it, and marks it used.
// c.mu must be held.
func (c *Client) entryLocked(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	e.usedAt = c.now()
	return e
}

// sweepLocked drops entries unused for gcTime. Entries with a fetch in flight
// stay. Runs at most every half gcTime. c.mu must be held.
func (c *Client) sweepLocked() {
	if c.gcTime <= 0 {
		return
	}
	now := c.now()
	if !c.lastSweep.IsZero() && now.Sub(c.lastSweep) < c.gcTime/2 {
		return
	}
	c.lastSweep = now
	n := 0
	for k, e := range c.entries {
		if e.cancel == nil && now.Sub(e.usedAt) >= c.gcTime {
			delete(c.entries, k)
			n++
		}
	}
	if n > 0 {
		c.logger.Debug().Int("keys", n).Msg("unused queries collected")
	}
}

func (c *Client) freshLocked(e *entry) bool {
	return e.hasData && !e.stale && c.now().Sub(e.updatedAt) < c.staleTime
}

func resultFrom[T any](e *entry) Result[T] {
	r := Result[T]{UpdatedAt: e.updatedAt, IsLoading: e.cancel != nil && !e.hasData}
	if e.hasData {
		if v, ok := e.data.(T); ok {
			r.Data = v
		} else {
			r.IsError = true
			r.Err = fmt.Errorf("cached data has type %T", e.data)
		}
	}
	if e.err != nil {
		r.IsError = true
		r.Err = e.err
	}
	return r
}

// Fetch returns the cached value for key when fresh, and otherwise calls fn.
// Concurrent fetches of one key share a single call. On error the previous data
// (if any) is still returned alongside the error.
//
// The shared call is detached from ctx: when ctx ends, only this caller stops
// waiting, and the call keeps running for the others. CancelQueries is what
// aborts it.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn func(ctx context.Context) (T, error)) Result[T] {
	c.mu.Lock()
	c.sweepLocked()
	if e, ok := c.entries[key]; ok && c.freshLocked(e) {
		e.usedAt = c.now()
		r := resultFrom[T](e)
		r.FromCache = true
		c.mu.Unlock()
		return r
	}
	c.mu.Unlock()

	flight := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key.String(), func() (any, error) {
		return c.fetch(flight, key, func(ctx context.Context) (any, error) { return fn(ctx) })
	})
	var (
		v   any
		err error
	)
	select {
	case res := <-ch:
		v, err = res.Val, res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(key)
	r := resultFrom[T](e)
	if err == nil {
		if tv, ok := v.(T); ok {
			r.Data = tv
			r.IsError = false
			r.Err = nil
		}
		return r
	}
	r.IsError = true
	r.Err = err
	return r
}

func (c *Client) fetch(ctx context.Context, key Key, fn func(context.Context) (any, error)) (any, error) {
	var (
		fctx   context.Context
		cancel context.CancelFunc
	)
	if c.fetchTimeout > 0 {
		fctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
	} else {
		fctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	c.mu.Lock()
	e := c.entryLocked(key)
	c.flights++
	id := c.flights
	e.flightID = id
	e.cancel = cancel
	start := e.version
	c.mu.Unlock()

	v, err := fn(fctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if e.flightID == id {
		e.cancel = nil
	}
	if err != nil && fctx.Err() != nil && errors.Is(err, context.Canceled) {
		c.logger.Debug().Str("key", key.String()).Msg("query cancelled")
		return nil, err
	}
	if c.entries[key] != e || e.version != start {
		c.logger.Debug().Str("key", key.String()).Msg("discarding superseded query result")
		return v, err
	}
	if err != nil {
		e.err = err
		return nil, err
	}
	e.data = v
	e.hasData = true
	e.err = nil
	e.stale = false
	e.updatedAt = c.now()
	e.usedAt = e.updatedAt
	e.version++
	return v, nil
}

// Peek reports the current cache state for key without fetching.
func Peek[T any](c *Client, key Key) Result[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Result[T]{}
	}
	e.usedAt = c.now()
	r := resultFrom[T](e)
	r.FromCache = e.hasData
	return r
}

// GetQueryData returns the cached value for key, if any.
func GetQueryData[T any](c *Client, key Key) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	e, ok := c.entries[key]
	if !ok || !e.hasData {
		return zero, false
	}
	e.usedAt = c.now()
	v, ok := e.data.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// SetQueryData writes v for key as if it had just been fetched.
func (c *Client) SetQueryData(key Key, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(key)
	e.data = v
	e.hasData = true
	e.err = nil
	e.stale = false
	e.updatedAt = c.now()
	e.version++
}

// UpdateQueries rewrites every cached value of resource that holds a T. fn must
// return a new value rather than mutating its argument in place, because the
// argument may be shared with a rollback snapshot.
func UpdateQueries[T any](c *Client, resource string, fn func(key Key, v T) T) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if k.Resource != resource || !e.hasData {
			continue
		}
		v, ok := e.data.(T)
		if !ok {
			continue
		}
		e.data = fn(k, v)
		e.version++
		n++
	}
	return n
}

// Invalidate marks every key of the given resource families stale. The next
// Fetch of such a key goes to the backend, and any fetch already in flight will
// not store its (now outdated) result. A Client handed out by Clients passes
// the invalidation on to every other principal's Client.
func (c *Client) Invalidate(resources ...string) int {
	n := c.invalidate(resources)
	if c.onInvalidate != nil {
		c.onInvalidate(c, resources)
	}
	return n
}

func (c *Client) invalidate(resources []string) int {
	set := make(map[string]bool, len(resources))
	for _, r := range resources {
		set[r] = true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	n := 0
	for k, e := range c.entries {
		if !set[k.Resource] {
			continue
		}
		e.stale = true
		e.version++
		c.group.Forget(k.String())
		n++
	}
	if n > 0 {
		c.logger.Debug().Strs("resources", resources).Int("keys", n).Msg("queries invalidated")
	}
	return n
}

// CancelQueries aborts in-flight fetches of resource. Used before an optimistic
// write so a refetch that started earlier cannot overwrite it.
func (c *Client) CancelQueries(resource string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if k.Resource != resource || e.cancel == nil {
			continue
		}
		e.cancel()
		e.cancel = nil
		e.version++
		c.group.Forget(k.String())
		n++
	}
	return n
}

// Remove drops every entry of resource.
func (c *Client) Remove(resource string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.Resource == resource {
			delete(c.entries, k)
			c.group.Forget(k.String())
		}
	}
}

// Keys returns the cached keys of resource.
func (c *Client) Keys(resource string) []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	var keys []Key
	for k := range c.entries {
		if k.Resource == resource {
			keys = append(keys, k)
		}
	}
	return keys
}

// IsStale reports whether key would be refetched by the next Fetch.
func (c *Client) IsStale(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return !ok || !c.freshLocked(e)
}

// ---------------------------------------------------------------------------
// Snapshots
// ---------------------------------------------------------------------------

type savedEntry struct {
	data      any
	hasData   bool
	err       error
	updatedAt time.Time
	stale     bool
}

// Snapshot is a copy of one resource family's cache state.
type Snapshot struct {
	resource string
	entries  map[Key]savedEntry
}

// Snapshot captures the state of every entry of resource.
func (c *Client) Snapshot(resource string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{resource: resource, entries: make(map[Key]savedEntry)}
	for k, e := range c.entries {
		if k.Resource != resource {
			continue
		}
		s.entries[k] = savedEntry{data: e.data, hasData: e.hasData, err: e.err, updatedAt: e.updatedAt, stale: e.stale}
	}
	return s
}

// Restore puts the family back exactly as captured: entries created since the
// snapshot are dropped and captured entries get their old values back.
func (c *Client) Restore(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if k.Resource != s.resource {
			continue
		}
		saved, ok := s.entries[k]
		if !ok {
			delete(c.entries, k)
			continue
		}
		e.data = saved.data
		e.hasData = saved.hasData
		e.err = saved.err
		e.updatedAt = saved.updatedAt
		e.stale = saved.stale
		e.version++
	}
	for k, saved := range s.entries {
		if _, ok := c.entries[k]; ok {
			continue
		}
		c.entries[k] = &entry{data: saved.data, hasData: saved.hasData, err: saved.err, updatedAt: saved.updatedAt, usedAt: c.now(), stale: saved.stale, version: 1}
	}
}
