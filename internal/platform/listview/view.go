package listview

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/barangay/egov/internal/platform/apiclient"
	"github.com/barangay/egov/internal/platform/query"
)

// Loader fetches one window of a list from the backend.
type Loader[T any] func(ctx context.Context, params url.Values) (apiclient.Page[T], error)

// State is what a list screen renders. Empty is only set for a successful load
// with no rows, so "no results" is never confused with loading or failure.
type State[T any] struct {
	Items     []T    `json:"items"`
	Total     int    `json:"total"`
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
	Mode      string `json:"mode"`
	HasMore   bool   `json:"has_more"`
	Empty     bool   `json:"empty"`
	IsLoading bool   `json:"is_loading"`
	IsError   bool   `json:"is_error"`
	Error     string `json:"error,omitempty"`
	Filter    Filter `json:"filter"`
	Err       error  `json:"-"`
}

// View combines a filter, a pager and a cached loader for one resource family.
// It is safe for concurrent use; a SearchBox may drive it from its timer.
type View[T any] struct {
	resource string
	q        *query.Client
	load     Loader[T]
	extra    url.Values

	mu     sync.Mutex
	filter Filter
	pager  Pager
}

// ViewOption configures a View.
type ViewOption[T any] func(*View[T])

// WithParams adds fixed query parameters, e.g. a resident id.
func WithParams[T any](v url.Values) ViewOption[T] {
	return func(vw *View[T]) { vw.extra = v }
}

// NewView creates a view on resource.
func NewView[T any](resource string, q *query.Client, load Loader[T], f Filter, p Pager, opts ...ViewOption[T]) *View[T] {
	v := &View[T]{resource: resource, q: q, load: load, filter: f.Normalize(), pager: p}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Key is the cache key for the current filter and window.
func (v *View[T]) Key() query.Key {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.keyLocked()
}

func (v *View[T]) keyLocked() query.Key {
	return query.NewKey(v.resource, v.paramsLocked())
}

func (v *View[T]) paramsLocked() url.Values {
	params := v.filter.Values()
	for k, vals := range v.pager.Params().Values() {
		params[k] = vals
	}
	for k, vals := range v.extra {
		params[k] = vals
	}
	return params
}

// Filter returns the current filter.
func (v *View[T]) Filter() Filter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

// Pager returns the current pager.
func (v *View[T]) Pager() Pager {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pager
}

// SetFilter replaces the filter and resets the pager when it changed.
func (v *View[T]) SetFilter(f Filter) {
	f = f.Normalize()
	v.mu.Lock()
	defer v.mu.Unlock()
	if f != v.filter {
		v.filter = f
		v.pager.Reset()
	}
}

// SetSearch changes only the search text.
func (v *View[T]) SetSearch(term string) {
	f := v.Filter()
	f.Search = term
	v.SetFilter(f)
}

// Fetch loads the current window through the query cache.
func (v *View[T]) Fetch(ctx context.Context) State[T] {
	v.mu.Lock()
	key := v.keyLocked()
	params := v.paramsLocked()
	pager := v.pager
	filter := v.filter
	v.mu.Unlock()

	r := query.Fetch(ctx, v.q, key, func(ctx context.Context) (apiclient.Page[T], error) {
		return v.load(ctx, params)
	})
	return stateOf(r, pager, filter)
}

// More advances the pager using the last known total and fetches. It returns
// false when there was nothing more to load.
func (v *View[T]) More(ctx context.Context) (State[T], bool) {
	v.mu.Lock()
	r := query.Peek[apiclient.Page[T]](v.q, v.keyLocked())
	ok := v.pager.Advance(r.Data.Count)
	v.mu.Unlock()
	return v.Fetch(ctx), ok
}

// Watch returns a SearchBox whose committed terms update the view's search,
// reset its pager and refetch; onChange receives each new state.
func (v *View[T]) Watch(ctx context.Context, wait time.Duration, onChange func(State[T])) *SearchBox {
	return NewSearchBox(wait, func(term string) {
		v.SetSearch(term)
		s := v.Fetch(ctx)
		if onChange != nil {
			onChange(s)
		}
	})
}

func stateOf[T any](r query.Result[apiclient.Page[T]], p Pager, f Filter) State[T] {
	params := p.Params()
	s := State[T]{
		Items:     r.Data.Results,
		Total:     r.Data.Count,
		Page:      params.Page,
		PageSize:  params.PageSize,
		Mode:      p.Mode.String(),
		IsLoading: r.IsLoading,
		IsError:   r.IsError,
		Err:       r.Err,
		Filter:    f,
	}
	if s.Items == nil {
		s.Items = []T{}
	}
	if r.Err != nil {
		s.Error = apiclient.UserMessage(r.Err, "Failed to load data. Please try again.")
	}
	s.HasMore = r.Data.HasNext() || p.HasMore(s.Total)
	s.Empty = !s.IsError && !s.IsLoading && len(s.Items) == 0
	return s
}
