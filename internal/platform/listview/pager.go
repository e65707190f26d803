package listview

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/barangay/egov/pkg/pagination"
)

// Mode selects how a list pages through results.
type Mode int

const (
	// ModeReplace shows one page at a time.
	ModeReplace Mode = iota
	// ModeLoadMore keeps page 1 and grows page_size, accumulating a longer window.
	ModeLoadMore
)

func (m Mode) String() string {
	if m == ModeLoadMore {
		return "load_more"
	}
	return "replace"
}

// MaxWindow caps how far load-more can grow page_size.
const MaxWindow = 500

// Pager tracks the position of a list.
type Pager struct {
	Mode     Mode
	Page     int
	PageSize int
	// Step is the page size a list starts with and grows by in load-more mode.
	Step int
}

// NewPager creates a pager on the first page.
func NewPager(mode Mode, step int) Pager {
	if step <= 0 {
		step = pagination.DefaultPageSize
	}
	if step > pagination.MaxPageSize {
		step = pagination.MaxPageSize
	}
	return Pager{Mode: mode, Page: 1, PageSize: step, Step: step}
}

// PagerFromContext reads page and page_size. In load-more mode the requested
// page_size is the accumulated window and may exceed pagination.MaxPageSize.
func PagerFromContext(c echo.Context, mode Mode, step int) Pager {
	p := NewPager(mode, step)
	if mode == ModeLoadMore {
		if n, err := strconv.Atoi(c.QueryParam("page_size")); err == nil && n > 0 {
			p.PageSize = min(n, MaxWindow)
		}
		return p
	}
	pp := pagination.FromContext(c)
	p.Page = pp.Page
	if c.QueryParam("page_size") != "" {
		p.PageSize = pp.PageSize
	}
	return p
}

// Params is the request window.
func (p Pager) Params() pagination.Params {
	if p.Mode == ModeLoadMore {
		return pagination.Params{Page: 1, PageSize: p.PageSize}
	}
	return pagination.New(p.Page, p.PageSize)
}

// HasMore reports whether another Advance would show new rows.
func (p Pager) HasMore(total int) bool {
	if p.Mode == ModeLoadMore {
		return p.PageSize < total && p.PageSize < MaxWindow
	}
	return p.Params().HasNext(total)
}

// Advance moves to the next page or grows the window. It reports false, leaving
// p unchanged, when there is nothing more to show.
func (p *Pager) Advance(total int) bool {
	if !p.HasMore(total) {
		return false
	}
	if p.Mode == ModeLoadMore {
		p.PageSize = min(p.PageSize+p.Step, MaxWindow)
		return true
	}
	p.Page++
	return true
}

// Back moves to the previous page in replace mode.
func (p *Pager) Back() bool {
	if p.Mode == ModeLoadMore || p.Page <= 1 {
		return false
	}
	p.Page--
	return true
}

// Reset returns to the first page with the initial window, as after a filter change.
func (p *Pager) Reset() {
	p.Page = 1
	p.PageSize = p.Step
}
