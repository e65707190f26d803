package listview

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/barangay/egov/internal/platform/validate"
)

// TabArchived selects archived rows in tabbed list screens.
const TabArchived = "archived"

// Filter is the state of a list screen's filter bar.
type Filter struct {
	Search   string `json:"search,omitempty"`
	Tab      string `json:"tab,omitempty"`
	Status   string `json:"status,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Archived bool   `json:"archived"`
}

// FilterFromContext reads search, tab, status, from, to and archived from the
// query string.
func FilterFromContext(c echo.Context) Filter {
	f := Filter{
		Search: c.QueryParam("search"),
		Tab:    c.QueryParam("tab"),
		Status: c.QueryParam("status"),
		From:   c.QueryParam("from"),
		To:     c.QueryParam("to"),
	}
	f.Archived, _ = strconv.ParseBool(c.QueryParam("archived"))
	return f.Normalize()
}

// Normalize trims the search text and derives Archived from the tab.
func (f Filter) Normalize() Filter {
	f.Search = strings.TrimSpace(f.Search)
	f.Status = strings.TrimSpace(f.Status)
	if f.Tab == TabArchived {
		f.Archived = true
	}
	return f
}

// Validate checks the date range.
func (f Filter) Validate() error {
	errs := validate.Errors{}
	validate.Date(errs, "from", f.From)
	validate.Date(errs, "to", f.To)
	if !errs.Has("from") && !errs.Has("to") && f.From != "" && f.To != "" && f.From > f.To {
		errs.Add("to", "End date must not be before start date")
	}
	return errs.Err()
}

// Values encodes the filter as backend query parameters. The archive flag is
// always sent so active and archived views never share a cache entry.
func (f Filter) Values() url.Values {
	v := url.Values{}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.Status != "" {
		v.Set("status", f.Status)
	}
	if f.From != "" {
		v.Set("date_from", f.From)
	}
	if f.To != "" {
		v.Set("date_to", f.To)
	}
	v.Set("is_archive", strconv.FormatBool(f.Archived))
	return v
}

// Fields is what client-side filtering needs to know about a row.
type Fields struct {
	Text     []string
	Status   string
	Date     string
	Archived bool
}

// Matches reports whether a row with the given fields passes f. Search is a
// case-insensitive substring match on any text field; dates compare as
// YYYY-MM-DD strings.
func (f Filter) Matches(row Fields) bool {
	if row.Archived != f.Archived {
		return false
	}
	if f.Status != "" && !strings.EqualFold(row.Status, f.Status) {
		return false
	}
	if f.From != "" || f.To != "" {
		d := dateOnly(row.Date)
		if d == "" || (f.From != "" && d < f.From) || (f.To != "" && d > f.To) {
			return false
		}
	}
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	for _, t := range row.Text {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

// Match filters items client-side.
func Match[T any](items []T, f Filter, fields func(T) Fields) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if f.Matches(fields(it)) {
			out = append(out, it)
		}
	}
	return out
}

func dateOnly(s string) string {
	if len(s) >= len(validate.DateLayout) {
		if _, err := time.Parse(validate.DateLayout, s[:len(validate.DateLayout)]); err == nil {
			return s[:len(validate.DateLayout)]
		}
	}
	return ""
}
