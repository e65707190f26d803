package listview

import (
	"github.com/barangay/egov/internal/platform/apiclient"
	"github.com/barangay/egov/internal/platform/query"
)

// DropRow removes the rows matching match from every cached page of resource.
// It is the optimistic write for archive, restore and delete: in each case the
// row leaves the list it is currently shown in.
func DropRow[T any](c *query.Client, resource string, match func(T) bool) int {
	return query.UpdateQueries(c, resource, func(_ query.Key, p apiclient.Page[T]) apiclient.Page[T] {
		out := make([]T, 0, len(p.Results))
		for _, r := range p.Results {
			if !match(r) {
				out = append(out, r)
			}
		}
		p.Count -= len(p.Results) - len(out)
		if p.Count < 0 {
			p.Count = 0
		}
		p.Results = out
		return p
	})
}

// PatchRow rewrites the rows matching match in every cached page of resource.
func PatchRow[T any](c *query.Client, resource string, match func(T) bool, fn func(T) T) int {
	return query.UpdateQueries(c, resource, func(_ query.Key, p apiclient.Page[T]) apiclient.Page[T] {
		out := make([]T, len(p.Results))
		for i, r := range p.Results {
			if match(r) {
				r = fn(r)
			}
			out[i] = r
		}
		p.Results = out
		return p
	})
}
