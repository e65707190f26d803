package profiling

import (
	"context"
	"net/url"

	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/listview"
	"github.com/barangay/egov/internal/platform/query"
)

// PageStep is how many residents the list starts with and adds per "load more".
const PageStep = 20

type Service struct {
	api *API
}

func NewService(api *API) *Service {
	return &Service{api: api}
}

// Residents returns the resident list. The directory uses load-more paging.
func (s *Service) Residents(ctx context.Context, ac *appctx.Context, f listview.Filter, p listview.Pager) listview.State[Resident] {
	return s.Directory(ac, f, p).Fetch(ctx)
}

// Directory is the resident list as a live view, for callers that search as
// the user types.
func (s *Service) Directory(ac *appctx.Context, f listview.Filter, p listview.Pager) *listview.View[Resident] {
	return listview.NewView(ResourceResidents, ac.Query, s.api.ListResidents, f, p)
}

// Resident loads one profile through the cache.
func (s *Service) Resident(ctx context.Context, ac *appctx.Context, id string) (Resident, error) {
	key := query.NewKey(ResourceResident, url.Values{"id": {id}})
	r := query.Fetch(ctx, ac.Query, key, func(ctx context.Context) (Resident, error) {
		return s.api.GetResident(ctx, id)
	})
	return r.Data, r.Err
}
