package profiling

import (
	"context"
	"net/url"

	"github.com/barangay/egov/internal/platform/apiclient"
)

// API is the profiling area of the backend.
type API struct {
	c *apiclient.Client
}

func NewAPI(c *apiclient.Client) *API {
	return &API{c: c}
}

func (a *API) ListResidents(ctx context.Context, q url.Values) (apiclient.Page[Resident], error) {
	return apiclient.GetList[Resident](ctx, a.c, "resident", q)
}

func (a *API) GetResident(ctx context.Context, id string) (Resident, error) {
	var out Resident
	if err := a.c.Get(ctx, "resident/"+url.PathEscape(id), nil, &out); err != nil {
		return Resident{}, err
	}
	return out, nil
}
