package clerk

import (
	"context"
	"net/url"

	"github.com/barangay/egov/internal/platform/apiclient"
)

// API is the clerk area of the backend.
type API struct {
	c *apiclient.Client
}

func NewAPI(c *apiclient.Client) *API {
	return &API{c: c}
}

func residentQuery(residentID string) url.Values {
	q := url.Values{}
	if residentID != "" {
		q.Set("rp", residentID)
	}
	return q
}

func (a *API) ListCertificates(ctx context.Context, residentID string) (apiclient.Page[Certificate], error) {
	return apiclient.GetList[Certificate](ctx, a.c, "certificate", residentQuery(residentID))
}

func (a *API) ListPermits(ctx context.Context, residentID string) (apiclient.Page[BusinessPermit], error) {
	return apiclient.GetList[BusinessPermit](ctx, a.c, "business-permit", residentQuery(residentID))
}

func (a *API) CancelCertificate(ctx context.Context, id string) error {
	return a.c.Post(ctx, "certificate/"+url.PathEscape(id)+"/cancel", nil, nil)
}
