package waste

import (
	"context"
	"fmt"
	"net/url"

	"github.com/barangay/egov/internal/platform/apiclient"
)

// API is the waste area of the backend.
type API struct {
	c *apiclient.Client
}

func NewAPI(c *apiclient.Client) *API {
	return &API{c: c}
}

func (a *API) ListTrucks(ctx context.Context, q url.Values) (apiclient.Page[Truck], error) {
	return apiclient.GetList[Truck](ctx, a.c, "waste-trucks", q)
}

func (a *API) CreateTruck(ctx context.Context, f TruckForm) (Truck, error) {
	var out Truck
	if err := a.c.Post(ctx, "waste-trucks", f, &out); err != nil {
		return Truck{}, err
	}
	return out, nil
}

func (a *API) UpdateTruck(ctx context.Context, id int, f TruckForm) (Truck, error) {
	var out Truck
	if err := a.c.Put(ctx, truckPath(id), f, &out); err != nil {
		return Truck{}, err
	}
	return out, nil
}

// ArchiveTruck soft-deletes a truck.
func (a *API) ArchiveTruck(ctx context.Context, id int) error {
	return a.c.Delete(ctx, truckPath(id), nil)
}

// DeleteTruck removes a truck permanently.
func (a *API) DeleteTruck(ctx context.Context, id int) error {
	return a.c.Delete(ctx, truckPath(id), url.Values{"permanent": {"true"}})
}

func (a *API) RestoreTruck(ctx context.Context, id int) error {
	return a.c.Post(ctx, truckPath(id)+"/restore", nil, nil)
}

// ListPersonnel lists staff, optionally only those holding position.
func (a *API) ListPersonnel(ctx context.Context, q url.Values) (apiclient.Page[Personnel], error) {
	return apiclient.GetList[Personnel](ctx, a.c, "waste-personnel", q)
}

func truckPath(id int) string {
	return fmt.Sprintf("waste-trucks/%d", id)
}
