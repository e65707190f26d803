package health

import (
	"context"
	"net/url"
	"strconv"

	"github.com/barangay/egov/internal/platform/apiclient"
)

// API covers the health and inventory areas of the backend.
type API struct {
	health    *apiclient.Client
	inventory *apiclient.Client
}

func NewAPI(health, inventory *apiclient.Client) *API {
	return &API{health: health, inventory: inventory}
}

func (a *API) CreateChildRecord(ctx context.Context, r Record) (CreatedRecord, error) {
	var out CreatedRecord
	if err := a.health.Post(ctx, "child-health/record", r, &out); err != nil {
		return CreatedRecord{}, err
	}
	return out, nil
}

func (a *API) ListMedicines(ctx context.Context, q url.Values) (apiclient.Page[Medicine], error) {
	return apiclient.GetList[Medicine](ctx, a.inventory, "medicine-list", q)
}

func (a *API) ListVaccines(ctx context.Context, q url.Values) (apiclient.Page[Vaccine], error) {
	return apiclient.GetList[Vaccine](ctx, a.inventory, "vaccine-list", q)
}

// ArchiveMedicine archives a stock entry; the backend treats DELETE as archive.
func (a *API) ArchiveMedicine(ctx context.Context, id int) error {
	return a.inventory.Delete(ctx, "medicine-list/"+strconv.Itoa(id), nil)
}
