package waste

import (
	"context"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/barangay/egov/internal/platform/apiclient"
	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/listview"
	"github.com/barangay/egov/internal/platform/notify"
	"github.com/barangay/egov/internal/platform/query"
)

// Service holds the waste queries and mutations.
type Service struct {
	api *API
	now func() time.Time
}

func NewService(api *API) *Service {
	return &Service{api: api, now: time.Now}
}

// Trucks lists trucks for the given filter and page.
func (s *Service) Trucks(ctx context.Context, ac *appctx.Context, f listview.Filter, p listview.Pager) listview.State[Truck] {
	return listview.NewView(ResourceTrucks, ac.Query, s.api.ListTrucks, f, p).Fetch(ctx)
}

// CreateTruck validates f and creates the truck.
func (s *Service) CreateTruck(ctx context.Context, ac *appctx.Context, f TruckForm) (Truck, error) {
	f = f.Normalize()
	if err := f.Validate(s.now()).Err(); err != nil {
		return Truck{}, err
	}
	return query.Mutate(ctx, ac.Query, ac.Toasts, query.Mutation[TruckForm, Truck]{
		Resource: ResourceTrucks,
		Do:       s.api.CreateTruck,
		Success:  "Truck created successfully",
		Failure:  notify.Failure("create", "Truck"),
	}, f)
}

type truckUpdate struct {
	id   int
	form TruckForm
}

// UpdateTruck validates f and replaces truck id. Cached rows show the new
// values until the refetch lands.
func (s *Service) UpdateTruck(ctx context.Context, ac *appctx.Context, id int, f TruckForm) (Truck, error) {
	f = f.Normalize()
	if err := f.Validate(s.now()).Err(); err != nil {
		return Truck{}, err
	}
	return query.Mutate(ctx, ac.Query, ac.Toasts, query.Mutation[truckUpdate, Truck]{
		Resource: ResourceTrucks,
		Optimistic: func(c *query.Client, v truckUpdate) {
			listview.PatchRow(c, ResourceTrucks, isTruck(v.id), func(t Truck) Truck {
				t.PlateNum, t.Model, t.Capacity, t.Status, t.LastMaint = v.form.PlateNum, v.form.Model, v.form.Capacity, v.form.Status, v.form.LastMaint
				return t
			})
		},
		Do: func(ctx context.Context, v truckUpdate) (Truck, error) {
			return s.api.UpdateTruck(ctx, v.id, v.form)
		},
		Success: "Truck updated successfully",
		Failure: notify.Failure("update", "Truck"),
	}, truckUpdate{id: id, form: f})
}

// ArchiveTruck soft-deletes truck id, hiding it from cached lists at once.
func (s *Service) ArchiveTruck(ctx context.Context, ac *appctx.Context, id int) error {
	return s.rowAction(ctx, ac, id, s.api.ArchiveTruck, "Truck archived successfully", notify.Failure("archive", "Truck"))
}

// RestoreTruck brings an archived truck back.
func (s *Service) RestoreTruck(ctx context.Context, ac *appctx.Context, id int) error {
	return s.rowAction(ctx, ac, id, s.api.RestoreTruck, "Truck restored successfully", notify.Failure("restore", "Truck"))
}

// DeleteTruck removes truck id permanently.
func (s *Service) DeleteTruck(ctx context.Context, ac *appctx.Context, id int) error {
	return s.rowAction(ctx, ac, id, s.api.DeleteTruck, "Truck deleted successfully", notify.Failure("delete", "Truck"))
}

func (s *Service) rowAction(ctx context.Context, ac *appctx.Context, id int, do func(context.Context, int) error, success, failure string) error {
	_, err := query.Mutate(ctx, ac.Query, ac.Toasts, query.Mutation[int, struct{}]{
		Resource: ResourceTrucks,
		Optimistic: func(c *query.Client, id int) {
			listview.DropRow(c, ResourceTrucks, isTruck(id))
		},
		Do: func(ctx context.Context, id int) (struct{}, error) {
			return struct{}{}, do(ctx, id)
		},
		Success: success,
		Failure: failure,
	}, id)
	return err
}

func isTruck(id int) func(Truck) bool {
	return func(t Truck) bool { return t.ID == id }
}

// Personnel lists staff holding position (all staff when empty).
func (s *Service) Personnel(ctx context.Context, ac *appctx.Context, position string) query.Result[apiclient.Page[Personnel]] {
	q := url.Values{}
	if position != "" {
		q.Set("position", position)
	}
	return query.Fetch(ctx, ac.Query, query.NewKey(ResourcePersonnel, q), func(ctx context.Context) (apiclient.Page[Personnel], error) {
		return s.api.ListPersonnel(ctx, q)
	})
}

// Fleet loads the active trucks and the drivers together.
func (s *Service) Fleet(ctx context.Context, ac *appctx.Context) (Fleet, error) {
	var (
		trucks  apiclient.Page[Truck]
		drivers apiclient.Page[Personnel]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q := url.Values{"is_archive": {"false"}}
		r := query.Fetch(gctx, ac.Query, query.NewKey(ResourceTrucks, q), func(ctx context.Context) (apiclient.Page[Truck], error) {
			return s.api.ListTrucks(ctx, q)
		})
		trucks = r.Data
		return r.Err
	})
	g.Go(func() error {
		r := s.Personnel(gctx, ac, PositionDriver)
		drivers = r.Data
		return r.Err
	})
	if err := g.Wait(); err != nil {
		return Fleet{}, err
	}
	return newFleet(trucks.Results, drivers.Results), nil
}
