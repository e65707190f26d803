package health

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/barangay/egov/internal/domain/profiling"
	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/listview"
	"github.com/barangay/egov/internal/platform/notify"
	"github.com/barangay/egov/internal/platform/query"
)

// Residents looks up resident profiles for auto-fill.
type Residents interface {
	Resident(ctx context.Context, ac *appctx.Context, id string) (profiling.Resident, error)
}

// Service holds the health queries and mutations.
type Service struct {
	api       *API
	residents Residents
	now       func() time.Time
}

func NewService(api *API, residents Residents) *Service {
	return &Service{api: api, residents: residents, now: time.Now}
}

// CreateChildRecord submits a complete child health record.
func (s *Service) CreateChildRecord(ctx context.Context, ac *appctx.Context, r Record) (CreatedRecord, error) {
	return query.Mutate(ctx, ac.Query, ac.Toasts, query.Mutation[Record, CreatedRecord]{
		Resource: ResourceChildRecords,
		Do:       s.api.CreateChildRecord,
		Success:  notify.Text("created", "Child health record"),
		Failure:  notify.Failure("create", "Child health record"),
	}, r)
}

func (s *Service) Medicines(ctx context.Context, ac *appctx.Context, f listview.Filter, p listview.Pager) listview.State[Medicine] {
	return listview.NewView(ResourceMedicines, ac.Query, s.api.ListMedicines, f, p).Fetch(ctx)
}

func (s *Service) Vaccines(ctx context.Context, ac *appctx.Context, f listview.Filter, p listview.Pager) listview.State[Vaccine] {
	return listview.NewView(ResourceVaccines, ac.Query, s.api.ListVaccines, f, p).Fetch(ctx)
}

// inventoryWindow is how many rows of each stock list the overview reads.
const inventoryWindow = 100

// Inventory loads the first window of medicines and vaccines concurrently.
func (s *Service) Inventory(ctx context.Context, ac *appctx.Context) (Inventory, error) {
	var (
		meds listview.State[Medicine]
		vacs listview.State[Vaccine]
	)
	p := listview.NewPager(listview.ModeLoadMore, inventoryWindow)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		meds = s.Medicines(gctx, ac, listview.Filter{}, p)
		return meds.Err
	})
	g.Go(func() error {
		vacs = s.Vaccines(gctx, ac, listview.Filter{}, p)
		return vacs.Err
	})
	if err := g.Wait(); err != nil {
		return Inventory{}, err
	}
	return NewInventory(meds.Items, vacs.Items, s.now()), nil
}

// ArchiveMedicine removes the medicine from cached lists before the backend
// call and puts it back if the call fails.
func (s *Service) ArchiveMedicine(ctx context.Context, ac *appctx.Context, id int) error {
	_, err := query.Mutate(ctx, ac.Query, ac.Toasts, query.Mutation[int, struct{}]{
		Resource: ResourceMedicines,
		Optimistic: func(c *query.Client, id int) {
			listview.DropRow(c, ResourceMedicines, func(m Medicine) bool { return m.ID == id })
		},
		Do: func(ctx context.Context, id int) (struct{}, error) {
			return struct{}{}, s.api.ArchiveMedicine(ctx, id)
		},
		Success: notify.Text("archived", "Medicine"),
		Failure: notify.Failure("archive", "Medicine"),
	}, id)
	return err
}
