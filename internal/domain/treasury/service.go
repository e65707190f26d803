package treasury

import (
	"context"
	"net/url"
	"strconv"

	"github.com/barangay/egov/internal/platform/apiclient"
	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/listview"
	"github.com/barangay/egov/internal/platform/notify"
	"github.com/barangay/egov/internal/platform/query"
)

type Service struct {
	api *API
}

func NewService(api *API) *Service {
	return &Service{api: api}
}

func (s *Service) Plans(ctx context.Context, ac *appctx.Context, f listview.Filter, p listview.Pager) listview.State[BudgetPlan] {
	return listview.NewView(ResourcePlans, ac.Query, s.api.ListPlans, f, p).Fetch(ctx)
}

// Plan loads plan id with its appropriation lines.
func (s *Service) Plan(ctx context.Context, ac *appctx.Context, id int) (Summary, error) {
	key := query.NewKey(ResourcePlan, url.Values{"id": {strconv.Itoa(id)}})
	r := query.Fetch(ctx, ac.Query, key, func(ctx context.Context) (BudgetPlan, error) {
		return s.api.GetPlan(ctx, id)
	})
	if r.Err != nil {
		return Summary{}, r.Err
	}
	return Summarize(r.Data), nil
}

func (s *Service) Archive(ctx context.Context, ac *appctx.Context, id int) error {
	return s.toggle(ctx, ac, id, true)
}

func (s *Service) Restore(ctx context.Context, ac *appctx.Context, id int) error {
	return s.toggle(ctx, ac, id, false)
}

type archiveToggle struct {
	id       int
	archived bool
}

func (s *Service) toggle(ctx context.Context, ac *appctx.Context, id int, archived bool) error {
	done, verb := "restored", "restore"
	if archived {
		done, verb = "archived", "archive"
	}
	_, err := query.Mutate(ctx, ac.Query, ac.Toasts, query.Mutation[archiveToggle, struct{}]{
		Resource:    ResourcePlans,
		Invalidates: []string{ResourcePlans, ResourcePlan},
		Optimistic: func(c *query.Client, v archiveToggle) {
			listview.DropRow(c, ResourcePlans, isPlan(v.id))
		},
		Do: func(ctx context.Context, v archiveToggle) (struct{}, error) {
			return struct{}{}, s.api.SetArchived(ctx, v.id, v.archived)
		},
		Success: notify.Text(done, "Budget plan"),
		Failure: notify.Failure(verb, "Budget plan"),
	}, archiveToggle{id: id, archived: archived})
	return err
}

func (s *Service) Delete(ctx context.Context, ac *appctx.Context, id int) error {
	_, err := query.Mutate(ctx, ac.Query, ac.Toasts, query.Mutation[int, struct{}]{
		Resource:    ResourcePlans,
		Invalidates: []string{ResourcePlans, ResourcePlan},
		Optimistic: func(c *query.Client, id int) {
			listview.DropRow(c, ResourcePlans, isPlan(id))
		},
		Do: func(ctx context.Context, id int) (struct{}, error) {
			return struct{}{}, s.api.DeletePlan(ctx, id)
		},
		Success: notify.Text("deleted", "Budget plan"),
		Failure: notify.Failure("delete", "Budget plan"),
	}, id)
	return err
}

func isPlan(id int) func(BudgetPlan) bool {
	return func(p BudgetPlan) bool { return p.ID == id }
}

// Files lists the supporting documents of a plan.
func (s *Service) Files(ctx context.Context, ac *appctx.Context, planID int) query.Result[apiclient.Page[PlanFile]] {
	key := query.NewKey(ResourceFiles, url.Values{"plan_id": {strconv.Itoa(planID)}})
	return query.Fetch(ctx, ac.Query, key, func(ctx context.Context) (apiclient.Page[PlanFile], error) {
		return s.api.ListFiles(ctx, planID)
	})
}

// DeleteFile removes a supporting document; it disappears from cached file
// lists before the backend answers.
func (s *Service) DeleteFile(ctx context.Context, ac *appctx.Context, fileID int) error {
	_, err := query.Mutate(ctx, ac.Query, ac.Toasts, query.Mutation[int, struct{}]{
		Resource: ResourceFiles,
		Optimistic: func(c *query.Client, id int) {
			listview.DropRow(c, ResourceFiles, func(f PlanFile) bool { return f.ID == id })
		},
		Do: func(ctx context.Context, id int) (struct{}, error) {
			return struct{}{}, s.api.DeleteFile(ctx, id)
		},
		Success: notify.Text("deleted", "File"),
		Failure: notify.Failure("delete", "File"),
	}, fileID)
	return err
}
