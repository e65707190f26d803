package treasury

import (
	"context"
	"fmt"
	"net/url"

	"github.com/barangay/egov/internal/platform/apiclient"
)

// API is the treasurer area of the backend.
type API struct {
	c *apiclient.Client
}

func NewAPI(c *apiclient.Client) *API {
	return &API{c: c}
}

func (a *API) ListPlans(ctx context.Context, q url.Values) (apiclient.Page[BudgetPlan], error) {
	return apiclient.GetList[BudgetPlan](ctx, a.c, "budget-plan", q)
}

func (a *API) GetPlan(ctx context.Context, id int) (BudgetPlan, error) {
	var out BudgetPlan
	if err := a.c.Get(ctx, fmt.Sprintf("budget-plan/%d", id), nil, &out); err != nil {
		return BudgetPlan{}, err
	}
	return out, nil
}

// SetArchived toggles the archive flag of plan id.
func (a *API) SetArchived(ctx context.Context, id int, archived bool) error {
	return a.c.Put(ctx, fmt.Sprintf("update-budget-plan/%d", id), map[string]bool{"plan_is_archive": archived}, nil)
}

func (a *API) DeletePlan(ctx context.Context, id int) error {
	return a.c.Delete(ctx, fmt.Sprintf("budget-plan/%d", id), nil)
}

func (a *API) ListFiles(ctx context.Context, planID int) (apiclient.Page[PlanFile], error) {
	return apiclient.GetList[PlanFile](ctx, a.c, fmt.Sprintf("budget-plan-file/%d", planID), nil)
}

func (a *API) DeleteFile(ctx context.Context, id int) error {
	return a.c.Delete(ctx, fmt.Sprintf("delete-budget-plan-file/%d", id), nil)
}
