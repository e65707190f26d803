package treasury

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/barangay/egov/internal/platform/listview"
)

const (
	ResourcePlans = "treasury.plans"
	ResourcePlan  = "treasury.plan"
	ResourceFiles = "treasury.plan_files"
)

// Amount is a peso amount. The backend sends decimals either as JSON numbers
// or as strings such as "1250.50".
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*a = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("amount %q: %w", s, err)
		}
		*a = Amount(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}

// Round2 rounds to centavos.
func (a Amount) Round2() Amount {
	return Amount(math.Round(float64(a)*100) / 100)
}

// BudgetItem is one appropriation line of a plan.
type BudgetItem struct {
	ID       int    `json:"dtl_id"`
	Item     string `json:"dtl_budget_item"`
	Category string `json:"dtl_budget_category"`
	Proposed Amount `json:"dtl_proposed_budget"`
}

// BudgetPlan is a yearly barangay budget plan.
type BudgetPlan struct {
	ID                   int          `json:"plan_id"`
	Year                 string       `json:"plan_year"`
	IssueDate            string       `json:"plan_issue_date"`
	ActualIncome         Amount       `json:"plan_actual_income"`
	RPTIncome            Amount       `json:"plan_rpt_income"`
	Balance              Amount       `json:"plan_balance"`
	TaxShare             Amount       `json:"plan_tax_share"`
	TaxAllotment         Amount       `json:"plan_tax_allotment"`
	CertFees             Amount       `json:"plan_cert_fees"`
	OtherIncome          Amount       `json:"plan_other_income"`
	BudgetaryObligations Amount       `json:"plan_budgetaryObligations"`
	IsArchive            bool         `json:"plan_is_archive"`
	Items                []BudgetItem `json:"details,omitempty"`
}

func (p BudgetPlan) Fields() listview.Fields {
	return listview.Fields{Text: []string{p.Year}, Date: p.IssueDate, Archived: p.IsArchive}
}

// AvailableResources is the carried-over balance plus every income source.
func (p BudgetPlan) AvailableResources() Amount {
	return (p.Balance + p.RPTIncome + p.TaxShare + p.TaxAllotment + p.CertFees + p.OtherIncome).Round2()
}

// Obligations is the sum of the appropriation lines, or the recorded
// obligations when the plan was fetched without its lines.
func (p BudgetPlan) Obligations() Amount {
	if len(p.Items) == 0 {
		return p.BudgetaryObligations.Round2()
	}
	var total Amount
	for _, it := range p.Items {
		total += it.Proposed
	}
	return total.Round2()
}

// Remaining is what is left after the obligations; negative means the plan
// is over budget.
func (p BudgetPlan) Remaining() Amount {
	return (p.AvailableResources() - p.Obligations()).Round2()
}

// Summary is a plan with its derived totals.
type Summary struct {
	Plan               BudgetPlan `json:"plan"`
	AvailableResources Amount     `json:"available_resources"`
	Obligations        Amount     `json:"obligations"`
	Remaining          Amount     `json:"remaining"`
	OverBudget         bool       `json:"over_budget"`
}

func Summarize(p BudgetPlan) Summary {
	s := Summary{
		Plan:               p,
		AvailableResources: p.AvailableResources(),
		Obligations:        p.Obligations(),
		Remaining:          p.Remaining(),
	}
	s.OverBudget = s.Remaining < 0
	return s
}

// PlanFile is a supporting document of a plan.
type PlanFile struct {
	ID     int    `json:"bpf_id"`
	PlanID int    `json:"plan_id"`
	Name   string `json:"bpf_name"`
	URL    string `json:"bpf_url"`
	Desc   string `json:"bpf_description"`
}
