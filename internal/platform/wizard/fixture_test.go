package wizard

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/auth"
	"github.com/barangay/egov/internal/platform/query"
	"github.com/barangay/egov/internal/platform/subrecord"
	"github.com/barangay/egov/internal/platform/validate"
)

type vaxStep int

const (
	stepChild vaxStep = iota + 1
	stepDoses
	stepReview
)

type dose struct {
	Date   string `json:"date"`
	Number int    `json:"number"`
}

type vaxDraft struct {
	Name    string               `json:"name"`
	Age     int                  `json:"age"`
	Tags    []string             `json:"tags"`
	Address map[string]string    `json:"address"`
	Upper   string               `json:"upper"`
	Doses   subrecord.List[dose] `json:"doses"`
	Secret  string               `json:"-"`
}

func checkDose(d dose) validate.Errors {
	errs := validate.Errors{}
	validate.Required(errs, "date", d.Date)
	validate.Date(errs, "date", d.Date)
	if d.Number <= 0 {
		errs.Add("number", "Dose number is required")
	}
	return errs
}

func vaxSteps() []Step[vaxStep, vaxDraft] {
	return []Step[vaxStep, vaxDraft]{
		{ID: stepChild, Name: "child", Check: func(d vaxDraft) validate.Errors {
			errs := validate.Errors{}
			validate.Required(errs, "name", d.Name)
			return errs
		}},
		{ID: stepDoses, Name: "doses", Check: func(d vaxDraft) validate.Errors {
			errs := validate.Errors{}
			if d.Doses.Len() == 0 {
				errs.Add("doses", "Add at least one dose")
			}
			return errs
		}},
		{ID: stepReview, Name: "review"},
	}
}

var errBackendDown = errors.New("backend down")

// vaxDefinition records submitted drafts in *submitted; a draft named "fail"
// makes submit fail.
func vaxDefinition(submitted *[]vaxDraft) Definition[vaxStep, vaxDraft] {
	return Definition[vaxStep, vaxDraft]{
		Kind:  "vaccination",
		Steps: vaxSteps(),
		New: func(p Params) vaxDraft {
			return vaxDraft{Tags: []string{}, Address: map[string]string{}}
		},
		Seed: func(ctx context.Context, ac *appctx.Context, p Params, d *vaxDraft) error {
			if p.Mode == ModeEdit {
				d.Name = "Existing " + p.ID
			}
			return nil
		},
		Lists: map[string]List[vaxDraft]{
			"doses": Items(func(d *vaxDraft) *subrecord.List[dose] { return &d.Doses }, checkDose, nil),
		},
		Derive: func(ctx context.Context, ac *appctx.Context, d *vaxDraft, changed []string) error {
			for _, k := range changed {
				if k == "name" {
					d.Upper = strings.ToUpper(d.Name)
				}
			}
			return nil
		},
		Submit: func(ctx context.Context, ac *appctx.Context, p Params, d vaxDraft) (any, error) {
			if d.Name == "fail" {
				return nil, errBackendDown
			}
			*submitted = append(*submitted, d)
			return map[string]string{"patrec_id": "PR-1"}, nil
		},
	}
}

func testAppCtx(userID string) *appctx.Context {
	return appctx.New(auth.Session{UserID: userID}, nil, query.NewClient(), zerolog.Nop())
}
