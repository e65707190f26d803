package complaint

import (
	"context"

	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/subrecord"
	"github.com/barangay/egov/internal/platform/validate"
	"github.com/barangay/egov/internal/platform/wizard"
)

const WizardKind = "complaint"

// Step is a complaint wizard step.
type Step int

const (
	StepComplainants Step = iota + 1
	StepAccused
	StepIncident
	StepAttachments
	StepReview
)

// Wizard returns the blotter filing wizard.
func (s *Service) Wizard() wizard.Definition[Step, Draft] {
	return wizard.Definition[Step, Draft]{
		Kind:  WizardKind,
		Roles: Roles,
		Steps: []wizard.Step[Step, Draft]{
			{ID: StepComplainants, Name: "complainants", Check: func(d Draft) validate.Errors {
				e := validate.Errors{}
				validate.MinItems(e, "complainants", d.Complainants.Len(), 1)
				return e
			}},
			{ID: StepAccused, Name: "accused", Check: func(d Draft) validate.Errors {
				e := validate.Errors{}
				validate.MinItems(e, "accused", d.Accused.Len(), 1)
				return e
			}},
			{ID: StepIncident, Name: "incident", Check: func(d Draft) validate.Errors {
				return d.Incident().Validate(s.now())
			}},
			{ID: StepAttachments, Name: "attachments", Check: func(d Draft) validate.Errors {
				e := validate.Errors{}
				if d.Files.Len() > maxAttachments {
					e.Add("files", "Attach at most 5 files")
				}
				return e
			}},
			{ID: StepReview, Name: "review"},
		},
		New: func(wizard.Params) Draft {
			return Draft{}
		},
		Lists: map[string]wizard.List[Draft]{
			"complainants": wizard.Items(func(d *Draft) *subrecord.List[Person] { return &d.Complainants }, checkComplainant, s.Fill),
			"accused":      wizard.Items(func(d *Draft) *subrecord.List[Person] { return &d.Accused }, checkAccused, s.Fill),
			"files":        wizard.Items(func(d *Draft) *subrecord.List[Attachment] { return &d.Files }, checkAttachment, nil),
		},
		Submit: func(ctx context.Context, ac *appctx.Context, _ wizard.Params, d Draft) (any, error) {
			return s.File(ctx, ac, d.Filing())
		},
	}
}
