package health

import (
	"context"
	"slices"
	"strings"

	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/subrecord"
	"github.com/barangay/egov/internal/platform/validate"
	"github.com/barangay/egov/internal/platform/wizard"
)

const WizardKind = "child-health"

// Step is a child health record wizard step.
type Step int

const (
	StepChildInfo Step = iota + 1
	StepFamily
	StepImmunization
	StepSupplements
	StepVitalSigns
	StepReview
)

// Wizard returns the child health record intake wizard.
func (s *Service) Wizard() wizard.Definition[Step, Draft] {
	return wizard.Definition[Step, Draft]{
		Kind:  WizardKind,
		Roles: Roles,
		Steps: []wizard.Step[Step, Draft]{
			{ID: StepChildInfo, Name: "child_info", Check: func(d Draft) validate.Errors { return d.checkChild(s.now()) }},
			{ID: StepFamily, Name: "family", Check: func(d Draft) validate.Errors { return d.checkFamily() }},
			{ID: StepImmunization, Name: "immunization", Check: func(d Draft) validate.Errors { return d.checkImmunization() }},
			{ID: StepSupplements, Name: "supplements", Check: func(d Draft) validate.Errors { return d.checkSupplements() }},
			{ID: StepVitalSigns, Name: "vital_signs", Check: func(d Draft) validate.Errors { return d.checkVitalSigns() }},
			{ID: StepReview, Name: "review"},
		},
		New: func(wizard.Params) Draft {
			return Draft{}
		},
		Lists: map[string]wizard.List[Draft]{
			"vaccines":         wizard.Items(func(d *Draft) *subrecord.List[VaccineDose] { return &d.Vaccines }, checkVaccineDose(s.now), nil),
			"iron_supplements": wizard.Items(func(d *Draft) *subrecord.List[IronDose] { return &d.IronSupplements }, checkIronDose(s.now), nil),
			"vital_signs":      wizard.Items(func(d *Draft) *subrecord.List[VitalSign] { return &d.VitalSigns }, checkVitalSign(s.now), nil),
		},
		Derive: s.fillChild,
		Submit: func(ctx context.Context, ac *appctx.Context, _ wizard.Params, d Draft) (any, error) {
			return s.CreateChildRecord(ctx, ac, d.Record())
		},
	}
}

// fillChild copies the selected resident into the child fields. The family
// address and contact are only filled when still blank.
func (s *Service) fillChild(ctx context.Context, ac *appctx.Context, d *Draft, changed []string) error {
	if !slices.Contains(changed, "rp_id") || strings.TrimSpace(d.ResidentID) == "" || s.residents == nil {
		return nil
	}
	r, err := s.residents.Resident(ctx, ac, strings.TrimSpace(d.ResidentID))
	if err != nil {
		return err
	}
	d.FirstName = r.FirstName
	d.MiddleName = r.MiddleName
	d.LastName = r.LastName
	d.Sex = r.Sex
	d.DOB = r.DOB
	if d.Address == "" {
		d.Address = r.Address
	}
	if d.Contact == "" {
		d.Contact = r.Contact
	}
	return nil
}
