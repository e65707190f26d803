package council

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strconv"

	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/subrecord"
	"github.com/barangay/egov/internal/platform/validate"
	"github.com/barangay/egov/internal/platform/wizard"
)

// WizardKind names the resolution wizard in the registry.
const WizardKind = "resolution"

// Step is a resolution wizard step.
type Step int

const (
	StepDetails Step = iota + 1
	StepAttachments
	StepReview
)

var errReadOnly = &wizard.Error{Code: http.StatusBadRequest, Msg: "res_num and show_gpr are read-only"}

// Wizard returns the create/edit resolution wizard. In edit mode every
// attachment added or removed is sent to the backend right away; in create
// mode attachments are uploaded after the resolution exists.
func (s *Service) Wizard() wizard.Definition[Step, Draft] {
	return wizard.Definition[Step, Draft]{
		Kind:  WizardKind,
		Roles: Roles,
		Steps: []wizard.Step[Step, Draft]{
			{ID: StepDetails, Name: "details", Check: func(d Draft) validate.Errors {
				return d.Form().Validate(s.now())
			}},
			{ID: StepAttachments, Name: "attachments"},
			{ID: StepReview, Name: "review"},
		},
		New: func(wizard.Params) Draft {
			return Draft{AreaOfFocus: []string{}}
		},
		Seed: s.seed,
		Lists: map[string]wizard.List[Draft]{
			"files": {
				Add: func(ctx context.Context, ac *appctx.Context, d *Draft, raw json.RawMessage) (string, error) {
					return addAttachment(d, &d.Files, raw, func(a Attachment) (Attachment, error) {
						rf, err := s.AttachFile(ctx, ac, d.ResNum, a)
						return Attachment{Name: rf.Name, URL: rf.URL, ServerID: rf.ID}, err
					})
				},
				Remove: func(ctx context.Context, ac *appctx.Context, d *Draft, id string) error {
					return removeAttachmentItem(ctx, ac, &d.Files, id, s.RemoveFile)
				},
			},
			"supp_docs": {
				Add: func(ctx context.Context, ac *appctx.Context, d *Draft, raw json.RawMessage) (string, error) {
					return addAttachment(d, &d.SuppDocs, raw, func(a Attachment) (Attachment, error) {
						sd, err := s.AttachSupp(ctx, ac, d.ResNum, a)
						return Attachment{Name: sd.Name, URL: sd.URL, ServerID: sd.ID}, err
					})
				},
				Remove: func(ctx context.Context, ac *appctx.Context, d *Draft, id string) error {
					return removeAttachmentItem(ctx, ac, &d.SuppDocs, id, s.RemoveSupp)
				},
			},
		},
		Derive: func(_ context.Context, _ *appctx.Context, d *Draft, changed []string) error {
			if slices.Contains(changed, "res_num") || slices.Contains(changed, "show_gpr") {
				return errReadOnly
			}
			d.ShowGPR = HasGAD(d.AreaOfFocus)
			if !d.ShowGPR {
				d.GprID = ""
			}
			return nil
		},
		Submit: func(ctx context.Context, ac *appctx.Context, p wizard.Params, d Draft) (any, error) {
			if p.Mode == wizard.ModeEdit {
				return s.Update(ctx, ac, d.ResNum, d.Form())
			}
			return s.CreateWithAttachments(ctx, ac, d.Form(), pending(d.Files), pending(d.SuppDocs))
		},
	}
}

// seed loads the resolution being edited into the draft.
func (s *Service) seed(ctx context.Context, ac *appctx.Context, p wizard.Params, d *Draft) error {
	if p.Mode != wizard.ModeEdit {
		return nil
	}
	id, err := strconv.Atoi(p.ID)
	if err != nil || id <= 0 {
		return &wizard.Error{Code: http.StatusBadRequest, Msg: "invalid resolution id"}
	}
	r := s.Resolution(ctx, ac, id)
	if r.Err != nil {
		return r.Err
	}
	f := FormOf(r.Data)
	d.ResNum = r.Data.ID
	d.Title, d.DateApproved, d.AreaOfFocus, d.GprID = f.Title, f.DateApproved, f.AreaOfFocus, f.GprID
	if d.AreaOfFocus == nil {
		d.AreaOfFocus = []string{}
	}
	d.ShowGPR = HasGAD(d.AreaOfFocus)
	for _, rf := range r.Data.Files {
		if _, err := d.Files.Add(Attachment{Name: rf.Name, URL: rf.URL, ServerID: rf.ID}, nil); err != nil {
			return err
		}
	}
	for _, sd := range r.Data.SuppDocs {
		if _, err := d.SuppDocs.Add(Attachment{Name: sd.Name, URL: sd.URL, ServerID: sd.ID}, nil); err != nil {
			return err
		}
	}
	return nil
}

func addAttachment(d *Draft, list *subrecord.List[Attachment], raw json.RawMessage, sync func(Attachment) (Attachment, error)) (string, error) {
	var a Attachment
	if err := json.Unmarshal(raw, &a); err != nil {
		return "", &wizard.Error{Code: http.StatusBadRequest, Msg: "invalid attachment: " + err.Error()}
	}
	a.ServerID = 0
	if err := checkAttachment(a).Err(); err != nil {
		return "", err
	}
	if d.ResNum != 0 {
		synced, err := sync(a)
		if err != nil {
			return "", err
		}
		a = synced
	}
	return list.Add(a, nil)
}

func removeAttachmentItem(ctx context.Context, ac *appctx.Context, list *subrecord.List[Attachment], id string, remove func(context.Context, *appctx.Context, int) error) error {
	a, ok := list.Get(id)
	if !ok {
		return wizard.ErrItemNotFound
	}
	if a.ServerID != 0 {
		if err := remove(ctx, ac, a.ServerID); err != nil {
			return err
		}
	}
	list.Delete(id)
	return nil
}

// pending returns the attachments not yet on the backend.
func pending(l subrecord.List[Attachment]) []Attachment {
	var out []Attachment
	for _, a := range l.Values() {
		if a.ServerID == 0 {
			out = append(out, a)
		}
	}
	return out
}
