package council

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/listview"
	"github.com/barangay/egov/internal/platform/notify"
	"github.com/barangay/egov/internal/platform/query"
)

// Service holds the council queries and mutations.
type Service struct {
	api *API
	now func() time.Time
}

func NewService(api *API) *Service {
	return &Service{api: api, now: time.Now}
}

func (s *Service) Resolutions(ctx context.Context, ac *appctx.Context, f listview.Filter, p listview.Pager) listview.State[Resolution] {
	return listview.NewView(ResourceResolutions, ac.Query, s.api.ListResolutions, f, p).Fetch(ctx)
}

// Resolution loads one resolution with its attachments.
func (s *Service) Resolution(ctx context.Context, ac *appctx.Context, id int) query.Result[Resolution] {
	key := query.NewKey(ResourceResolution, url.Values{"id": {strconv.Itoa(id)}})
	return query.Fetch(ctx, ac.Query, key, func(ctx context.Context) (Resolution, error) {
		return s.api.GetResolution(ctx, id)
	})
}

func (s *Service) validated(f ResolutionForm) (ResolutionForm, error) {
	f = f.Normalize()
	return f, f.Validate(s.now()).Err()
}

func (s *Service) Create(ctx context.Context, ac *appctx.Context, f ResolutionForm) (Resolution, error) {
	f, err := s.validated(f)
	if err != nil {
		return Resolution{}, err
	}
	return query.Mutate(ctx, ac.Query, ac.Toasts, query.Mutation[ResolutionForm, Resolution]{
		Resource: ResourceResolutions,
		Do:       s.api.CreateResolution,
		Success:  notify.Text("created", "Resolution"),
		Failure:  notify.Failure("create", "Resolution"),
	}, f)
}

// CreateWithAttachments creates the resolution and then uploads the pending
// files. Upload failures do not undo the resolution; they are reported with
// one error toast.
func (s *Service) CreateWithAttachments(ctx context.Context, ac *appctx.Context, f ResolutionForm, files, supp []Attachment) (Resolution, error) {
	r, err := s.Create(ctx, ac, f)
	if err != nil {
		return Resolution{}, err
	}
	failed := 0
	for _, a := range files {
		rf, err := s.api.UploadFile(ctx, r.ID, a)
		if err != nil {
			ac.Logger.Warn().Err(err).Int("res_num", r.ID).Str("file", a.Name).Msg("resolution file upload failed")
			failed++
			continue
		}
		r.Files = append(r.Files, rf)
	}
	for _, a := range supp {
		sd, err := s.api.UploadSupp(ctx, r.ID, a)
		if err != nil {
			ac.Logger.Warn().Err(err).Int("res_num", r.ID).Str("file", a.Name).Msg("supporting document upload failed")
			failed++
			continue
		}
		r.SuppDocs = append(r.SuppDocs, sd)
	}
	if failed > 0 {
		ac.Toasts.Error(fmt.Sprintf("Resolution saved, but %d attachment(s) failed to upload.", failed))
	}
	if len(files)+len(supp) > 0 {
		ac.Query.Invalidate(ResourceResolutions, ResourceResolution)
	}
	return r, nil
}

type resolutionUpdate struct {
	id   int
	form ResolutionForm
}

// Update replaces the editable fields of resolution id.
func (s *Service) Update(ctx context.Context, ac *appctx.Context, id int, f ResolutionForm) (Resolution, error) {
	f, err := s.validated(f)
	if err != nil {
		return Resolution{}, err
	}
	return query.Mutate(ctx, ac.Query, ac.Toasts, query.Mutation[resolutionUpdate, Resolution]{
		Resource:    ResourceResolutions,
		Invalidates: []string{ResourceResolutions, ResourceResolution},
		Optimistic: func(c *query.Client, v resolutionUpdate) {
			listview.PatchRow(c, ResourceResolutions, isResolution(v.id), func(r Resolution) Resolution {
				r.Title, r.DateApproved, r.AreaOfFocus = v.form.Title, v.form.DateApproved, v.form.AreaOfFocus
				return r
			})
		},
		Do: func(ctx context.Context, v resolutionUpdate) (Resolution, error) {
			return s.api.UpdateResolution(ctx, v.id, v.form)
		},
		Success: notify.Text("updated", "Resolution"),
		Failure: notify.Failure("update", "Resolution"),
	}, resolutionUpdate{id: id, form: f})
}

func (s *Service) Archive(ctx context.Context, ac *appctx.Context, id int) error {
	return s.rowAction(ctx, ac, id, func(ctx context.Context, id int) error {
		return s.api.SetArchived(ctx, id, true)
	}, "archived", "archive")
}

func (s *Service) Restore(ctx context.Context, ac *appctx.Context, id int) error {
	return s.rowAction(ctx, ac, id, func(ctx context.Context, id int) error {
		return s.api.SetArchived(ctx, id, false)
	}, "restored", "restore")
}

func (s *Service) Delete(ctx context.Context, ac *appctx.Context, id int) error {
	return s.rowAction(ctx, ac, id, s.api.DeleteResolution, "deleted", "delete")
}

func (s *Service) rowAction(ctx context.Context, ac *appctx.Context, id int, do func(context.Context, int) error, done, verb string) error {
	_, err := query.Mutate(ctx, ac.Query, ac.Toasts, query.Mutation[int, struct{}]{
		Resource:    ResourceResolutions,
		Invalidates: []string{ResourceResolutions, ResourceResolution},
		Optimistic: func(c *query.Client, id int) {
			listview.DropRow(c, ResourceResolutions, isResolution(id))
		},
		Do: func(ctx context.Context, id int) (struct{}, error) {
			return struct{}{}, do(ctx, id)
		},
		Success: notify.Text(done, "Resolution"),
		Failure: notify.Failure(verb, "Resolution"),
	}, id)
	return err
}

func isResolution(id int) func(Resolution) bool {
	return func(r Resolution) bool { return r.ID == id }
}

type pendingUpload struct {
	resNum int
	file   Attachment
}

func (s *Service) AttachFile(ctx context.Context, ac *appctx.Context, resNum int, a Attachment) (ResolutionFile, error) {
	return query.Mutate(ctx, ac.Query, ac.Toasts, query.Mutation[pendingUpload, ResolutionFile]{
		Resource:    ResourceResolution,
		Invalidates: []string{ResourceResolution, ResourceResolutions},
		Do: func(ctx context.Context, u pendingUpload) (ResolutionFile, error) {
			return s.api.UploadFile(ctx, u.resNum, u.file)
		},
		Success: "File uploaded successfully",
		Failure: notify.Failure("upload", "File"),
	}, pendingUpload{resNum: resNum, file: a})
}

func (s *Service) RemoveFile(ctx context.Context, ac *appctx.Context, fileID int) error {
	return s.removeAttachment(ctx, ac, fileID, s.api.DeleteFile, "File")
}

func (s *Service) AttachSupp(ctx context.Context, ac *appctx.Context, resNum int, a Attachment) (SuppDoc, error) {
	return query.Mutate(ctx, ac.Query, ac.Toasts, query.Mutation[pendingUpload, SuppDoc]{
		Resource:    ResourceResolution,
		Invalidates: []string{ResourceResolution, ResourceResolutions},
		Do: func(ctx context.Context, u pendingUpload) (SuppDoc, error) {
			return s.api.UploadSupp(ctx, u.resNum, u.file)
		},
		Success: "Supporting document uploaded successfully",
		Failure: notify.Failure("upload", "Supporting document"),
	}, pendingUpload{resNum: resNum, file: a})
}

func (s *Service) RemoveSupp(ctx context.Context, ac *appctx.Context, docID int) error {
	return s.removeAttachment(ctx, ac, docID, s.api.DeleteSupp, "Supporting document")
}

func (s *Service) removeAttachment(ctx context.Context, ac *appctx.Context, id int, do func(context.Context, int) error, what string) error {
	_, err := query.Mutate(ctx, ac.Query, ac.Toasts, query.Mutation[int, struct{}]{
		Resource:    ResourceResolution,
		Invalidates: []string{ResourceResolution, ResourceResolutions},
		Do: func(ctx context.Context, id int) (struct{}, error) {
			return struct{}{}, do(ctx, id)
		},
		Success: notify.Text("deleted", what),
		Failure: notify.Failure("delete", what),
	}, id)
	return err
}
