package clerk

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/barangay/egov/internal/platform/apiclient"
	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/listview"
	"github.com/barangay/egov/internal/platform/notify"
	"github.com/barangay/egov/internal/platform/query"
)

// Error is a request-tracking failure with its HTTP status.
type Error struct {
	Code int
	Msg  string
}

func (e *Error) Error() string   { return e.Msg }
func (e *Error) StatusCode() int { return e.Code }

var (
	ErrRequestNotFound = &Error{Code: http.StatusNotFound, Msg: "request not found"}
	ErrNotCancellable  = &Error{Code: http.StatusConflict, Msg: "only pending requests can be cancelled"}
)

type Service struct {
	api *API
}

func NewService(api *API) *Service {
	return &Service{api: api}
}

func (s *Service) certificates(ctx context.Context, ac *appctx.Context, residentID string) query.Result[apiclient.Page[Certificate]] {
	return query.Fetch(ctx, ac.Query, query.NewKey(ResourceCertificates, residentQuery(residentID)), func(ctx context.Context) (apiclient.Page[Certificate], error) {
		return s.api.ListCertificates(ctx, residentID)
	})
}

func (s *Service) permits(ctx context.Context, ac *appctx.Context, residentID string) query.Result[apiclient.Page[BusinessPermit]] {
	return query.Fetch(ctx, ac.Query, query.NewKey(ResourcePermits, residentQuery(residentID)), func(ctx context.Context) (apiclient.Page[BusinessPermit], error) {
		return s.api.ListPermits(ctx, residentID)
	})
}

// Requests loads a resident's certificate and business permit requests
// together and merges them newest first.
func (s *Service) Requests(ctx context.Context, ac *appctx.Context, residentID, status string) ([]Request, error) {
	var (
		certs   []Certificate
		permits []BusinessPermit
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r := s.certificates(gctx, ac, residentID)
		certs = r.Data.Results
		return r.Err
	})
	g.Go(func() error {
		r := s.permits(gctx, ac, residentID)
		permits = r.Data.Results
		return r.Err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Merge(certs, permits, status), nil
}

// Cancel cancels a pending certificate request. The cached row shows
// "Cancelled" until the backend confirms.
func (s *Service) Cancel(ctx context.Context, ac *appctx.Context, residentID, id string) error {
	r := s.certificates(ctx, ac, residentID)
	if r.Err != nil {
		return r.Err
	}
	found := false
	for _, c := range r.Data.Results {
		if c.ID == id {
			if !IsPending(c.Status) {
				return ErrNotCancellable
			}
			found = true
			break
		}
	}
	if !found {
		return ErrRequestNotFound
	}

	_, err := query.Mutate(ctx, ac.Query, ac.Toasts, query.Mutation[string, struct{}]{
		Resource: ResourceCertificates,
		Optimistic: func(c *query.Client, id string) {
			listview.PatchRow(c, ResourceCertificates, func(cr Certificate) bool { return cr.ID == id }, func(cr Certificate) Certificate {
				cr.Status = StatusCancelled
				return cr
			})
		},
		Do: func(ctx context.Context, id string) (struct{}, error) {
			return struct{}{}, s.api.CancelCertificate(ctx, id)
		},
		Success: "Request cancelled successfully",
		Failure: notify.Failure("cancel", "Request"),
	}, id)
	return err
}
