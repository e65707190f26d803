package complaint

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/barangay/egov/internal/platform/apiclient"
	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/query"
)

type Error struct {
	Code int
	Msg  string
}

func (e *Error) Error() string   { return e.Msg }
func (e *Error) StatusCode() int { return e.Code }

var ErrResidentNotFound = &Error{Code: http.StatusNotFound, Msg: "resident not found"}

// Service holds the complaint queries and mutations.
type Service struct {
	api *API
	now func() time.Time
}

func NewService(api *API) *Service {
	return &Service{api: api, now: time.Now}
}

func (s *Service) directory(ctx context.Context, ac *appctx.Context) ([]ResidentOption, error) {
	r := query.Fetch(ctx, ac.Query, query.NewKey(ResourceResidents, nil), func(ctx context.Context) (apiclient.Page[ResidentOption], error) {
		return s.api.ListResidents(ctx)
	})
	return r.Data.Results, r.Err
}

// Residents returns the directory entries whose name or address contains
// search, ignoring case.
func (s *Service) Residents(ctx context.Context, ac *appctx.Context, search string) ([]ResidentOption, error) {
	all, err := s.directory(ctx, ac)
	if err != nil {
		return nil, err
	}
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return all, nil
	}
	out := []ResidentOption{}
	for _, r := range all {
		if strings.Contains(strings.ToLower(r.Name), search) || strings.Contains(strings.ToLower(r.Address), search) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Service) Resident(ctx context.Context, ac *appctx.Context, id string) (ResidentOption, error) {
	all, err := s.directory(ctx, ac)
	if err != nil {
		return ResidentOption{}, err
	}
	for _, r := range all {
		if r.ID == id {
			return r, nil
		}
	}
	return ResidentOption{}, ErrResidentNotFound
}

// Fill copies the selected resident's details into p. A person without a
// resident link is left as entered.
func (s *Service) Fill(ctx context.Context, ac *appctx.Context, p *Person) error {
	if p.ResidentID == "" {
		return nil
	}
	r, err := s.Resident(ctx, ac, p.ResidentID)
	if err != nil {
		return err
	}
	p.Name = r.Name
	p.Gender = r.Gender
	p.Address = r.Address
	if r.Age > 0 {
		p.Age = strconv.Itoa(r.Age)
	}
	if r.Contact != "" {
		p.Contact = r.Contact
	}
	return nil
}

// File validates and submits a complaint.
func (s *Service) File(ctx context.Context, ac *appctx.Context, f Filing) (Complaint, error) {
	if err := f.Validate(s.now()).Err(); err != nil {
		return Complaint{}, err
	}
	return query.Mutate(ctx, ac.Query, ac.Toasts, query.Mutation[Filing, Complaint]{
		Resource: ResourceComplaints,
		Do:       s.api.Create,
		Success:  "Complaint filed successfully",
		Failure:  "Failed to file complaint. Please try again.",
	}, f)
}
