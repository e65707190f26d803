package profiling

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/auth"
	"github.com/barangay/egov/internal/platform/listview"
)

type Handler struct {
	svc *Service
	now func() time.Time
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/profiling", auth.RequireRole(auth.RoleAdmin, auth.RoleSecretary, auth.RoleClerk, auth.RoleHealth))
	g.GET("/residents", h.ListResidents)
	g.GET("/residents/:id", h.GetResident)
}

// ResidentView is a resident with the derived display fields.
type ResidentView struct {
	Resident
	FullName string `json:"full_name"`
	Age      *int   `json:"age"`
}

func (h *Handler) view(r Resident) ResidentView {
	v := ResidentView{Resident: r, FullName: r.FullName()}
	if age := r.Age(h.now()); age >= 0 {
		v.Age = &age
	}
	return v
}

// ListResidents pages with ?page_size= as the accumulated window.
func (h *Handler) ListResidents(c echo.Context) error {
	f := listview.FilterFromContext(c)
	if err := f.Validate(); err != nil {
		return err
	}
	p := listview.PagerFromContext(c, listview.ModeLoadMore, PageStep)
	s := h.svc.Residents(c.Request().Context(), appctx.FromEcho(c), f, p)
	views := make([]ResidentView, 0, len(s.Items))
	for _, r := range s.Items {
		views = append(views, h.view(r))
	}
	return appctx.Respond(c, http.StatusOK, listview.State[ResidentView]{
		Items:     views,
		Total:     s.Total,
		Page:      s.Page,
		PageSize:  s.PageSize,
		Mode:      s.Mode,
		HasMore:   s.HasMore,
		Empty:     s.Empty,
		IsLoading: s.IsLoading,
		IsError:   s.IsError,
		Error:     s.Error,
		Filter:    s.Filter,
	})
}

func (h *Handler) GetResident(c echo.Context) error {
	r, err := h.svc.Resident(c.Request().Context(), appctx.FromEcho(c), c.Param("id"))
	if err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusOK, h.view(r))
}
