package complaint

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/auth"
)

// Roles may use the resident directory and file complaints.
var Roles = []string{auth.RoleAdmin, auth.RoleSecretary, auth.RoleClerk, auth.RoleResident}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes adds the resident directory used by the filing wizard. Filing
// itself goes through the wizard routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/complaint", auth.RequireRole(Roles...))
	g.GET("/residents", h.ListResidents)
	g.GET("/residents/:id", h.GetResident)
}

func (h *Handler) ListResidents(c echo.Context) error {
	ac := appctx.FromEcho(c)
	rs, err := h.svc.Residents(c.Request().Context(), ac, c.QueryParam("search"))
	if err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusOK, rs)
}

func (h *Handler) GetResident(c echo.Context) error {
	ac := appctx.FromEcho(c)
	r, err := h.svc.Resident(c.Request().Context(), ac, c.Param("id"))
	if err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusOK, r)
}
