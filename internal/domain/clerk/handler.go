package clerk

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/clerk", auth.RequireRole(auth.RoleAdmin, auth.RoleClerk, auth.RoleResident))
	g.GET("/requests", h.ListRequests)
	g.POST("/requests/:id/cancel", h.CancelRequest)
}

// residentScope returns the resident whose requests the caller may see.
// Residents only ever see their own; staff pick one with ?rp=.
func residentScope(c echo.Context, s auth.Session) (string, error) {
	if s.IsStaff() || s.HasRole(auth.RoleAdmin) || s.HasRole(auth.RoleClerk) {
		return c.QueryParam("rp"), nil
	}
	if s.ResidentID == "" {
		return "", echo.NewHTTPError(http.StatusForbidden, "no resident profile linked to this account")
	}
	return s.ResidentID, nil
}

func (h *Handler) ListRequests(c echo.Context) error {
	ac := appctx.FromEcho(c)
	rp, err := residentScope(c, ac.Session)
	if err != nil {
		return err
	}
	reqs, err := h.svc.Requests(c.Request().Context(), ac, rp, c.QueryParam("status"))
	if err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusOK, reqs)
}

func (h *Handler) CancelRequest(c echo.Context) error {
	ac := appctx.FromEcho(c)
	rp, err := residentScope(c, ac.Session)
	if err != nil {
		return err
	}
	id := c.Param("id")
	if err := h.svc.Cancel(c.Request().Context(), ac, rp, id); err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusOK, map[string]string{"cr_id": id, "req_status": StatusCancelled})
}
