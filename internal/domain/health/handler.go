package health

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/auth"
	"github.com/barangay/egov/internal/platform/listview"
)

// Roles may manage inventory and child health records.
var Roles = []string{auth.RoleAdmin, auth.RoleHealth}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes adds the inventory routes. Child health records are created
// through the wizard routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/health", auth.RequireRole(Roles...))
	g.GET("/inventory", h.GetInventory)
	g.GET("/medicines", h.ListMedicines)
	g.DELETE("/medicines/:id", h.ArchiveMedicine)
	g.GET("/vaccines", h.ListVaccines)
}

func (h *Handler) GetInventory(c echo.Context) error {
	inv, err := h.svc.Inventory(c.Request().Context(), appctx.FromEcho(c))
	if err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusOK, inv)
}

func (h *Handler) ListMedicines(c echo.Context) error {
	f := listview.FilterFromContext(c)
	if err := f.Validate(); err != nil {
		return err
	}
	p := listview.PagerFromContext(c, listview.ModeReplace, 10)
	return appctx.Respond(c, http.StatusOK, h.svc.Medicines(c.Request().Context(), appctx.FromEcho(c), f, p))
}

func (h *Handler) ListVaccines(c echo.Context) error {
	f := listview.FilterFromContext(c)
	if err := f.Validate(); err != nil {
		return err
	}
	p := listview.PagerFromContext(c, listview.ModeReplace, 10)
	return appctx.Respond(c, http.StatusOK, h.svc.Vaccines(c.Request().Context(), appctx.FromEcho(c), f, p))
}

// ArchiveMedicine archives a stock entry. Permanent deletion is not offered.
func (h *Handler) ArchiveMedicine(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid medicine id")
	}
	ac := appctx.FromEcho(c)
	acts := listview.Actions{
		Archive: func(ctx context.Context, _ string) error { return h.svc.ArchiveMedicine(ctx, ac, id) },
	}
	action := listview.ActionFromDelete(c)
	if err := acts.Run(c.Request().Context(), action, c.Param("id"), listview.ConfirmedFromContext(c)); err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusOK, map[string]any{"minv_id": id, "action": action})
}
