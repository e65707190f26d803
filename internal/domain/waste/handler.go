package waste

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/auth"
	"github.com/barangay/egov/internal/platform/listview"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/waste", auth.RequireRole(auth.RoleAdmin, auth.RoleWaste))
	g.GET("/trucks", h.ListTrucks)
	g.POST("/trucks", h.CreateTruck)
	g.PUT("/trucks/:id", h.UpdateTruck)
	g.DELETE("/trucks/:id", h.DeleteTruck)
	g.POST("/trucks/:id/restore", h.RestoreTruck)
	g.GET("/personnel", h.ListPersonnel)
	g.GET("/fleet", h.GetFleet)
}

func (h *Handler) ListTrucks(c echo.Context) error {
	f := listview.FilterFromContext(c)
	if err := f.Validate(); err != nil {
		return err
	}
	p := listview.PagerFromContext(c, listview.ModeReplace, 10)
	s := h.svc.Trucks(c.Request().Context(), appctx.FromEcho(c), f, p)
	return appctx.Respond(c, http.StatusOK, s)
}

func (h *Handler) CreateTruck(c echo.Context) error {
	var f TruckForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	t, err := h.svc.CreateTruck(c.Request().Context(), appctx.FromEcho(c), f)
	if err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusCreated, t)
}

func (h *Handler) UpdateTruck(c echo.Context) error {
	id, err := truckID(c)
	if err != nil {
		return err
	}
	var f TruckForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	t, err := h.svc.UpdateTruck(c.Request().Context(), appctx.FromEcho(c), id, f)
	if err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusOK, t)
}

// DeleteTruck archives the truck, or removes it for good with ?permanent=true.
func (h *Handler) DeleteTruck(c echo.Context) error {
	return h.rowAction(c, listview.ActionFromDelete(c))
}

func (h *Handler) RestoreTruck(c echo.Context) error {
	return h.rowAction(c, listview.ActionRestore)
}

func (h *Handler) rowAction(c echo.Context, action listview.Action) error {
	id, err := truckID(c)
	if err != nil {
		return err
	}
	ac := appctx.FromEcho(c)
	acts := listview.Actions{
		Archive: func(ctx context.Context, _ string) error { return h.svc.ArchiveTruck(ctx, ac, id) },
		Restore: func(ctx context.Context, _ string) error { return h.svc.RestoreTruck(ctx, ac, id) },
		Delete:  func(ctx context.Context, _ string) error { return h.svc.DeleteTruck(ctx, ac, id) },
	}
	if err := acts.Run(c.Request().Context(), action, c.Param("id"), listview.ConfirmedFromContext(c)); err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusOK, map[string]any{"truck_id": id, "action": action})
}

func (h *Handler) ListPersonnel(c echo.Context) error {
	r := h.svc.Personnel(c.Request().Context(), appctx.FromEcho(c), c.QueryParam("position"))
	if r.Err != nil {
		return r.Err
	}
	return appctx.Respond(c, http.StatusOK, r.Data)
}

func (h *Handler) GetFleet(c echo.Context) error {
	f, err := h.svc.Fleet(c.Request().Context(), appctx.FromEcho(c))
	if err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusOK, f)
}

func truckID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid truck id")
	}
	return id, nil
}
