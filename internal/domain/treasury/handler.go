package treasury

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
	g := api.Group("/treasury", auth.RequireRole(auth.RoleAdmin, auth.RoleTreasurer))
	g.GET("/plans", h.ListPlans)
	g.GET("/plans/:id", h.GetPlan)
	g.DELETE("/plans/:id", h.DeletePlan)
	g.POST("/plans/:id/restore", h.RestorePlan)
	g.GET("/plans/:id/files", h.ListFiles)
	g.DELETE("/files/:id", h.DeleteFile)
}

func (h *Handler) ListPlans(c echo.Context) error {
	f := listview.FilterFromContext(c)
	if err := f.Validate(); err != nil {
		return err
	}
	p := listview.PagerFromContext(c, listview.ModeReplace, 10)
	return appctx.Respond(c, http.StatusOK, h.svc.Plans(c.Request().Context(), appctx.FromEcho(c), f, p))
}

func (h *Handler) GetPlan(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	s, err := h.svc.Plan(c.Request().Context(), appctx.FromEcho(c), id)
	if err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusOK, s)
}

// DeletePlan archives the plan, or deletes it with ?permanent=true.
func (h *Handler) DeletePlan(c echo.Context) error {
	return h.rowAction(c, listview.ActionFromDelete(c))
}

func (h *Handler) RestorePlan(c echo.Context) error {
	return h.rowAction(c, listview.ActionRestore)
}

func (h *Handler) rowAction(c echo.Context, action listview.Action) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ac := appctx.FromEcho(c)
	acts := listview.Actions{
		Archive: func(ctx context.Context, _ string) error { return h.svc.Archive(ctx, ac, id) },
		Restore: func(ctx context.Context, _ string) error { return h.svc.Restore(ctx, ac, id) },
		Delete:  func(ctx context.Context, _ string) error { return h.svc.Delete(ctx, ac, id) },
	}
	if err := acts.Run(c.Request().Context(), action, c.Param("id"), listview.ConfirmedFromContext(c)); err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusOK, map[string]any{"plan_id": id, "action": action})
}

func (h *Handler) ListFiles(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	r := h.svc.Files(c.Request().Context(), appctx.FromEcho(c), id)
	if r.Err != nil {
		return r.Err
	}
	return appctx.Respond(c, http.StatusOK, r.Data.Results)
}

func (h *Handler) DeleteFile(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := listview.Confirm(listview.ActionDelete, listview.ConfirmedFromContext(c)); err != nil {
		return err
	}
	if err := h.svc.DeleteFile(c.Request().Context(), appctx.FromEcho(c), id); err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusOK, map[string]int{"bpf_id": id})
}

func pathID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
