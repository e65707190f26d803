package council

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/auth"
	"github.com/barangay/egov/internal/platform/listview"
)

// maxUpload caps a single attachment read from a gateway request.
const maxUpload = 10 << 20

// Roles may manage resolutions, through the routes or the wizard.
var Roles = []string{auth.RoleAdmin, auth.RoleSecretary}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/council", auth.RequireRole(Roles...))
	g.GET("/resolutions", h.ListResolutions)
	g.POST("/resolutions", h.CreateResolution)
	g.GET("/resolutions/:id", h.GetResolution)
	g.PUT("/resolutions/:id", h.UpdateResolution)
	g.DELETE("/resolutions/:id", h.DeleteResolution)
	g.POST("/resolutions/:id/restore", h.RestoreResolution)
	g.POST("/resolutions/:id/files", h.AttachFile)
	g.DELETE("/files/:id", h.RemoveFile)
	g.POST("/resolutions/:id/supp", h.AttachSupp)
	g.DELETE("/supp/:id", h.RemoveSupp)
}

func (h *Handler) ListResolutions(c echo.Context) error {
	f := listview.FilterFromContext(c)
	if err := f.Validate(); err != nil {
		return err
	}
	p := listview.PagerFromContext(c, listview.ModeReplace, 10)
	return appctx.Respond(c, http.StatusOK, h.svc.Resolutions(c.Request().Context(), appctx.FromEcho(c), f, p))
}

func (h *Handler) GetResolution(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	r := h.svc.Resolution(c.Request().Context(), appctx.FromEcho(c), id)
	if r.Err != nil {
		return r.Err
	}
	return appctx.Respond(c, http.StatusOK, r.Data)
}

func (h *Handler) CreateResolution(c echo.Context) error {
	var f ResolutionForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	r, err := h.svc.Create(c.Request().Context(), appctx.FromEcho(c), f)
	if err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusCreated, r)
}

func (h *Handler) UpdateResolution(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var f ResolutionForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	r, err := h.svc.Update(c.Request().Context(), appctx.FromEcho(c), id, f)
	if err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusOK, r)
}

func (h *Handler) DeleteResolution(c echo.Context) error {
	return h.rowAction(c, listview.ActionFromDelete(c))
}

func (h *Handler) RestoreResolution(c echo.Context) error {
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
	return appctx.Respond(c, http.StatusOK, map[string]any{"res_num": id, "action": action})
}

func (h *Handler) AttachFile(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := attachmentFromRequest(c)
	if err != nil {
		return err
	}
	rf, err := h.svc.AttachFile(c.Request().Context(), appctx.FromEcho(c), id, a)
	if err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusCreated, rf)
}

func (h *Handler) RemoveFile(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.RemoveFile(c.Request().Context(), appctx.FromEcho(c), id); err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusOK, map[string]int{"rf_id": id})
}

func (h *Handler) AttachSupp(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := attachmentFromRequest(c)
	if err != nil {
		return err
	}
	sd, err := h.svc.AttachSupp(c.Request().Context(), appctx.FromEcho(c), id, a)
	if err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusCreated, sd)
}

func (h *Handler) RemoveSupp(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.RemoveSupp(c.Request().Context(), appctx.FromEcho(c), id); err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusOK, map[string]int{"rsd_id": id})
}

// attachmentFromRequest reads the multipart "file" part of the request.
func attachmentFromRequest(c echo.Context) (Attachment, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return Attachment{}, echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if fh.Size > maxUpload {
		return Attachment{}, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file is too large")
	}
	src, err := fh.Open()
	if err != nil {
		return Attachment{}, err
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, maxUpload))
	if err != nil {
		return Attachment{}, err
	}
	return Attachment{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data}, nil
}

func pathID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
