package wizard

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/barangay/egov/internal/platform/appctx"
)

type Handler struct {
	mgr *Manager
}

func NewHandler(mgr *Manager) *Handler {
	return &Handler{mgr: mgr}
}

// RegisterRoutes mounts the wizard endpoints. Each kind carries its own role
// list, checked when a session is started and on every later operation.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/wizards")
	g.GET("", h.ListSessions)
	g.GET("/kinds", h.ListKinds)
	g.POST("/:kind", h.StartSession)
	g.GET("/sessions/:id", h.GetSession)
	g.DELETE("/sessions/:id", h.DiscardSession)
	g.PATCH("/sessions/:id/draft", h.PatchDraft)
	g.POST("/sessions/:id/next", h.Next)
	g.POST("/sessions/:id/previous", h.Previous)
	g.POST("/sessions/:id/goto/:step", h.GoTo)
	g.POST("/sessions/:id/lists/:list", h.AddItem)
	g.DELETE("/sessions/:id/lists/:list/:item", h.RemoveItem)
	g.POST("/sessions/:id/submit", h.Submit)
}

func (h *Handler) ListKinds(c echo.Context) error {
	return appctx.Respond(c, http.StatusOK, h.mgr.Kinds(appctx.FromEcho(c)))
}

func (h *Handler) ListSessions(c echo.Context) error {
	ac := appctx.FromEcho(c)
	out, err := h.mgr.List(c.Request().Context(), ac)
	if err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusOK, out)
}

func (h *Handler) StartSession(c echo.Context) error {
	ac := appctx.FromEcho(c)
	p := Params{Mode: Mode(c.QueryParam("mode")), ID: c.QueryParam("id")}
	v, err := h.mgr.Start(c.Request().Context(), ac, c.Param("kind"), p)
	if err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusCreated, v)
}

func (h *Handler) GetSession(c echo.Context) error {
	v, err := h.mgr.Get(c.Request().Context(), appctx.FromEcho(c), c.Param("id"))
	if err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusOK, v)
}

func (h *Handler) DiscardSession(c echo.Context) error {
	if err := h.mgr.Discard(c.Request().Context(), appctx.FromEcho(c), c.Param("id")); err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusOK, map[string]string{"id": c.Param("id")})
}

func (h *Handler) PatchDraft(c echo.Context) error {
	patch, err := readBody(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	ac := appctx.FromEcho(c)
	v, err := h.mgr.Do(ctx, ac, c.Param("id"), func(f Flow) error {
		_, err := f.Apply(ctx, ac, patch)
		return err
	})
	if err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusOK, v)
}

func (h *Handler) Next(c echo.Context) error {
	return h.navigate(c, func(f Flow) error { return f.Next() })
}

func (h *Handler) Previous(c echo.Context) error {
	return h.navigate(c, func(f Flow) error { return f.Previous() })
}

func (h *Handler) GoTo(c echo.Context) error {
	step := c.Param("step")
	return h.navigate(c, func(f Flow) error { return f.GoTo(step) })
}

func (h *Handler) navigate(c echo.Context, op func(f Flow) error) error {
	v, err := h.mgr.Do(c.Request().Context(), appctx.FromEcho(c), c.Param("id"), op)
	if err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusOK, v)
}

func (h *Handler) AddItem(c echo.Context) error {
	item, err := readBody(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	ac := appctx.FromEcho(c)
	var itemID string
	v, err := h.mgr.Do(ctx, ac, c.Param("id"), func(f Flow) error {
		id, err := f.AddItem(ctx, ac, c.Param("list"), item)
		itemID = id
		return err
	})
	if err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusCreated, map[string]any{"item_id": itemID, "session": v})
}

func (h *Handler) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	ac := appctx.FromEcho(c)
	v, err := h.mgr.Do(ctx, ac, c.Param("id"), func(f Flow) error {
		return f.RemoveItem(ctx, ac, c.Param("list"), c.Param("item"))
	})
	if err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusOK, v)
}

func (h *Handler) Submit(c echo.Context) error {
	out, err := h.mgr.Submit(c.Request().Context(), appctx.FromEcho(c), c.Param("id"))
	if err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusCreated, out)
}

func readBody(c echo.Context) (json.RawMessage, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "unable to read request body")
	}
	if !json.Valid(body) {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "request body must be valid JSON")
	}
	return body, nil
}
