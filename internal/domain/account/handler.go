package account

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/barangay/egov/internal/platform/appctx"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes adds phone verification. Any signed-in user may verify a
// phone number.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/account")
	g.POST("/phone-verification", h.SendCode)
	g.POST("/phone-verification/verify", h.VerifyCode)
}

func (h *Handler) SendCode(c echo.Context) error {
	var r SendRequest
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sent, err := h.svc.SendCode(c.Request().Context(), appctx.FromEcho(c), r)
	if err != nil {
		var cd *CooldownError
		if errors.As(err, &cd) {
			c.Response().Header().Set("Retry-After", strconv.Itoa(seconds(cd.RetryAfter)))
		}
		return err
	}
	return appctx.Respond(c, http.StatusAccepted, sent)
}

func (h *Handler) VerifyCode(c echo.Context) error {
	var r VerifyRequest
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	v, err := h.svc.VerifyCode(c.Request().Context(), appctx.FromEcho(c), r)
	if err != nil {
		return err
	}
	return appctx.Respond(c, http.StatusOK, v)
}
