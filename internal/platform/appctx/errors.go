package appctx

import (
	"errors"
	"net/http"

	"github.com/barangay/egov/internal/platform/apiclient"
	"github.com/barangay/egov/internal/platform/notify"
	"github.com/barangay/egov/internal/platform/validate"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// StatusCoder is implemented by domain errors that map to an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// ErrorBody is the body of every gateway error response.
type ErrorBody struct {
	Error         string            `json:"error"`
	Fields        map[string]string `json:"fields,omitempty"`
	Notifications []notify.Toast    `json:"notifications"`
}

// StatusOf maps err to the HTTP status the gateway answers with.
func StatusOf(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	if errors.Is(err, validate.ErrValidation) {
		return http.StatusUnprocessableEntity
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	var ae *apiclient.APIError
	if errors.As(err, &ae) {
		if ae.StatusCode >= 400 && ae.StatusCode < 500 {
			return ae.StatusCode
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// ErrorHandler renders errors with the request's pending toasts attached, so a
// failed mutation still delivers its error toast.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := StatusOf(err)
		body := ErrorBody{Error: messageOf(err, status), Notifications: []notify.Toast{}}
		if f := validate.Fields(err); len(f) > 0 {
			body.Fields = f
		}
		if ac, ok := c.Get(echoKey).(*Context); ok {
			if toasts := ac.Toasts.Drain(); toasts != nil {
				body.Notifications = toasts
			}
		}

		if status >= 500 {
			logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("request failed")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}

func messageOf(err error, status int) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			return msg
		}
		return http.StatusText(he.Code)
	}
	if errors.Is(err, validate.ErrValidation) {
		return "Please correct the highlighted fields."
	}
	if msg := apiclient.UserMessage(err, ""); msg != "" {
		return msg
	}
	if status >= 500 {
		return http.StatusText(status)
	}
	return err.Error()
}
