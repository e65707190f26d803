// Package appctx carries the per-request application context: the caller's
// session, the toast center collecting notifications for this request, the
// caller's query cache and a request-scoped logger. It is built once per gateway
// request (or once per CLI run) and passed explicitly to feature services.
package appctx

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/barangay/egov/internal/platform/auth"
	"github.com/barangay/egov/internal/platform/notify"
	"github.com/barangay/egov/internal/platform/query"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type contextKey struct{}

const echoKey = "appctx"

// Context is the explicit replacement for process-wide singletons.
type Context struct {
	Session auth.Session
	Toasts  *notify.Center
	Query   *query.Client
	Logger  zerolog.Logger
}

// New builds a Context. A nil toast center gets a fresh one with the default TTL.
func New(s auth.Session, toasts *notify.Center, q *query.Client, logger zerolog.Logger) *Context {
	if toasts == nil {
		toasts = notify.NewCenter(logger)
	}
	return &Context{Session: s, Toasts: toasts, Query: q, Logger: logger}
}

// With stores ac on ctx.
func With(ctx context.Context, ac *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

// From returns the Context stored on ctx.
func From(ctx context.Context) (*Context, bool) {
	ac, ok := ctx.Value(contextKey{}).(*Context)
	return ac, ok
}

// Principal identifies whose query cache a session reads from. Two sessions of
// one user with different bearer tokens get different caches, so a revoked
// token is never answered from a cache filled under a valid one.
func Principal(s auth.Session) string {
	if s.Token == "" {
		return s.UserID
	}
	sum := sha256.Sum256([]byte(s.Token))
	return s.UserID + "#" + hex.EncodeToString(sum[:8])
}

// Middleware builds a Context for every request. It must run after the auth
// middleware so the session is available.
func Middleware(caches *query.Clients, logger zerolog.Logger, toastTTL time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, _ := auth.SessionFromContext(c.Request().Context())
			rid, _ := c.Get("request_id").(string)
			l := logger.With().Str("request_id", rid).Str("user_id", s.UserID).Logger()

			ac := New(s, notify.NewCenter(l, notify.WithTTL(toastTTL)), caches.For(Principal(s)), l)
			c.Set(echoKey, ac)
			c.SetRequest(c.Request().WithContext(With(c.Request().Context(), ac)))
			return next(c)
		}
	}
}

// FromEcho returns the request's Context. Handlers registered behind
// Middleware always have one; outside it a throwaway Context is returned.
func FromEcho(c echo.Context) *Context {
	if ac, ok := c.Get(echoKey).(*Context); ok {
		return ac
	}
	if ac, ok := From(c.Request().Context()); ok {
		return ac
	}
	s, _ := auth.SessionFromContext(c.Request().Context())
	return New(s, nil, query.NewClient(), zerolog.Nop())
}

// Envelope is the body of every gateway response.
type Envelope struct {
	Data          any            `json:"data"`
	Notifications []notify.Toast `json:"notifications"`
}

// Respond writes data together with the toasts raised while handling the request.
func Respond(c echo.Context, status int, data any) error {
	ac := FromEcho(c)
	toasts := ac.Toasts.Drain()
	if toasts == nil {
		toasts = []notify.Toast{}
	}
	if status == http.StatusNoContent {
		status = http.StatusOK
	}
	return c.JSON(status, Envelope{Data: data, Notifications: toasts})
}
