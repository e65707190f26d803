package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/barangay/egov/internal/platform/apiclient"
	"github.com/labstack/echo/v4"
)

// Roles used by the console.
const (
	RoleAdmin     = "admin"
	RoleClerk     = "clerk"
	RoleSecretary = "secretary"
	RoleTreasurer = "treasurer"
	RoleWaste     = "waste"
	RoleHealth    = "health"
	RoleResident  = "resident"
)

// RequireRole returns middleware that checks if the user has at least one of the specified roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, _ := SessionFromContext(c.Request().Context())
			for _, required := range roles {
				if s.HasRole(required) {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// ForwardToken is the token source for backend clients: it forwards the bearer
// token of the session carried by ctx.
func ForwardToken() apiclient.TokenSource {
	return apiclient.TokenFunc(func(ctx context.Context) (string, bool) {
		s, ok := SessionFromContext(ctx)
		if !ok || s.Token == "" {
			return "", false
		}
		return s.Token, true
	})
}

// StaticToken is a token source for CLI use, where there is no request session.
func StaticToken(token string) apiclient.TokenSource {
	return apiclient.TokenFunc(func(ctx context.Context) (string, bool) {
		if s, ok := SessionFromContext(ctx); ok && s.Token != "" {
			return s.Token, true
		}
		return token, token != ""
	})
}
