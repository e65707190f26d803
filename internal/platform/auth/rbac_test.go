package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name    string
		roles   []string
		wantErr bool
	}{
		{"allowed", []string{"waste"}, false},
		{"admin bypass", []string{"admin"}, false},
		{"denied", []string{"health"}, true},
		{"no session", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.roles != nil {
				req = req.WithContext(WithSession(req.Context(), Session{UserID: "u", Roles: tt.roles}))
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			h := RequireRole(RoleWaste, RoleClerk)(func(c echo.Context) error {
				return c.String(http.StatusOK, "ok")
			})
			err := h(c)
			if tt.wantErr {
				expectStatus(t, err, http.StatusForbidden)
				return
			}
			if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestForwardToken(t *testing.T) {
	ts := ForwardToken()
	if _, ok := ts.Token(context.Background()); ok {
		t.Error("expected no token without a session")
	}
	ctx := WithSession(context.Background(), Session{UserID: "u", Token: "abc"})
	tok, ok := ts.Token(ctx)
	if !ok || tok != "abc" {
		t.Errorf("expected forwarded token, got %q %v", tok, ok)
	}
}

func TestStaticToken_PrefersSession(t *testing.T) {
	ts := StaticToken("cli-token")
	if tok, _ := ts.Token(context.Background()); tok != "cli-token" {
		t.Errorf("expected static token, got %q", tok)
	}
	ctx := WithSession(context.Background(), Session{Token: "session-token"})
	if tok, _ := ts.Token(ctx); tok != "session-token" {
		t.Errorf("expected session token, got %q", tok)
	}
	if _, ok := StaticToken("").Token(context.Background()); ok {
		t.Error("empty static token should report false")
	}
}

func TestUserIDFromContext(t *testing.T) {
	if got := UserIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty user id, got %q", got)
	}
	ctx := WithSession(context.Background(), Session{UserID: "u-1", Roles: []string{"clerk"}})
	if got := UserIDFromContext(ctx); got != "u-1" {
		t.Errorf("expected u-1, got %q", got)
	}
	if got := RolesFromContext(ctx); len(got) != 1 || got[0] != "clerk" {
		t.Errorf("unexpected roles %v", got)
	}
}
