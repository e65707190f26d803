package complaint

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/auth"
	"github.com/barangay/egov/internal/platform/query"
)

func newComplaintServer(t *testing.T, roles ...string) (*echo.Echo, *fakeBackend) {
	t.Helper()
	svc, b, _ := newTestService(t)
	e := echo.New()
	e.HTTPErrorHandler = appctx.ErrorHandler(zerolog.Nop())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := auth.Session{UserID: "u-1", StaffID: "ST-1", Roles: roles}
			c.SetRequest(c.Request().WithContext(auth.WithSession(c.Request().Context(), s)))
			return next(c)
		}
	})
	e.Use(appctx.Middleware(query.NewClients(), zerolog.Nop(), time.Second))
	NewHandler(svc).RegisterRoutes(e.Group("/api/v1"))
	return e, b
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandler_ListResidents(t *testing.T) {
	e, b := newComplaintServer(t, auth.RoleSecretary)

	rec := get(e, "/api/v1/complaint/residents?search=santos")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data []ResidentOption `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 1 || body.Data[0].ID != "RP-1" {
		t.Errorf("unexpected residents %+v", body.Data)
	}

	// The directory is cached across requests.
	if rec := get(e, "/api/v1/complaint/residents"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if b.directoryHits != 1 {
		t.Errorf("expected one directory fetch, got %d", b.directoryHits)
	}
}

func TestHandler_GetResident(t *testing.T) {
	e, _ := newComplaintServer(t, auth.RoleClerk)

	rec := get(e, "/api/v1/complaint/residents/RP-2")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data ResidentOption `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Name != "Jose Rizal Mercado" {
		t.Errorf("unexpected resident %+v", body.Data)
	}

	if rec := get(e, "/api/v1/complaint/residents/RP-404"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown resident: expected 404, got %d", rec.Code)
	}
}

func TestHandler_ComplaintRoles(t *testing.T) {
	e, _ := newComplaintServer(t, auth.RoleWaste)
	if rec := get(e, "/api/v1/complaint/residents"); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}
