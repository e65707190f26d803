package waste

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/barangay/egov/internal/platform/apiclient"
	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/auth"
	"github.com/barangay/egov/internal/platform/query"
)

// fakeBackend is an in-memory stand-in for the waste endpoints.
type fakeBackend struct {
	mu        sync.Mutex
	trucks    []Truck
	personnel []Personnel
	nextID    int
	listCalls int
	created   []TruckForm
	failWrite bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		trucks: []Truck{
			{ID: 1, PlateNum: "XYZ-789", Model: "Isuzu Elf", Capacity: "4", Status: StatusOperational, LastMaint: "2024-01-05"},
			{ID: 2, PlateNum: "LMN-456", Model: "Fuso Canter", Capacity: "6", Status: StatusMaintenance, LastMaint: "2023-12-20"},
		},
		personnel: []Personnel{
			{ID: 10, FullName: "Juan Dela Cruz", Position: PositionDriver},
			{ID: 11, FullName: "Pedro Santos", Position: PositionLoader},
		},
		nextID: 3,
	}
}

func (b *fakeBackend) listCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listCalls
}

func (b *fakeBackend) find(id int) int {
	for i, t := range b.trucks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (b *fakeBackend) routes() *echo.Echo {
	e := echo.New()

	e.GET("/waste/waste-trucks/", func(c echo.Context) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.listCalls++
		archived := c.QueryParam("is_archive") == "true"
		out := []Truck{}
		for _, t := range b.trucks {
			if t.IsArchive == archived {
				out = append(out, t)
			}
		}
		// The backend answers with a bare array when no page is requested.
		if c.QueryParam("page") == "" {
			return c.JSON(http.StatusOK, out)
		}
		return c.JSON(http.StatusOK, map[string]any{"results": out, "count": len(out), "next": nil, "previous": nil})
	})

	e.POST("/waste/waste-trucks/", func(c echo.Context) error {
		var f TruckForm
		if err := c.Bind(&f); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"detail": "bad body"})
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, t := range b.trucks {
			if t.PlateNum == f.PlateNum {
				return c.JSON(http.StatusBadRequest, map[string][]string{"truck_plate_num": {"truck with this plate already exists."}})
			}
		}
		b.created = append(b.created, f)
		t := Truck{ID: b.nextID, PlateNum: f.PlateNum, Model: f.Model, Capacity: f.Capacity, Status: f.Status, LastMaint: f.LastMaint}
		b.nextID++
		b.trucks = append(b.trucks, t)
		return c.JSON(http.StatusCreated, t)
	})

	e.PUT("/waste/waste-trucks/:id/", func(c echo.Context) error {
		id, _ := strconv.Atoi(c.Param("id"))
		var f TruckForm
		_ = c.Bind(&f)
		b.mu.Lock()
		defer b.mu.Unlock()
		i := b.find(id)
		if i < 0 {
			return c.JSON(http.StatusNotFound, map[string]string{"detail": "Not found."})
		}
		t := &b.trucks[i]
		t.PlateNum, t.Model, t.Capacity, t.Status, t.LastMaint = f.PlateNum, f.Model, f.Capacity, f.Status, f.LastMaint
		return c.JSON(http.StatusOK, *t)
	})

	e.DELETE("/waste/waste-trucks/:id/", func(c echo.Context) error {
		id, _ := strconv.Atoi(c.Param("id"))
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.failWrite {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "database unavailable"})
		}
		i := b.find(id)
		if i < 0 {
			return c.JSON(http.StatusNotFound, map[string]string{"detail": "Not found."})
		}
		if c.QueryParam("permanent") == "true" {
			b.trucks = append(b.trucks[:i:i], b.trucks[i+1:]...)
		} else {
			b.trucks[i].IsArchive = true
		}
		return c.NoContent(http.StatusNoContent)
	})

	e.POST("/waste/waste-trucks/:id/restore/", func(c echo.Context) error {
		id, _ := strconv.Atoi(c.Param("id"))
		b.mu.Lock()
		defer b.mu.Unlock()
		i := b.find(id)
		if i < 0 {
			return c.JSON(http.StatusNotFound, map[string]string{"detail": "Not found."})
		}
		b.trucks[i].IsArchive = false
		return c.JSON(http.StatusOK, map[string]string{"message": "restored"})
	})

	e.GET("/waste/waste-personnel/", func(c echo.Context) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		pos := c.QueryParam("position")
		out := []Personnel{}
		for _, p := range b.personnel {
			if pos == "" || p.Position == pos {
				out = append(out, p)
			}
		}
		return c.JSON(http.StatusOK, out)
	})
	return e
}

func newTestService(t *testing.T) (*Service, *fakeBackend, *appctx.Context) {
	t.Helper()
	b := newFakeBackend()
	srv := httptest.NewServer(b.routes())
	t.Cleanup(srv.Close)

	client, err := apiclient.New(srv.URL, "waste")
	if err != nil {
		t.Fatalf("apiclient.New: %v", err)
	}
	ac := appctx.New(auth.Session{UserID: "u1", Roles: []string{auth.RoleWaste}}, nil, query.NewClient(), zerolog.Nop())
	return NewService(NewAPI(client)), b, ac
}
