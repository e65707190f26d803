package council

import (
	"encoding/json"
	"io"
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

type fakeBackend struct {
	mu          sync.Mutex
	resolutions map[int]*Resolution
	nextID      int
	uploads     []string
	deletedRF   []int
	deletedRSD  []int
	puts        []map[string]any
	failArchive bool
	failUpload  bool
}

func newFakeBackend() *fakeBackend {
	gpr := 7
	return &fakeBackend{
		resolutions: map[int]*Resolution{
			1: {ID: 1, Title: "Barangay clean-up drive", DateApproved: "2024-01-15", AreaOfFocus: []string{AreaWaste}},
			2: {
				ID: 2, Title: "Women's desk funding", DateApproved: "2024-02-01", AreaOfFocus: []string{AreaGAD, AreaFinance}, GprID: &gpr,
				Files: []ResolutionFile{{ID: 50, ResNum: 2, Name: "signed.pdf", URL: "https://files.example/signed.pdf"}},
			},
		},
		nextID: 3,
	}
}

func (b *fakeBackend) list(archived bool) []Resolution {
	out := []Resolution{}
	for id := 1; id < b.nextID; id++ {
		if r, ok := b.resolutions[id]; ok && r.IsArchive == archived {
			out = append(out, *r)
		}
	}
	return out
}

func (b *fakeBackend) routes() *echo.Echo {
	e := echo.New()

	e.GET("/council/resolution/", func(c echo.Context) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		out := b.list(c.QueryParam("is_archive") == "true")
		return c.JSON(http.StatusOK, map[string]any{"results": out, "count": len(out), "next": nil, "previous": nil})
	})

	e.GET("/council/resolution/:id/", func(c echo.Context) error {
		id, _ := strconv.Atoi(c.Param("id"))
		b.mu.Lock()
		defer b.mu.Unlock()
		r, ok := b.resolutions[id]
		if !ok {
			return c.JSON(http.StatusNotFound, map[string]string{"detail": "Not found."})
		}
		return c.JSON(http.StatusOK, r)
	})

	e.POST("/council/resolution/", func(c echo.Context) error {
		var f ResolutionForm
		if err := c.Bind(&f); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"detail": "bad body"})
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		r := &Resolution{ID: b.nextID, Title: f.Title, DateApproved: f.DateApproved, AreaOfFocus: f.AreaOfFocus}
		if f.GprID != "" {
			n, _ := strconv.Atoi(f.GprID)
			r.GprID = &n
		}
		b.resolutions[r.ID] = r
		b.nextID++
		return c.JSON(http.StatusCreated, r)
	})

	e.PUT("/council/update-resolution/:id/", func(c echo.Context) error {
		id, _ := strconv.Atoi(c.Param("id"))
		raw, _ := io.ReadAll(c.Request().Body)
		var body map[string]any
		if err := json.Unmarshal(raw, &body); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"detail": "bad body"})
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		b.puts = append(b.puts, body)
		r, ok := b.resolutions[id]
		if !ok {
			return c.JSON(http.StatusNotFound, map[string]string{"detail": "Not found."})
		}
		if v, ok := body["res_is_archive"].(bool); ok {
			if b.failArchive {
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "archive failed"})
			}
			r.IsArchive = v
			return c.JSON(http.StatusOK, r)
		}
		var f ResolutionForm
		_ = json.Unmarshal(raw, &f)
		r.Title, r.DateApproved, r.AreaOfFocus = f.Title, f.DateApproved, f.AreaOfFocus
		return c.JSON(http.StatusOK, r)
	})

	e.DELETE("/council/resolution/:id/", func(c echo.Context) error {
		id, _ := strconv.Atoi(c.Param("id"))
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.resolutions, id)
		return c.NoContent(http.StatusNoContent)
	})

	upload := func(field string, build func(id, resNum int, name string) any) echo.HandlerFunc {
		return func(c echo.Context) error {
			resNum, _ := strconv.Atoi(c.FormValue("res_num"))
			fh, err := c.FormFile(field)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string][]string{field: {"No file was submitted."}})
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.failUpload {
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
			}
			b.uploads = append(b.uploads, field+":"+fh.Filename)
			id := 100 + len(b.uploads)
			return c.JSON(http.StatusCreated, build(id, resNum, fh.Filename))
		}
	}
	e.POST("/council/resolution-file/", upload("rf_file", func(id, resNum int, name string) any {
		return ResolutionFile{ID: id, ResNum: resNum, Name: name, URL: "https://files.example/" + name}
	}))
	e.POST("/council/resolution-supp/", upload("rsd_file", func(id, resNum int, name string) any {
		return SuppDoc{ID: id, ResNum: resNum, Name: name, URL: "https://files.example/" + name}
	}))
	e.DELETE("/council/resolution-file/", func(c echo.Context) error {
		id, _ := strconv.Atoi(c.QueryParam("rf_id"))
		b.mu.Lock()
		defer b.mu.Unlock()
		b.deletedRF = append(b.deletedRF, id)
		return c.NoContent(http.StatusNoContent)
	})
	e.DELETE("/council/resolution-supp/", func(c echo.Context) error {
		id, _ := strconv.Atoi(c.QueryParam("rsd_id"))
		b.mu.Lock()
		defer b.mu.Unlock()
		b.deletedRSD = append(b.deletedRSD, id)
		return c.NoContent(http.StatusNoContent)
	})
	return e
}

func newTestService(t *testing.T) (*Service, *fakeBackend, *appctx.Context) {
	t.Helper()
	b := newFakeBackend()
	srv := httptest.NewServer(b.routes())
	t.Cleanup(srv.Close)

	client, err := apiclient.New(srv.URL, "council")
	if err != nil {
		t.Fatalf("apiclient.New: %v", err)
	}
	ac := appctx.New(auth.Session{UserID: "sec-1", Roles: []string{auth.RoleSecretary}}, nil, query.NewClient(), zerolog.Nop())
	return NewService(NewAPI(client)), b, ac
}
