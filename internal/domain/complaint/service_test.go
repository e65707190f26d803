package complaint

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/barangay/egov/internal/platform/apiclient"
	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/auth"
	"github.com/barangay/egov/internal/platform/query"
	"github.com/barangay/egov/internal/platform/wizard"
)

type filed struct {
	Complainants []Person
	Accused      []Person
	IncidentType string
	DateTime     string
	Files        []string
}

type fakeBackend struct {
	mu            sync.Mutex
	residents     []ResidentOption
	directoryHits int
	filings       []filed
	failCreate    bool
}

func (b *fakeBackend) routes() *echo.Echo {
	e := echo.New()
	e.GET("/complaint/residentLists/", func(c echo.Context) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.directoryHits++
		return c.JSON(http.StatusOK, b.residents)
	})
	e.POST("/complaint/create/", func(c echo.Context) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.failCreate {
			return c.JSON(http.StatusBadRequest, map[string]any{"comp_location": []string{"Location is outside the barangay."}})
		}
		var f filed
		if err := json.Unmarshal([]byte(c.FormValue("complainant")), &f.Complainants); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad complainant"})
		}
		if err := json.Unmarshal([]byte(c.FormValue("accused")), &f.Accused); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad accused"})
		}
		f.IncidentType = c.FormValue("comp_incident_type")
		f.DateTime = c.FormValue("comp_datetime")
		if form, err := c.MultipartForm(); err == nil {
			for _, fh := range form.File["complaint_file"] {
				f.Files = append(f.Files, fh.Filename)
			}
		}
		b.filings = append(b.filings, f)
		return c.JSON(http.StatusCreated, Complaint{ID: len(b.filings), Status: "Pending"})
	})
	return e
}

func newTestService(t *testing.T) (*Service, *fakeBackend, *appctx.Context) {
	t.Helper()
	b := &fakeBackend{residents: []ResidentOption{
		{ID: "RP-1", Name: "Maria Clara Santos", Age: 34, Gender: "Female", Address: "Purok 2, San Roque", Contact: "09171234567"},
		{ID: "RP-2", Name: "Jose Rizal Mercado", Age: 41, Gender: "Male", Address: "Purok 5, San Roque"},
	}}
	srv := httptest.NewServer(b.routes())
	t.Cleanup(srv.Close)
	client, err := apiclient.New(srv.URL, "complaint")
	if err != nil {
		t.Fatalf("apiclient.New: %v", err)
	}
	svc := NewService(NewAPI(client))
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }
	ac := appctx.New(auth.Session{UserID: "u-1", StaffID: "ST-1", Roles: []string{auth.RoleSecretary}}, nil, query.NewClient(), zerolog.Nop())
	return svc, b, ac
}

func newFlow(t *testing.T, svc *Service) wizard.Flow {
	t.Helper()
	reg := wizard.NewRegistry()
	wizard.MustRegister(reg, svc.Wizard())
	f, err := reg.New(WizardKind, wizard.Params{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func draftOf(t *testing.T, f wizard.Flow) Draft {
	t.Helper()
	d, ok := f.Draft().(Draft)
	if !ok {
		t.Fatalf("draft has type %T", f.Draft())
	}
	return d
}

func TestIncident_Validate(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	valid := Incident{Type: IncidentNoise, Allegation: "Karaoke past midnight", Location: "Purok 2", Date: "2024-05-30", Time: "23:45"}
	tests := []struct {
		name  string
		edit  func(in *Incident)
		field string
	}{
		{"valid", func(*Incident) {}, ""},
		{"missing type", func(in *Incident) { in.Type = "" }, "comp_incident_type"},
		{"unknown type", func(in *Incident) { in.Type = "Jaywalking" }, "comp_incident_type"},
		{"missing allegation", func(in *Incident) { in.Allegation = "" }, "comp_allegation"},
		{"future date", func(in *Incident) { in.Date = "2024-06-02" }, "comp_date"},
		{"bad date", func(in *Incident) { in.Date = "05/30/2024" }, "comp_date"},
		{"bad time", func(in *Incident) { in.Time = "11pm" }, "comp_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.edit(&in)
			errs := in.Validate(now)
			if tt.field == "" {
				if len(errs) != 0 {
					t.Errorf("expected no errors, got %v", errs)
				}
				return
			}
			if !errs.Has(tt.field) {
				t.Errorf("expected an error on %s, got %v", tt.field, errs)
			}
		})
	}
	if got := valid.DateTime(); got != "2024-05-30T23:45" {
		t.Errorf("DateTime = %q", got)
	}
}

func TestWizard_ResidentAutoFill(t *testing.T) {
	svc, _, ac := newTestService(t)
	ctx := context.Background()
	f := newFlow(t, svc)

	if _, err := f.AddItem(ctx, ac, "complainants", json.RawMessage(`{"rp_id": "RP-1", "name": "typed over"}`)); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	d := draftOf(t, f)
	got := d.Complainants.Values()
	want := []Person{{ResidentID: "RP-1", Name: "Maria Clara Santos", Age: "34", Gender: "Female", Address: "Purok 2, San Roque", Contact: "09171234567"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("auto-fill mismatch (-want +got):\n%s", diff)
	}

	// RP-2 has no contact number, which complainants need.
	if _, err := f.AddItem(ctx, ac, "complainants", json.RawMessage(`{"rp_id": "RP-2"}`)); err == nil {
		t.Error("complainant without contact must be rejected")
	}
	if _, err := f.AddItem(ctx, ac, "accused", json.RawMessage(`{"rp_id": "RP-9"}`)); !errors.Is(err, ErrResidentNotFound) {
		t.Errorf("expected ErrResidentNotFound, got %v", err)
	}
	if _, err := f.AddItem(ctx, ac, "accused", json.RawMessage(`{"rp_id": "RP-2"}`)); err != nil {
		t.Errorf("accused do not need a contact number: %v", err)
	}
}

func TestWizard_DirectoryFetchedOnce(t *testing.T) {
	svc, b, ac := newTestService(t)
	ctx := context.Background()
	f := newFlow(t, svc)
	for _, raw := range []string{`{"rp_id": "RP-1"}`, `{"rp_id": "RP-2"}`} {
		if _, err := f.AddItem(ctx, ac, "accused", json.RawMessage(raw)); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
	}
	if b.directoryHits != 1 {
		t.Errorf("expected the directory to be fetched once, got %d", b.directoryHits)
	}
}

func TestWizard_RemoveRestoresList(t *testing.T) {
	svc, _, ac := newTestService(t)
	ctx := context.Background()
	f := newFlow(t, svc)

	if _, err := f.AddItem(ctx, ac, "accused", json.RawMessage(`{"name": "Unknown male", "address": "Near the chapel", "description": "Wearing a red cap"}`)); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	d := draftOf(t, f)
	before := d.Accused.Values()

	id, err := f.AddItem(ctx, ac, "accused", json.RawMessage(`{"rp_id": "RP-2"}`))
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := f.RemoveItem(ctx, ac, "accused", id); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	d = draftOf(t, f)
	if diff := cmp.Diff(before, d.Accused.Values()); diff != "" {
		t.Errorf("list not restored (-want +got):\n%s", diff)
	}
	if err := f.RemoveItem(ctx, ac, "accused", id); !errors.Is(err, wizard.ErrItemNotFound) {
		t.Errorf("second remove: expected ErrItemNotFound, got %v", err)
	}
}

func fillWizard(t *testing.T, f wizard.Flow, ac *appctx.Context) {
	t.Helper()
	ctx := context.Background()
	if err := f.Next(); err == nil {
		t.Fatal("complainants step must require at least one complainant")
	}
	if _, err := f.AddItem(ctx, ac, "complainants", json.RawMessage(`{"rp_id": "RP-1"}`)); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := f.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if err := f.Next(); err == nil {
		t.Fatal("accused step must require at least one accused")
	}
	if _, err := f.AddItem(ctx, ac, "accused", json.RawMessage(`{"rp_id": "RP-2"}`)); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := f.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	patch := `{"comp_incident_type": "Noise Complaint", "comp_allegation": "Karaoke past midnight", "comp_location": "Purok 2", "comp_date": "2024-05-30", "comp_time": "23:45"}`
	if _, err := f.Apply(ctx, ac, json.RawMessage(patch)); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := f.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if _, err := f.AddItem(ctx, ac, "files", json.RawMessage(`{"name": "video.mp4", "content_type": "video/mp4", "data": "AAAAIGZ0eXA="}`)); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := f.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if f.Step() != "review" {
		t.Fatalf("expected review step, got %s", f.Step())
	}
}

func TestWizard_SubmitFilesComplaint(t *testing.T) {
	svc, b, ac := newTestService(t)
	f := newFlow(t, svc)
	fillWizard(t, f, ac)

	out, err := f.Submit(context.Background(), ac)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if c := out.(Complaint); c.ID != 1 || c.Status != "Pending" {
		t.Errorf("unexpected complaint %+v", c)
	}
	if len(b.filings) != 1 {
		t.Fatalf("expected one filing, got %d", len(b.filings))
	}
	got := b.filings[0]
	if got.Complainants[0].Name != "Maria Clara Santos" || got.Accused[0].Name != "Jose Rizal Mercado" {
		t.Errorf("unexpected parties %+v", got)
	}
	if got.IncidentType != IncidentNoise || got.DateTime != "2024-05-30T23:45" {
		t.Errorf("unexpected incident fields %+v", got)
	}
	if diff := cmp.Diff([]string{"video.mp4"}, got.Files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
	toasts := ac.Toasts.Drain()
	if len(toasts) != 1 || toasts[0].Message != "Complaint filed successfully" {
		t.Errorf("unexpected toasts %+v", toasts)
	}
}

func TestWizard_SubmitRejected(t *testing.T) {
	svc, b, ac := newTestService(t)
	f := newFlow(t, svc)
	fillWizard(t, f, ac)
	b.failCreate = true

	if _, err := f.Submit(context.Background(), ac); err == nil {
		t.Fatal("expected submit to fail")
	}
	if f.Step() != "review" {
		t.Errorf("failed submit must stay on review, got %s", f.Step())
	}
	if d := draftOf(t, f); d.Complainants.Len() != 1 || d.Files.Len() != 1 {
		t.Errorf("failed submit must keep the draft, got %+v", d)
	}
	toasts := ac.Toasts.Drain()
	if len(toasts) != 1 || toasts[0].Message != "comp_location: Location is outside the barangay." {
		t.Errorf("unexpected toasts %+v", toasts)
	}
}

func TestResidents_Search(t *testing.T) {
	svc, _, ac := newTestService(t)
	rs, err := svc.Residents(context.Background(), ac, "  purok 5 ")
	if err != nil {
		t.Fatalf("Residents: %v", err)
	}
	if len(rs) != 1 || rs[0].ID != "RP-2" {
		t.Errorf("unexpected residents %+v", rs)
	}
	all, _ := svc.Residents(context.Background(), ac, "")
	if len(all) != 2 {
		t.Errorf("blank search should return everyone, got %d", len(all))
	}
}
