package waste

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/barangay/egov/internal/platform/apiclient"
	"github.com/barangay/egov/internal/platform/listview"
	"github.com/barangay/egov/internal/platform/notify"
	"github.com/barangay/egov/internal/platform/query"
	"github.com/barangay/egov/internal/platform/validate"
)

func firstPage() (listview.Filter, listview.Pager) {
	return listview.Filter{}, listview.NewPager(listview.ModeReplace, 10)
}

func validForm() TruckForm {
	return TruckForm{PlateNum: " abc-123 ", Model: "Isuzu Forward", Capacity: "5.5", LastMaint: "2024-02-01"}
}

func TestTruckForm_Validate(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		mutate func(*TruckForm)
		field  string
	}{
		{"valid", func(*TruckForm) {}, ""},
		{"plate required", func(f *TruckForm) { f.PlateNum = "" }, "truck_plate_num"},
		{"model required", func(f *TruckForm) { f.Model = " " }, "truck_model"},
		{"capacity positive", func(f *TruckForm) { f.Capacity = "-2" }, "truck_capacity"},
		{"capacity numeric", func(f *TruckForm) { f.Capacity = "five" }, "truck_capacity"},
		{"status", func(f *TruckForm) { f.Status = "Retired" }, "truck_status"},
		{"date format", func(f *TruckForm) { f.LastMaint = "02/01/2024" }, "truck_last_maint"},
		{"future date", func(f *TruckForm) { f.LastMaint = "2024-04-01" }, "truck_last_maint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)
			errs := f.Normalize().Validate(now)
			if tt.field == "" {
				if len(errs) != 0 {
					t.Fatalf("unexpected errors %v", errs)
				}
				return
			}
			if !errs.Has(tt.field) {
				t.Errorf("expected error on %s, got %v", tt.field, errs)
			}
		})
	}
}

func TestCreateTruck_InvalidatesListAndToasts(t *testing.T) {
	svc, b, ac := newTestService(t)
	ctx := context.Background()
	f, p := firstPage()

	before := svc.Trucks(ctx, ac, f, p)
	if before.Total != 2 || b.listCount() != 1 {
		t.Fatalf("unexpected initial list %+v (calls %d)", before, b.listCount())
	}

	created, err := svc.CreateTruck(ctx, ac, validForm())
	if err != nil {
		t.Fatalf("CreateTruck: %v", err)
	}
	if created.ID != 3 || created.PlateNum != "ABC-123" || created.Status != StatusOperational {
		t.Errorf("unexpected truck %+v", created)
	}
	if len(b.created) != 1 || b.created[0].PlateNum != "ABC-123" {
		t.Errorf("backend received %+v", b.created)
	}

	after := svc.Trucks(ctx, ac, f, p)
	if b.listCount() != 2 {
		t.Errorf("expected the list to be refetched after invalidation, got %d calls", b.listCount())
	}
	if after.Total != 3 {
		t.Errorf("expected 3 trucks after create, got %d", after.Total)
	}

	toasts := ac.Toasts.Drain()
	if len(toasts) != 1 || toasts[0].Level != notify.LevelSuccess || toasts[0].Message != "Truck created successfully" {
		t.Errorf("unexpected toasts %+v", toasts)
	}
}

func TestCreateTruck_RejectedLeavesListAndToastsServerMessage(t *testing.T) {
	svc, b, ac := newTestService(t)
	ctx := context.Background()
	f, p := firstPage()

	before := svc.Trucks(ctx, ac, f, p)

	form := validForm()
	form.PlateNum = "XYZ-789"
	_, err := svc.CreateTruck(ctx, ac, form)
	if !apiclient.IsStatus(err, http.StatusBadRequest) {
		t.Fatalf("expected a 400 from the backend, got %v", err)
	}

	after := svc.Trucks(ctx, ac, f, p)
	if b.listCount() != 1 {
		t.Errorf("a failed create must not invalidate the list, got %d calls", b.listCount())
	}
	if diff := cmp.Diff(before.Items, after.Items); diff != "" {
		t.Errorf("list changed (-before +after):\n%s", diff)
	}

	toasts := ac.Toasts.Drain()
	if len(toasts) != 1 || toasts[0].Level != notify.LevelError {
		t.Fatalf("unexpected toasts %+v", toasts)
	}
	if want := "truck_plate_num: truck with this plate already exists."; toasts[0].Message != want {
		t.Errorf("toast = %q, want %q", toasts[0].Message, want)
	}
}

func TestCreateTruck_ValidationNeverReachesBackend(t *testing.T) {
	svc, b, ac := newTestService(t)
	_, err := svc.CreateTruck(context.Background(), ac, TruckForm{})
	if !errors.Is(err, validate.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(b.created) != 0 {
		t.Error("backend was called")
	}
	if toasts := ac.Toasts.Drain(); len(toasts) != 0 {
		t.Errorf("validation errors are shown inline, not as toasts: %+v", toasts)
	}
}

func TestArchiveTruck_FailureRestoresCache(t *testing.T) {
	svc, b, ac := newTestService(t)
	ctx := context.Background()
	f, p := firstPage()

	before := svc.Trucks(ctx, ac, f, p)
	key := listview.NewView(ResourceTrucks, ac.Query, svc.api.ListTrucks, f, p).Key()
	snapshot, _ := query.GetQueryData[apiclient.Page[Truck]](ac.Query, key)

	b.mu.Lock()
	b.failWrite = true
	b.mu.Unlock()

	if err := svc.ArchiveTruck(ctx, ac, 1); err == nil {
		t.Fatal("expected archive to fail")
	}
	restored, ok := query.GetQueryData[apiclient.Page[Truck]](ac.Query, key)
	if !ok {
		t.Fatal("cache entry lost")
	}
	if diff := cmp.Diff(snapshot, restored); diff != "" {
		t.Errorf("cache not restored (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(before.Items, restored.Results); diff != "" {
		t.Errorf("rows not restored (-want +got):\n%s", diff)
	}
	toasts := ac.Toasts.Drain()
	if len(toasts) != 1 || toasts[0].Message != "database unavailable" {
		t.Errorf("unexpected toasts %+v", toasts)
	}
}

func TestArchiveAndRestoreTruck(t *testing.T) {
	svc, _, ac := newTestService(t)
	ctx := context.Background()
	f, p := firstPage()
	archivedTab := listview.Filter{Tab: listview.TabArchived}

	_ = svc.Trucks(ctx, ac, f, p)
	if err := svc.ArchiveTruck(ctx, ac, 1); err != nil {
		t.Fatalf("ArchiveTruck: %v", err)
	}
	if s := svc.Trucks(ctx, ac, f, p); s.Total != 1 || s.Items[0].ID != 2 {
		t.Errorf("active list should only hold truck 2, got %+v", s.Items)
	}
	if s := svc.Trucks(ctx, ac, archivedTab, p); s.Total != 1 || s.Items[0].ID != 1 {
		t.Errorf("archived list should hold truck 1, got %+v", s.Items)
	}

	if err := svc.RestoreTruck(ctx, ac, 1); err != nil {
		t.Fatalf("RestoreTruck: %v", err)
	}
	if s := svc.Trucks(ctx, ac, archivedTab, p); !s.Empty {
		t.Errorf("archive should be empty after restore, got %+v", s.Items)
	}
	if s := svc.Trucks(ctx, ac, f, p); s.Total != 2 {
		t.Errorf("restored truck missing: %+v", s.Items)
	}

	if err := svc.DeleteTruck(ctx, ac, 1); err != nil {
		t.Fatalf("DeleteTruck: %v", err)
	}
	if s := svc.Trucks(ctx, ac, f, p); s.Total != 1 || s.Items[0].ID != 2 {
		t.Errorf("expected only truck 2 left, got %+v", s.Items)
	}

	var msgs []string
	for _, toast := range ac.Toasts.Drain() {
		msgs = append(msgs, toast.Message)
	}
	want := []string{"Truck archived successfully", "Truck restored successfully", "Truck deleted successfully"}
	if diff := cmp.Diff(want, msgs); diff != "" {
		t.Errorf("toasts (-want +got):\n%s", diff)
	}
}

func TestUpdateTruck(t *testing.T) {
	svc, _, ac := newTestService(t)
	form := validForm()
	form.Status = StatusMaintenance
	got, err := svc.UpdateTruck(context.Background(), ac, 1, form)
	if err != nil {
		t.Fatalf("UpdateTruck: %v", err)
	}
	if got.PlateNum != "ABC-123" || got.Status != StatusMaintenance {
		t.Errorf("unexpected truck %+v", got)
	}
}

func TestFleet(t *testing.T) {
	svc, _, ac := newTestService(t)
	fleet, err := svc.Fleet(context.Background(), ac)
	if err != nil {
		t.Fatalf("Fleet: %v", err)
	}
	if len(fleet.Trucks) != 2 || fleet.Operational != 1 || fleet.UnderMaintenance != 1 {
		t.Errorf("unexpected trucks in fleet %+v", fleet)
	}
	if len(fleet.Drivers) != 1 || fleet.Drivers[0].FullName != "Juan Dela Cruz" {
		t.Errorf("unexpected drivers %+v", fleet.Drivers)
	}
}
