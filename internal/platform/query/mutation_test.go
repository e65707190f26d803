package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type recorder struct {
	mu      sync.Mutex
	success []string
	errs    []string
}

func (r *recorder) Success(msg string) {
	r.mu.Lock()
	r.success = append(r.success, msg)
	r.mu.Unlock()
}

func (r *recorder) Error(msg string) {
	r.mu.Lock()
	r.errs = append(r.errs, msg)
	r.mu.Unlock()
}

type backendError struct{ msg string }

func (e *backendError) Error() string       { return "400: " + e.msg }
func (e *backendError) UserMessage() string { return e.msg }

type truckRow struct {
	ID       string
	Archived bool
}

func archiveOptimistic(c *Client, id string) {
	UpdateQueries(c, "trucks", func(_ Key, rows []truckRow) []truckRow {
		out := make([]truckRow, len(rows))
		for i, r := range rows {
			if r.ID == id {
				r.Archived = true
			}
			out[i] = r
		}
		return out
	})
}

func TestMutate_SuccessInvalidatesAndToasts(t *testing.T) {
	c := NewClient()
	key := NewKey("trucks", nil)
	c.SetQueryData(key, []truckRow{{ID: "1"}, {ID: "2"}})
	rec := &recorder{}

	var sawOptimistic bool
	m := Mutation[string, struct{}]{
		Resource:   "trucks",
		Optimistic: archiveOptimistic,
		Do: func(ctx context.Context, id string) (struct{}, error) {
			rows, _ := GetQueryData[[]truckRow](c, key)
			sawOptimistic = rows[0].Archived
			return struct{}{}, nil
		},
		Success: "Truck archived successfully",
		Failure: "Failed to archive truck. Please try again.",
	}
	if _, err := Mutate(context.Background(), c, rec, m, "1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sawOptimistic {
		t.Error("optimistic write should be visible while the request runs")
	}
	if !c.IsStale(key) {
		t.Error("expected trucks to be invalidated")
	}
	if diff := cmp.Diff([]string{"Truck archived successfully"}, rec.success); diff != "" {
		t.Errorf("success toasts (-want +got):\n%s", diff)
	}
	if len(rec.errs) != 0 {
		t.Errorf("unexpected error toasts %v", rec.errs)
	}
}

func TestMutate_FailureRestoresSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"backend message", &backendError{msg: "Truck is assigned to a route"}, "Truck is assigned to a route"},
		{"network error", errors.New("dial tcp: connection refused"), "Failed to archive truck. Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient()
			key := NewKey("trucks", nil)
			before := []truckRow{{ID: "1"}, {ID: "2"}}
			c.SetQueryData(key, before)
			rec := &recorder{}

			m := Mutation[string, struct{}]{
				Resource:   "trucks",
				Optimistic: archiveOptimistic,
				Do: func(ctx context.Context, id string) (struct{}, error) {
					return struct{}{}, tt.err
				},
				Success: "Truck archived successfully",
				Failure: "Failed to archive truck. Please try again.",
			}
			_, err := Mutate(context.Background(), c, rec, m, "1")
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, got %v", tt.err, err)
			}
			after, _ := GetQueryData[[]truckRow](c, key)
			if diff := cmp.Diff(before, after); diff != "" {
				t.Errorf("cache not restored (-want +got):\n%s", diff)
			}
			if c.IsStale(key) {
				t.Error("a failed mutation should not invalidate")
			}
			if diff := cmp.Diff([]string{tt.wantMsg}, rec.errs); diff != "" {
				t.Errorf("error toasts (-want +got):\n%s", diff)
			}
			if len(rec.success) != 0 {
				t.Errorf("unexpected success toasts %v", rec.success)
			}
		})
	}
}

func TestMutate_SerializesPerFamily(t *testing.T) {
	c := NewClient()
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	var mu sync.Mutex
	var order []string

	do := func(ctx context.Context, name string) (struct{}, error) {
		mu.Lock()
		order = append(order, "start "+name)
		mu.Unlock()
		if name == "first" {
			close(firstStarted)
			<-releaseFirst
		}
		mu.Lock()
		order = append(order, "end "+name)
		mu.Unlock()
		return struct{}{}, nil
	}
	m := Mutation[string, struct{}]{Resource: "trucks", Do: do}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		Mutate(context.Background(), c, nil, m, "first")
	}()
	<-firstStarted
	go func() {
		defer wg.Done()
		Mutate(context.Background(), c, nil, m, "second")
	}()
	time.Sleep(30 * time.Millisecond)
	close(releaseFirst)
	wg.Wait()

	want := []string{"start first", "end first", "start second", "end second"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("mutations interleaved (-want +got):\n%s", diff)
	}
}

func TestMutate_OtherFamiliesRunConcurrently(t *testing.T) {
	c := NewClient()
	release := make(chan struct{})
	started := make(chan string, 2)

	do := func(ctx context.Context, name string) (struct{}, error) {
		started <- name
		<-release
		return struct{}{}, nil
	}

	var wg sync.WaitGroup
	for _, fam := range []string{"trucks", "resolutions"} {
		wg.Add(1)
		go func(fam string) {
			defer wg.Done()
			Mutate(context.Background(), c, nil, Mutation[string, struct{}]{Resource: fam, Do: do}, fam)
		}(fam)
	}

	timeout := time.After(time.Second)
	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-timeout:
			t.Fatal("mutations of different families should not block each other")
		}
	}
	close(release)
	wg.Wait()
}

func TestMutate_CustomInvalidates(t *testing.T) {
	c := NewClient()
	plans := NewKey("budget-plans", nil)
	files := NewKey("budget-plan-files", nil)
	c.SetQueryData(plans, 1)
	c.SetQueryData(files, 1)

	m := Mutation[int, int]{
		Resource:    "budget-plan-files",
		Invalidates: []string{"budget-plans", "budget-plan-files"},
		Do:          func(ctx context.Context, v int) (int, error) { return v, nil },
	}
	if _, err := Mutate(context.Background(), c, nil, m, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.IsStale(plans) || !c.IsStale(files) {
		t.Error("expected both families to be invalidated")
	}
}
