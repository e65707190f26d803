package query

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestNewKey_CanonicalParams(t *testing.T) {
	a := NewKey("trucks", url.Values{"search": {"elf"}, "page": {"1"}})
	b := NewKey("trucks", url.Values{"page": {"1"}, "search": {"elf"}})
	if a != b {
		t.Errorf("expected equal keys, got %v and %v", a, b)
	}
	if got := a.String(); got != "trucks?page=1&search=elf" {
		t.Errorf("String() = %q", got)
	}
	if got := NewKey("trucks", nil).String(); got != "trucks" {
		t.Errorf("String() = %q", got)
	}
}

func TestFetch_CachesUntilStale(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	c := NewClient(WithStaleTime(time.Minute), WithClock(clock.Now))
	key := NewKey("trucks", nil)

	var calls int32
	fn := func(ctx context.Context) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		return []string{"ABC-123"}, nil
	}

	r := Fetch(context.Background(), c, key, fn)
	if r.IsError || r.FromCache {
		t.Fatalf("unexpected first result %+v", r)
	}
	r = Fetch(context.Background(), c, key, fn)
	if !r.FromCache {
		t.Error("second fetch should be served from cache")
	}
	if diff := cmp.Diff([]string{"ABC-123"}, r.Data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
	if calls != 1 {
		t.Errorf("expected 1 backend call, got %d", calls)
	}

	clock.Advance(2 * time.Minute)
	if !c.IsStale(key) {
		t.Error("expected key to be stale after stale time")
	}
	Fetch(context.Background(), c, key, fn)
	if calls != 2 {
		t.Errorf("expected refetch after stale time, got %d calls", calls)
	}
}

func TestFetch_ErrorKeepsPreviousData(t *testing.T) {
	c := NewClient()
	key := NewKey("trucks", nil)
	Fetch(context.Background(), c, key, func(ctx context.Context) (int, error) { return 4, nil })
	c.Invalidate("trucks")

	boom := errors.New("boom")
	r := Fetch(context.Background(), c, key, func(ctx context.Context) (int, error) { return 0, boom })
	if !r.IsError || !errors.Is(r.Err, boom) {
		t.Fatalf("expected error result, got %+v", r)
	}
	if r.Data != 4 {
		t.Errorf("expected previous data 4, got %d", r.Data)
	}
}

func TestFetch_DeduplicatesConcurrentCalls(t *testing.T) {
	c := NewClient()
	key := NewKey("residents", url.Values{"search": {"cruz"}})
	release := make(chan struct{})
	var calls int32

	fn := func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]Result[int], 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Fetch(context.Background(), c, key, fn)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Errorf("expected a single backend call, got %d", calls)
	}
	for i, r := range results {
		if r.Data != 42 {
			t.Errorf("result %d = %+v", i, r)
		}
	}
}

func TestFetch_SupersededResultIsDiscarded(t *testing.T) {
	c := NewClient()
	key := NewKey("trucks", nil)
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan Result[string])
	go func() {
		done <- Fetch(context.Background(), c, key, func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "server", nil
		})
	}()

	<-started
	c.SetQueryData(key, "optimistic")
	close(release)
	<-done

	got, ok := GetQueryData[string](c, key)
	if !ok || got != "optimistic" {
		t.Errorf("expected optimistic write to survive, got %q (%v)", got, ok)
	}
}

func TestCancelQueries_DoesNotRecordError(t *testing.T) {
	c := NewClient()
	key := NewKey("trucks", nil)
	c.SetQueryData(key, "cached")
	c.Invalidate("trucks")

	started := make(chan struct{})
	done := make(chan Result[string])
	go func() {
		done <- Fetch(context.Background(), c, key, func(ctx context.Context) (string, error) {
			close(started)
			<-ctx.Done()
			return "", ctx.Err()
		})
	}()

	<-started
	if n := c.CancelQueries("trucks"); n != 1 {
		t.Errorf("expected 1 cancelled query, got %d", n)
	}
	r := <-done
	if !errors.Is(r.Err, context.Canceled) {
		t.Errorf("expected cancellation error for caller, got %v", r.Err)
	}
	peek := Peek[string](c, key)
	if peek.IsError || peek.Data != "cached" {
		t.Errorf("cache should be untouched by cancellation, got %+v", peek)
	}
}

func TestInvalidate_OnlyMatchingFamilies(t *testing.T) {
	c := NewClient()
	trucks := NewKey("trucks", nil)
	drivers := NewKey("personnel", url.Values{"position": {"Driver"}})
	c.SetQueryData(trucks, 1)
	c.SetQueryData(drivers, 2)

	if n := c.Invalidate("trucks"); n != 1 {
		t.Errorf("expected 1 invalidated key, got %d", n)
	}
	if !c.IsStale(trucks) {
		t.Error("trucks should be stale")
	}
	if c.IsStale(drivers) {
		t.Error("personnel should still be fresh")
	}
}

func TestUpdateQueries_SkipsOtherTypes(t *testing.T) {
	c := NewClient()
	c.SetQueryData(NewKey("trucks", url.Values{"page": {"1"}}), []string{"a"})
	c.SetQueryData(NewKey("trucks", url.Values{"page": {"2"}}), []string{"b"})
	c.SetQueryData(NewKey("trucks", url.Values{"count": {"1"}}), 7)

	n := UpdateQueries(c, "trucks", func(_ Key, v []string) []string {
		return append(append([]string{}, v...), "x")
	})
	if n != 2 {
		t.Errorf("expected 2 updated entries, got %d", n)
	}
	got, _ := GetQueryData[[]string](c, NewKey("trucks", url.Values{"page": {"2"}}))
	if diff := cmp.Diff([]string{"b", "x"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotRestore_Exact(t *testing.T) {
	c := NewClient()
	k1 := NewKey("trucks", url.Values{"page": {"1"}})
	k2 := NewKey("trucks", url.Values{"page": {"2"}})
	c.SetQueryData(k1, []string{"a", "b"})

	snap := c.Snapshot("trucks")
	c.SetQueryData(k1, []string{"a"})
	c.SetQueryData(k2, []string{"c"})
	c.Restore(snap)

	got, ok := GetQueryData[[]string](c, k1)
	if !ok {
		t.Fatal("expected k1 to be restored")
	}
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if _, ok := GetQueryData[[]string](c, k2); ok {
		t.Error("entry created after the snapshot should be dropped")
	}
}

func TestFetch_CallerCancelLeavesSharedCallRunning(t *testing.T) {
	c := NewClient()
	key := NewKey("residents", url.Values{"search": {"santos"}})
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	fn := func(ctx context.Context) (int, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		select {
		case <-release:
			return 7, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	doneA := make(chan Result[int])
	go func() { doneA <- Fetch(ctxA, c, key, fn) }()
	<-started

	doneB := make(chan Result[int])
	go func() { doneB <- Fetch(context.Background(), c, key, fn) }()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case r := <-doneA:
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("cancelled caller: expected context.Canceled, got %v", r.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting for the shared call")
	}

	close(release)
	r := <-doneB
	if r.IsError || r.Data != 7 {
		t.Errorf("other caller should get the result, got %+v", r)
	}
	if calls != 1 {
		t.Errorf("expected a single backend call, got %d", calls)
	}
	if got, ok := GetQueryData[int](c, key); !ok || got != 7 {
		t.Errorf("expected the result to be cached, got %d (%v)", got, ok)
	}
}

func TestFetch_TimeoutBoundsBackendCall(t *testing.T) {
	c := NewClient(WithFetchTimeout(20 * time.Millisecond))
	r := Fetch(context.Background(), c, NewKey("trucks", nil), func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !errors.Is(r.Err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", r.Err)
	}
}

func TestFetch_CollectsUnusedEntries(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	c := NewClient(WithStaleTime(time.Minute), WithGCTime(5*time.Minute), WithClock(clock.Now))
	fn := func(ctx context.Context) (int, error) { return 1, nil }
	search := func(term string) Key { return NewKey("residents", url.Values{"search": {term}}) }

	Fetch(context.Background(), c, search("cruz"), fn)
	Fetch(context.Background(), c, search("santos"), fn)

	clock.Advance(3 * time.Minute)
	Fetch(context.Background(), c, search("santos"), fn)

	clock.Advance(3 * time.Minute)
	Fetch(context.Background(), c, search("reyes"), fn)

	got := map[string]bool{}
	for _, k := range c.Keys("residents") {
		got[k.Params] = true
	}
	want := map[string]bool{"search=santos": true, "search=reyes": true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cached keys mismatch (-want +got):\n%s", diff)
	}
}
