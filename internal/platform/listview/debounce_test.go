package listview

import (
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestDebouncer_SingleCall(t *testing.T) {
	defer goleak.VerifyNone(t)

	var called int32
	d := NewDebouncer(30 * time.Millisecond)
	d.Debounce(func() { atomic.AddInt32(&called, 1) })

	time.Sleep(100 * time.Millisecond)
	if n := atomic.LoadInt32(&called); n != 1 {
		t.Errorf("expected 1 call, got %d", n)
	}
	if d.Pending() {
		t.Error("nothing should be pending after the call ran")
	}
}

func TestDebouncer_RapidCallsRunLastOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	var called, last int32
	d := NewDebouncer(50 * time.Millisecond)
	for i := 1; i <= 10; i++ {
		v := int32(i)
		d.Debounce(func() {
			atomic.StoreInt32(&last, v)
			atomic.AddInt32(&called, 1)
		})
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)
	if n := atomic.LoadInt32(&called); n != 1 {
		t.Errorf("expected 1 call, got %d", n)
	}
	if v := atomic.LoadInt32(&last); v != 10 {
		t.Errorf("expected the last function to run, got %d", v)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	var called int32
	d := NewDebouncer(30 * time.Millisecond)
	d.Debounce(func() { atomic.AddInt32(&called, 1) })
	if !d.Pending() {
		t.Fatal("expected a pending call")
	}
	d.Cancel()

	time.Sleep(80 * time.Millisecond)
	if n := atomic.LoadInt32(&called); n != 0 {
		t.Errorf("expected no call after cancel, got %d", n)
	}
}

func TestDebouncer_Immediate(t *testing.T) {
	defer goleak.VerifyNone(t)

	var called int32
	d := NewDebouncer(30 * time.Millisecond)
	d.Debounce(func() { atomic.AddInt32(&called, 10) })
	d.Immediate(func() { atomic.AddInt32(&called, 1) })

	time.Sleep(80 * time.Millisecond)
	if n := atomic.LoadInt32(&called); n != 1 {
		t.Errorf("expected only the immediate call, got %d", n)
	}
}

func TestNewDebouncer_Default(t *testing.T) {
	if d := NewDebouncer(0); d.Duration() != DefaultDebounce {
		t.Errorf("duration = %v", d.Duration())
	}
}
