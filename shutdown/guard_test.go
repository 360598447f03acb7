package shutdown

import (
	stderrors "errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingDestroyer struct {
	calls atomic.Int32
	err   error
}

func (d *countingDestroyer) Destroy() error {
	d.calls.Add(1)
	return d.err
}

// fakeSignals replaces the os/signal hooks of g with a channel the test controls.
type fakeSignals struct {
	mu       sync.Mutex
	ch       chan<- os.Signal
	stopped  bool
	reraised chan os.Signal
}

func install(g *Guard) *fakeSignals {
	f := &fakeSignals{reraised: make(chan os.Signal, 1)}
	g.notify = func(ch chan<- os.Signal, _ ...os.Signal) {
		f.mu.Lock()
		f.ch = ch
		f.mu.Unlock()
	}
	g.unnotify = func(chan<- os.Signal) {
		f.mu.Lock()
		f.stopped = true
		f.mu.Unlock()
	}
	g.reraise = func(sig os.Signal) { f.reraised <- sig }
	return f
}

func (f *fakeSignals) send(sig os.Signal) {
	f.mu.Lock()
	ch := f.ch
	f.mu.Unlock()
	ch <- sig
}

func TestGuard_RegisterUnregister(t *testing.T) {
	g := New(WithoutSignals())
	d := &countingDestroyer{}

	g.Register("a", d)
	g.Register("b", d)
	if g.Len() != 2 {
		t.Fatalf("expected 2 hooks, got %d", g.Len())
	}
	g.Unregister("a")
	g.Unregister("missing")
	if g.Len() != 1 {
		t.Fatalf("expected 1 hook, got %d", g.Len())
	}

	g.DestroyAll()
	if d.calls.Load() != 1 {
		t.Errorf("expected one destroy, got %d", d.calls.Load())
	}
	if g.Len() != 0 {
		t.Errorf("registry should be empty after DestroyAll, got %d", g.Len())
	}
}

func TestGuard_DestroyErrorsAreSwallowed(t *testing.T) {
	g := New(WithoutSignals())
	failing := &countingDestroyer{err: stderrors.New("already gone")}
	ok := &countingDestroyer{}
	g.Register("failing", failing)
	g.Register("panicking", DestroyerFunc(func() error { panic("boom") }))
	g.Register("ok", ok)

	g.DestroyAll()

	if failing.calls.Load() != 1 || ok.calls.Load() != 1 {
		t.Error("every child must be destroyed despite failures")
	}
}

func TestGuard_ClosedIsNoop(t *testing.T) {
	g := New(WithoutSignals())
	g.Close()
	g.Close()

	g.Register("late", &countingDestroyer{})
	g.Unregister("late")
	if g.Len() != 0 {
		t.Errorf("closed guard must ignore registrations, got %d", g.Len())
	}
}

func TestGuard_NilSafe(t *testing.T) {
	var g *Guard
	g.Register("x", &countingDestroyer{})
	g.Unregister("x")
}

func TestGuard_SignalDestroysChildren(t *testing.T) {
	g := New()
	f := install(g)
	d := &countingDestroyer{}
	g.Register("child", d)

	f.send(os.Interrupt)

	select {
	case sig := <-f.reraised:
		if sig != os.Interrupt {
			t.Errorf("expected interrupt re-raised, got %v", sig)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("signal was not handled")
	}
	if d.calls.Load() != 1 {
		t.Errorf("expected child destroyed, got %d calls", d.calls.Load())
	}

	f.mu.Lock()
	stopped := f.stopped
	f.mu.Unlock()
	if !stopped {
		t.Error("guard must stop listening before re-raising")
	}

	g.Register("after", &countingDestroyer{})
	if g.Len() != 0 {
		t.Error("guard is terminal after firing")
	}
}

func TestGuard_InstallOnce(t *testing.T) {
	g := New()
	installs := 0
	g.notify = func(chan<- os.Signal, ...os.Signal) { installs++ }
	g.unnotify = func(chan<- os.Signal) {}

	g.Register("a", &countingDestroyer{})
	g.Register("b", &countingDestroyer{})
	g.Close()

	if installs != 1 {
		t.Errorf("expected signal handler installed once, got %d", installs)
	}
}

func TestDefault(t *testing.T) {
	if Default() != Default() {
		t.Error("Default must return a single process-wide guard")
	}
}
