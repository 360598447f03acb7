package stream

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// State represents the lifecycle state of a relay.
type State int

const (
	// StateIdle indicates the relay has been created but not started.
	StateIdle State = iota
	// StateRunning indicates the relay is forwarding data.
	StateRunning
	// StateDisabled indicates the relay is draining without forwarding.
	StateDisabled
	// StateDone indicates the relay has finished. Terminal.
	StateDone
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDisabled:
		return "disabled"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Relay is the lifecycle shared by Pumper and Feeder.
type Relay interface {
	// Start launches the relay goroutine. Calls after the first are no-ops.
	Start()
	// Wait blocks until the relay is done.
	Wait()
	// Done returns a channel closed when the relay is done.
	Done() <-chan struct{}
	// Disable stops forwarding. It never blocks and cannot be undone.
	Disable()
	// Err returns the first failure captured by the relay, or nil.
	Err() error
	// State returns the current lifecycle state.
	State() State
}

// relay holds the state machine embedded by the concrete relays.
type relay struct {
	name     string
	started  atomic.Bool
	disabled atomic.Bool
	done     chan struct{}
	doneOnce sync.Once

	mu  sync.Mutex
	err error
}

func (r *relay) init(name string) {
	r.name = name
	r.done = make(chan struct{})
}

// Name returns the stream name used in errors, e.g. "stdout".
func (r *relay) Name() string { return r.name }

func (r *relay) Wait() { <-r.done }

func (r *relay) Done() <-chan struct{} { return r.done }

func (r *relay) Disable() { r.disabled.Store(true) }

func (r *relay) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *relay) State() State {
	select {
	case <-r.done:
		return StateDone
	default:
	}
	switch {
	case r.disabled.Load():
		return StateDisabled
	case r.started.Load():
		return StateRunning
	default:
		return StateIdle
	}
}

// recordErr keeps the first error only.
func (r *relay) recordErr(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.mu.Unlock()
}

func (r *relay) hasErr() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err != nil
}

func (r *relay) finish() {
	r.doneOnce.Do(func() { close(r.done) })
}

// begin reports whether the caller is the first to start the relay.
func (r *relay) begin() bool {
	return r.started.CompareAndSwap(false, true)
}
