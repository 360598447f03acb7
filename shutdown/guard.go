// Package shutdown destroys child processes that are still running when
// the host process is asked to terminate.
//
// The Guard is a best-effort safety net: registering and unregistering
// never fail, and nothing it does is required for correct operation of a
// normal invocation.
package shutdown

import (
	"os"
	"os/signal"
	"sync"

	"github.com/kbukum/execkit/logger"
)

// Destroyer is anything that can be forcibly terminated.
type Destroyer interface {
	Destroy() error
}

// DestroyerFunc adapts a function to Destroyer.
type DestroyerFunc func() error

// Destroy calls f.
func (f DestroyerFunc) Destroy() error { return f() }

// Guard keeps the set of live children to destroy on abnormal host exit.
type Guard struct {
	mu       sync.Mutex
	hooks    map[string]Destroyer
	closed   bool
	firing   bool
	signals  []os.Signal
	sigCh    chan os.Signal
	stopCh   chan struct{}
	reraise  func(os.Signal)
	notify   func(chan<- os.Signal, ...os.Signal)
	unnotify func(chan<- os.Signal)
	log      *logger.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithSignals overrides the signals that trigger destruction.
func WithSignals(sigs ...os.Signal) Option {
	return func(g *Guard) { g.signals = sigs }
}

// WithoutSignals disables signal handling; children are only destroyed by
// an explicit DestroyAll.
func WithoutSignals() Option {
	return func(g *Guard) { g.signals = nil }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(g *Guard) { g.log = l }
}

// New creates a Guard. Signal handling is installed lazily on the first
// registration.
func New(opts ...Option) *Guard {
	g := &Guard{
		hooks:    make(map[string]Destroyer),
		signals:  terminationSignals(),
		reraise:  reraise,
		notify:   signal.Notify,
		unnotify: signal.Stop,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var (
	defaultOnce  sync.Once
	defaultGuard *Guard
)

// Default returns the process-wide Guard.
func Default() *Guard {
	defaultOnce.Do(func() {
		defaultGuard = New(WithLogger(logger.WithComponent("shutdown")))
	})
	return defaultGuard
}

// Register adds d under key. It is a no-op once the guard is closed or
// destroying.
func (g *Guard) Register(key string, d Destroyer) {
	if g == nil || d == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || g.firing {
		return
	}
	g.hooks[key] = d
	g.installLocked()
}

// Unregister removes key. Unknown keys are ignored.
func (g *Guard) Unregister(key string) {
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.firing {
		return
	}
	delete(g.hooks, key)
}

// Len returns the number of registered children.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.hooks)
}

// DestroyAll destroys every registered child and empties the registry.
// Failures are logged, never returned.
func (g *Guard) DestroyAll() {
	g.mu.Lock()
	if g.firing {
		g.mu.Unlock()
		return
	}
	g.firing = true
	hooks := g.hooks
	g.hooks = make(map[string]Destroyer)
	g.mu.Unlock()

	for key, d := range hooks {
		g.destroy(key, d)
	}

	g.mu.Lock()
	g.firing = false
	g.mu.Unlock()
}

// Close stops signal handling. Later registrations are ignored.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	g.uninstallLocked()
}

func (g *Guard) destroy(key string, d Destroyer) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Warn("destroy hook panicked", logger.Fields(logger.FieldInvocationID, key, "panic", r))
		}
	}()
	if err := d.Destroy(); err != nil {
		g.log.Warn("failed to destroy child", logger.Fields(logger.FieldInvocationID, key, logger.FieldError, err.Error()))
	}
}

func (g *Guard) installLocked() {
	if g.sigCh != nil || len(g.signals) == 0 {
		return
	}
	g.sigCh = make(chan os.Signal, 1)
	g.stopCh = make(chan struct{})
	g.notify(g.sigCh, g.signals...)
	go g.watch(g.sigCh, g.stopCh)
}

func (g *Guard) uninstallLocked() {
	if g.sigCh == nil {
		return
	}
	g.unnotify(g.sigCh)
	close(g.stopCh)
	g.sigCh, g.stopCh = nil, nil
}

// watch waits for one termination signal, destroys the children, and hands
// the signal back to the host so its own handling (or the default action)
// still applies.
func (g *Guard) watch(sigCh chan os.Signal, stopCh chan struct{}) {
	select {
	case sig := <-sigCh:
		g.log.Warn("termination signal received, destroying children", logger.Fields("signal", sig.String()))
		g.DestroyAll()
		g.mu.Lock()
		g.closed = true
		g.uninstallLocked()
		g.mu.Unlock()
		g.reraise(sig)
	case <-stopCh:
	}
}
