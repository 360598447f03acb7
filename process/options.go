package process

import (
	"io"
	"time"

	"github.com/kbukum/execkit/logger"
	"github.com/kbukum/execkit/observability"
	"github.com/kbukum/execkit/shutdown"
	"github.com/kbukum/execkit/stream"
)

// Options controls one invocation. The zero value runs the command with no
// stdin, discards its output and never times out.
type Options struct {
	// Stdin is copied to the child's stdin and then closed. The feeder is
	// joined during teardown, so a reader that can block forever must also
	// implement io.Closer.
	Stdin io.Reader
	// Stdout and Stderr receive decoded lines without their terminators.
	Stdout stream.LineConsumer
	Stderr stream.LineConsumer
	// Timeout kills the child once elapsed, measured from spawn. Zero
	// disables it.
	Timeout time.Duration
	// OnTerminate runs during teardown after the relays are disabled and
	// before the child is destroyed.
	OnTerminate func()
	// Encoding names the charset of the child's output. Empty means UTF-8.
	Encoding string

	Spawner Spawner
	Guard   *shutdown.Guard
	Logger  *logger.Logger
	Metrics *observability.InvocationMetrics
}

func (o *Options) applyDefaults() {
	if o.Spawner == nil {
		o.Spawner = ExecSpawner{}
	}
	if o.Guard == nil {
		o.Guard = shutdown.Default()
	}
	if o.Logger == nil {
		o.Logger = logger.GetGlobalLogger()
	}
	if o.Metrics == nil {
		o.Metrics = observability.DefaultInvocationMetrics()
	}
}
