package process

import (
	"context"
	"io"
	"time"

	"github.com/kbukum/execkit/cmdline"
	"github.com/kbukum/execkit/errors"
	"github.com/kbukum/execkit/logger"
	"github.com/kbukum/execkit/resilience"
)

// Runner executes commands through an Adapter, retrying failures marked
// retryable (timeouts) and capping the number of concurrent children.
type Runner struct {
	adapter *Adapter
	retry   resilience.RetryConfig
	limiter *resilience.Limiter
}

// NewRunner builds a Runner from the adapter's retry and limit settings.
func NewRunner(adapter *Adapter) *Runner {
	cfg := adapter.Config()
	return &Runner{
		adapter: adapter,
		retry:   cfg.Retry,
		limiter: resilience.NewLimiter(cfg.Limit),
	}
}

// Run executes cmd, retrying as configured. Consumers see the lines of
// every attempt. A stdin reader is rewound between attempts when it is an
// io.Seeker; otherwise only one attempt is made.
func (r *Runner) Run(ctx context.Context, cmd *cmdline.Command, opts Options) (*Result, error) {
	release, err := r.limiter.Acquire(ctx)
	if err != nil {
		return nil, errors.SpawnFailed(cmd.Executable(), err)
	}
	defer release()

	retry := r.retry
	seeker, rewindable := opts.Stdin.(io.Seeker)
	if opts.Stdin != nil && !rewindable {
		retry.MaxAttempts = 1
	}
	if rewindable {
		// the feeder closes a closable source; the caller keeps ownership
		opts.Stdin = keepOpen{opts.Stdin}
	}
	log := r.logger(opts)
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		log.Info("retrying process", logger.Fields(
			logger.FieldCommand, cmd.String(),
			"attempt", attempt,
			"backoff_ms", backoff.Milliseconds(),
			logger.FieldError, err.Error(),
		))
	}

	return resilience.Retry(ctx, retry, func(attempt int) (*Result, error) {
		if attempt > 1 && rewindable {
			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return nil, errors.StreamFailed("stdin", err)
			}
		}
		return r.adapter.Execute(ctx, cmd, opts)
	})
}

// keepOpen exposes only Read, so the source outlives each attempt.
type keepOpen struct{ io.Reader }

func (r *Runner) logger(opts Options) *logger.Logger {
	if opts.Logger != nil {
		return opts.Logger.WithComponent("process")
	}
	if r.adapter.log != nil {
		return r.adapter.log.WithComponent("process")
	}
	return logger.WithComponent("process")
}
