package resilience

import (
	"context"
	"errors"
	"time"
)

// Limiter errors.
var (
	ErrLimiterFull    = errors.New("no free slot")
	ErrLimiterTimeout = errors.New("timed out waiting for a free slot")
)

// LimiterConfig configures a Limiter.
type LimiterConfig struct {
	// MaxConcurrent is the number of slots. Zero or less means unlimited.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=0"`
	// MaxWait bounds how long Acquire waits for a slot. Zero waits until the
	// context ends; negative fails at once when no slot is free.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
}

// Limiter is a counting semaphore. A nil *Limiter never blocks.
type Limiter struct {
	config LimiterConfig
	sem    chan struct{}
}

// NewLimiter returns nil when cfg imposes no limit.
func NewLimiter(cfg LimiterConfig) *Limiter {
	if cfg.MaxConcurrent <= 0 {
		return nil
	}
	return &Limiter{
		config: cfg,
		sem:    make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Acquire takes a slot. The returned release func must be called exactly
// once when the slot is no longer needed.
func (l *Limiter) Acquire(ctx context.Context) (release func(), err error) {
	if l == nil {
		return func() {}, nil
	}

	select {
	case l.sem <- struct{}{}:
		return l.release, nil
	default:
	}

	var timeout <-chan time.Time
	switch {
	case l.config.MaxWait < 0:
		return nil, ErrLimiterFull
	case l.config.MaxWait > 0:
		timer := time.NewTimer(l.config.MaxWait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case l.sem <- struct{}{}:
		return l.release, nil
	case <-timeout:
		return nil, ErrLimiterTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Limiter) release() { <-l.sem }

// InUse returns the number of held slots.
func (l *Limiter) InUse() int {
	if l == nil {
		return 0
	}
	return len(l.sem)
}

// MaxConcurrent returns the slot count, 0 for a nil limiter.
func (l *Limiter) MaxConcurrent() int {
	if l == nil {
		return 0
	}
	return l.config.MaxConcurrent
}
