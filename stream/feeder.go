package stream

import (
	stderrors "errors"
	"io"
	"sync"
	"syscall"
)

const feedBufferSize = 32 * 1024

// Feeder copies bytes from a caller source into a process stdin.
type Feeder struct {
	relay
	src io.Reader
	dst io.WriteCloser

	closeOnce sync.Once
	closed    chan struct{}
}

var _ Relay = (*Feeder)(nil)

// NewFeeder creates a Feeder copying src into dst.
func NewFeeder(src io.Reader, dst io.WriteCloser) *Feeder {
	f := &Feeder{src: src, dst: dst, closed: make(chan struct{})}
	f.init("stdin")
	return f
}

// Start launches the feed goroutine.
func (f *Feeder) Start() {
	if !f.begin() {
		return
	}
	go f.run()
}

// Close closes both the source (when it is an io.Closer) and the sink.
// It is idempotent and safe to call while the feeder is running; errors
// caused by the concurrent close are not recorded.
func (f *Feeder) Close() {
	f.closeOnce.Do(func() {
		close(f.closed)
		if c, ok := f.src.(io.Closer); ok {
			if err := c.Close(); err != nil && !isClosedErr(err) {
				f.recordErr(err)
			}
		}
		if err := f.dst.Close(); err != nil && !isClosedErr(err) {
			f.recordErr(err)
		}
	})
}

func (f *Feeder) isClosing() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func (f *Feeder) run() {
	defer f.finish()
	defer f.Close()

	if err := f.feed(); err != nil && !f.isClosing() {
		f.recordErr(err)
		return
	}
	if fl, ok := f.dst.(interface{ Flush() error }); ok {
		if err := fl.Flush(); err != nil && !f.isClosing() && !brokenPipe(err) {
			f.recordErr(err)
		}
	}
}

func (f *Feeder) feed() error {
	buf := make([]byte, feedBufferSize)
	for !f.isClosing() {
		n, rerr := f.src.Read(buf)
		if n > 0 && !f.disabled.Load() {
			if _, werr := f.dst.Write(buf[:n]); werr != nil {
				// the child stopped reading its stdin: nothing left to feed
				if brokenPipe(werr) || isClosedErr(werr) {
					return nil
				}
				return werr
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			if isClosedErr(rerr) {
				return nil
			}
			return rerr
		}
	}
	return nil
}

func brokenPipe(err error) bool {
	return stderrors.Is(err, syscall.EPIPE)
}
