package stream

import (
	"io"
	"sync"

	"github.com/kbukum/execkit/logger"
)

// LineConsumer receives lines relayed from a process stream. It is called
// from a relay goroutine, never concurrently for the same relay.
type LineConsumer interface {
	ConsumeLine(line string) error
}

// LineConsumerFunc adapts a function to LineConsumer.
type LineConsumerFunc func(line string) error

// ConsumeLine calls f(line).
func (f LineConsumerFunc) ConsumeLine(line string) error { return f(line) }

// Discard drops every line.
var Discard LineConsumer = LineConsumerFunc(func(string) error { return nil })

// LineCollector accumulates lines in memory. Safe for concurrent use.
type LineCollector struct {
	mu    sync.Mutex
	lines []string
}

// ConsumeLine appends line.
func (c *LineCollector) ConsumeLine(line string) error {
	c.mu.Lock()
	c.lines = append(c.lines, line)
	c.mu.Unlock()
	return nil
}

// Lines returns a copy of the collected lines.
func (c *LineCollector) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of collected lines.
func (c *LineCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// WriterConsumer writes each line followed by a newline to w.
func WriterConsumer(w io.Writer) LineConsumer {
	var mu sync.Mutex
	return LineConsumerFunc(func(line string) error {
		mu.Lock()
		defer mu.Unlock()
		_, err := io.WriteString(w, line+"\n")
		return err
	})
}

// LogConsumer logs each line at info level, tagged with the stream name.
func LogConsumer(log *logger.Logger, stream string) LineConsumer {
	l := log.WithFields(logger.Fields(logger.FieldStream, stream))
	return LineConsumerFunc(func(line string) error {
		l.Info(line)
		return nil
	})
}

// Tee forwards each line to every consumer, stopping at the first error.
func Tee(consumers ...LineConsumer) LineConsumer {
	return LineConsumerFunc(func(line string) error {
		for _, c := range consumers {
			if err := c.ConsumeLine(line); err != nil {
				return err
			}
		}
		return nil
	})
}
