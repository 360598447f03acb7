package stream

import (
	"bufio"
	stderrors "errors"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
)

// Pumper relays lines from a process output stream to a LineConsumer.
type Pumper struct {
	relay
	src      io.Reader
	consumer LineConsumer
	enc      encoding.Encoding
}

var _ Relay = (*Pumper)(nil)

// PumperOption configures a Pumper.
type PumperOption func(*Pumper)

// WithEncoding decodes the stream with enc before splitting lines.
func WithEncoding(enc encoding.Encoding) PumperOption {
	return func(p *Pumper) { p.enc = enc }
}

// WithName sets the stream name used in errors.
func WithName(name string) PumperOption {
	return func(p *Pumper) { p.name = name }
}

// NewPumper creates a Pumper over src. A nil consumer discards lines.
func NewPumper(src io.Reader, consumer LineConsumer, opts ...PumperOption) *Pumper {
	if consumer == nil {
		consumer = Discard
	}
	p := &Pumper{src: src, consumer: consumer}
	p.init("output")
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the pump goroutine.
func (p *Pumper) Start() {
	if !p.begin() {
		return
	}
	go p.run()
}

// Close closes the source, unblocking a pending read. The relay treats
// the resulting error as end of stream.
func (p *Pumper) Close() error {
	if c, ok := p.src.(io.Closer); ok {
		if err := c.Close(); err != nil && !isClosedErr(err) {
			return err
		}
	}
	return nil
}

func (p *Pumper) run() {
	defer p.finish()
	defer func() {
		if err := p.Close(); err != nil {
			p.recordErr(err)
		}
	}()

	reader := bufio.NewReader(decodingReader(p.src, p.enc))
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			p.forward(trimEOL(line))
		}
		if err != nil {
			if err != io.EOF && !isClosedErr(err) {
				p.recordErr(err)
			}
			return
		}
	}
}

// forward hands line to the consumer unless the relay is disabled or the
// consumer already failed. A failed consumer stops receiving lines but the
// stream keeps draining.
func (p *Pumper) forward(line string) {
	if p.disabled.Load() || p.hasErr() {
		return
	}
	if err := p.consumer.ConsumeLine(line); err != nil {
		p.recordErr(err)
	}
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

func isClosedErr(err error) bool {
	return stderrors.Is(err, os.ErrClosed) || stderrors.Is(err, io.ErrClosedPipe)
}
