package stream

import (
	"bytes"
	stderrors "errors"
	"io"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

func waitDone(t *testing.T, r Relay) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not finish")
	}
}

func TestPumper_Lines(t *testing.T) {
	var c LineCollector
	p := NewPumper(strings.NewReader("one\ntwo\r\nthree"), &c)
	if p.State() != StateIdle {
		t.Fatalf("expected idle, got %v", p.State())
	}
	p.Start()
	p.Wait()

	want := []string{"one", "two", "three"}
	if got := c.Lines(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
	if p.State() != StateDone {
		t.Errorf("expected done, got %v", p.State())
	}
	if p.Err() != nil {
		t.Errorf("unexpected error: %v", p.Err())
	}
}

func TestPumper_EmptyLinesKept(t *testing.T) {
	var c LineCollector
	p := NewPumper(strings.NewReader("a\n\nb\n"), &c)
	p.Start()
	p.Wait()
	if got := c.Lines(); !reflect.DeepEqual(got, []string{"a", "", "b"}) {
		t.Errorf("got %q", got)
	}
}

func TestPumper_LongLine(t *testing.T) {
	long := strings.Repeat("x", 256*1024)
	var c LineCollector
	p := NewPumper(strings.NewReader(long+"\nshort\n"), &c)
	p.Start()
	p.Wait()

	lines := c.Lines()
	if len(lines) != 2 || lines[0] != long || lines[1] != "short" {
		t.Fatalf("long line not relayed intact: %d lines", len(lines))
	}
}

func TestPumper_DisabledKeepsDraining(t *testing.T) {
	pr, pw := io.Pipe()
	var c LineCollector
	p := NewPumper(pr, &c)
	p.Start()

	if _, err := io.WriteString(pw, "before\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for c.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	p.Disable()
	if p.State() != StateDisabled {
		t.Errorf("expected disabled, got %v", p.State())
	}
	// io.Pipe writes block until read, so these only return if the
	// disabled pumper is still draining.
	for i := 0; i < 100; i++ {
		if _, err := io.WriteString(pw, "after\n"); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	pw.Close()
	waitDone(t, p)

	if got := c.Lines(); !reflect.DeepEqual(got, []string{"before"}) {
		t.Errorf("disabled pumper forwarded lines: %q", got)
	}
}

func TestPumper_ConsumerFailure(t *testing.T) {
	boom := stderrors.New("consumer exploded")
	calls := 0
	consumer := LineConsumerFunc(func(line string) error {
		calls++
		if line == "two" {
			return boom
		}
		return nil
	})

	p := NewPumper(strings.NewReader("one\ntwo\nthree\nfour\n"), consumer)
	p.Start()
	p.Wait()

	if !stderrors.Is(p.Err(), boom) {
		t.Errorf("expected consumer error, got %v", p.Err())
	}
	if calls != 2 {
		t.Errorf("consumer should stop receiving after failing, got %d calls", calls)
	}
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestPumper_ReadFailure(t *testing.T) {
	ioErr := stderrors.New("device gone")
	p := NewPumper(io.MultiReader(strings.NewReader("ok\n"), failingReader{ioErr}), nil)
	p.Start()
	p.Wait()
	if !stderrors.Is(p.Err(), ioErr) {
		t.Errorf("expected read error, got %v", p.Err())
	}
}

func TestPumper_CloseUnblocksRead(t *testing.T) {
	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer pw.Close()

	p := NewPumper(pr, nil)
	p.Start()
	time.Sleep(20 * time.Millisecond)

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	waitDone(t, p)
	if p.Err() != nil {
		t.Errorf("closing the source is end of stream, got %v", p.Err())
	}
}

func TestPumper_Latin1(t *testing.T) {
	enc, err := LookupEncoding("latin1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	var c LineCollector
	p := NewPumper(bytes.NewReader([]byte{'c', 'a', 'f', 0xe9, '\n'}), &c, WithEncoding(enc), WithName("stdout"))
	p.Start()
	p.Wait()

	if got := c.Lines(); !reflect.DeepEqual(got, []string{"café"}) {
		t.Errorf("got %q", got)
	}
	if p.Name() != "stdout" {
		t.Errorf("expected name stdout, got %q", p.Name())
	}
}

func TestPumper_StartTwice(t *testing.T) {
	var c LineCollector
	p := NewPumper(strings.NewReader("x\n"), &c)
	p.Start()
	p.Start()
	p.Wait()
	if c.Len() != 1 {
		t.Errorf("expected one line, got %d", c.Len())
	}
}

func TestLookupEncoding(t *testing.T) {
	for _, name := range []string{"", "utf-8", "UTF-8", "windows-1252", "shift_jis"} {
		if _, err := LookupEncoding(name); err != nil {
			t.Errorf("LookupEncoding(%q): %v", name, err)
		}
	}
	if _, err := LookupEncoding("klingon-8"); err == nil {
		t.Error("expected error for unknown encoding")
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateIdle:     "idle",
		StateRunning:  "running",
		StateDisabled: "disabled",
		StateDone:     "done",
		State(42):     "unknown(42)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("%d: got %q, want %q", int(s), got, want)
		}
	}
}
