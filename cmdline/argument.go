package cmdline

import (
	"fmt"
	"path/filepath"
)

// ArgumentKind identifies which payload an Argument carries.
type ArgumentKind int

const (
	// KindNone marks an argument with no payload; it renders to nothing.
	KindNone ArgumentKind = iota
	// KindValue is a single literal value.
	KindValue
	// KindLine is a raw line tokenized into several values.
	KindLine
	// KindFile is a file path passed as its absolute form.
	KindFile
)

// String returns a human-readable kind name.
func (k ArgumentKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValue:
		return "value"
	case KindLine:
		return "line"
	case KindFile:
		return "file"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Argument is one command-line argument. Exactly one payload is active;
// setting a payload replaces the previous one.
type Argument struct {
	kind    ArgumentKind
	payload string

	// Masked hides the value in human-readable renderings.
	Masked bool
}

// SetValue makes the argument a single literal value.
func (a *Argument) SetValue(v string) {
	a.kind, a.payload = KindValue, v
}

// SetLine makes the argument a shell-style line, tokenized at render time.
func (a *Argument) SetLine(line string) {
	a.kind, a.payload = KindLine, line
}

// SetFile makes the argument a file path, rendered as an absolute path.
func (a *Argument) SetFile(path string) {
	a.kind, a.payload = KindFile, path
}

// Kind returns the active payload kind.
func (a *Argument) Kind() ArgumentKind { return a.kind }

// Parts resolves the argument into the values passed to the process.
func (a *Argument) Parts() ([]string, error) {
	switch a.kind {
	case KindValue:
		return []string{a.payload}, nil
	case KindLine:
		return Tokenize(a.payload)
	case KindFile:
		abs, err := filepath.Abs(a.payload)
		if err != nil {
			return nil, fmt.Errorf("resolve file argument %q: %w", a.payload, err)
		}
		return []string{abs}, nil
	default:
		return nil, nil
	}
}
