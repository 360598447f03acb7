package stream

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultEncoding is used when no encoding is named.
const DefaultEncoding = "utf-8"

// LookupEncoding resolves an encoding by its WHATWG/IANA name, such as
// "utf-8", "latin1", "windows-1252" or "shift_jis". An empty name selects
// DefaultEncoding.
func LookupEncoding(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultEncoding
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("stream: unknown encoding %q: %w", name, err)
	}
	return enc, nil
}

// decodingReader returns r decoded to UTF-8. UTF-8 input is returned as is.
func decodingReader(r io.Reader, enc encoding.Encoding) io.Reader {
	if enc == nil || enc == unicode.UTF8 || enc == encoding.Nop {
		return r
	}
	return transform.NewReader(r, enc.NewDecoder())
}
