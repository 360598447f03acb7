package cmdline

import (
	stderrors "errors"
	"strings"

	"github.com/kbukum/execkit/errors"
)

// ErrUnbalancedQuote is the cause of a tokenize failure when the line ends
// inside a quoted section.
var ErrUnbalancedQuote = stderrors.New("unbalanced quotes")

// doubleQuoteEscapable lists the characters a backslash escapes inside
// double quotes. Before any other character the backslash is literal.
const doubleQuoteEscapable = "\"\\$`"

type tokenState int

const (
	stateNormal tokenState = iota
	stateInSingle
	stateInDouble
)

// Tokenize splits a shell-style line into tokens.
//
// Whitespace separates tokens outside quotes. A quote of one kind is literal
// inside a section quoted by the other kind. A backslash escapes the next
// character outside quotes, and escapes " \ $ ` inside double quotes; it is
// literal inside single quotes. An explicitly quoted empty string yields an
// empty token. Ending inside a quote fails with ErrUnbalancedQuote.
func Tokenize(line string) ([]string, error) {
	var (
		tokens  []string
		current strings.Builder
		state   = stateNormal
		// inToken is set once a token has started, so that "" produces an
		// empty token instead of nothing.
		inToken bool
		escaped bool
	)

	flush := func() {
		if inToken {
			tokens = append(tokens, current.String())
			current.Reset()
			inToken = false
		}
	}

	for _, r := range line {
		if escaped {
			escaped = false
			if state == stateInDouble && !strings.ContainsRune(doubleQuoteEscapable, r) {
				current.WriteRune('\\')
			}
			current.WriteRune(r)
			continue
		}

		switch state {
		case stateInSingle:
			if r == '\'' {
				state = stateNormal
				continue
			}
			current.WriteRune(r)

		case stateInDouble:
			switch r {
			case '"':
				state = stateNormal
			case '\\':
				escaped = true
			default:
				current.WriteRune(r)
			}

		default:
			switch r {
			case '\'':
				state = stateInSingle
				inToken = true
			case '"':
				state = stateInDouble
				inToken = true
			case '\\':
				escaped = true
				inToken = true
			case ' ', '\t', '\n', '\r':
				flush()
			default:
				current.WriteRune(r)
				inToken = true
			}
		}
	}

	if state != stateNormal {
		return nil, errors.InvalidInput("line", "unbalanced quotes in "+quoteForMessage(line)).
			WithCause(ErrUnbalancedQuote)
	}
	if escaped {
		// trailing backslash stands for itself
		current.WriteRune('\\')
	}
	flush()
	return tokens, nil
}

func quoteForMessage(line string) string {
	return "[" + line + "]"
}
