package resp

import "errors"

// ErrIncomplete is returned by Decode when the buffer does not yet hold one
// complete top-level value. It is not a failure: zero bytes were consumed
// and the caller re-invokes Decode once more bytes are available.
var ErrIncomplete = errors.New("resp: incomplete value")

// ErrUnterminatedQuote is returned by SplitCommand when a quoted segment is
// not closed before the end of the command line.
var ErrUnterminatedQuote = errors.New("resp: unterminated quote in command")

// ParseError represents malformed wire data: a bad leading byte, a
// non-numeric length line, an overlong length, or a missing CRLF
// terminator. The stream position is no longer trustworthy, so at the
// connection level a ParseError is fatal to the connection.
type ParseError struct {
	Message string
	Err     error // underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "resp: " + e.Message + ": " + e.Err.Error()
	}
	return "resp: " + e.Message
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ParseError) Unwrap() error {
	return e.Err
}
