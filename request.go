package respwire

import (
	"errors"
	"fmt"
	"io"

	"github.com/orange-cat-cat/respwire/resp"
)

// ErrEmptyCommand is returned when a command line or component list yields
// no arguments at all.
var ErrEmptyCommand = errors.New("respwire: command has no arguments")

// Request is an ordered batch of commands sent over one connection in a
// single pipelined write. Each command is framed as a RESP array of bulk
// strings, one per argument, copied into a contiguous wire-ready buffer at
// append time.
//
// A Request is built once per call and can be reused after Clear. It is not
// safe for concurrent use.
type Request struct {
	buf      []byte
	ncommand int

	// routing key: the first command's first key argument, captured so a
	// pooled client can pick a server without re-parsing the wire buffer.
	firstKey string
	hasKey   bool
}

// NewRequest returns an empty request batch.
func NewRequest() *Request {
	return &Request{}
}

// AddCommand applies fmt.Sprintf substitution to format, splits the result
// with shell-style quoting (see resp.SplitCommand), and appends the command
// to the batch.
//
// On a quoting error the command is not added and the batch remains usable
// for further commands.
func (r *Request) AddCommand(format string, args ...any) error {
	line := format
	if len(args) > 0 {
		line = fmt.Sprintf(format, args...)
	}
	components, err := resp.SplitCommand(line)
	if err != nil {
		return err
	}
	if len(components) == 0 {
		return ErrEmptyCommand
	}
	r.appendCommand(components)
	return nil
}

// AddCommandByComponents appends a command from pre-split arguments,
// bypassing quoting entirely: each component becomes exactly one argument
// verbatim, including embedded spaces or quote characters.
func (r *Request) AddCommandByComponents(components ...string) error {
	if len(components) == 0 {
		return ErrEmptyCommand
	}
	args := make([][]byte, len(components))
	for i, c := range components {
		args[i] = []byte(c)
	}
	r.appendCommand(args)
	return nil
}

func (r *Request) appendCommand(args [][]byte) {
	if r.ncommand == 0 && len(args) > 1 {
		r.firstKey = string(args[1])
		r.hasKey = true
	}
	r.buf = resp.AppendCommand(r.buf, args)
	r.ncommand++
}

// CommandCount returns the number of commands in the batch. The reply
// stream of an executed batch holds exactly this many values.
func (r *Request) CommandCount() int {
	return r.ncommand
}

// Bytes returns the wire form of the whole batch. The slice is owned by the
// request and is invalidated by the next AddCommand or Clear.
func (r *Request) Bytes() []byte {
	return r.buf
}

// Clear resets the batch to zero commands, retaining the buffer for reuse.
func (r *Request) Clear() {
	r.buf = r.buf[:0]
	r.ncommand = 0
	r.firstKey = ""
	r.hasKey = false
}

// WriteTo writes the wire form of the batch to w.
func (r *Request) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.buf)
	return int64(n), err
}

// routingKey returns the first command's key argument (its second
// component), used by the pooled client for server selection.
func (r *Request) routingKey() (string, bool) {
	return r.firstKey, r.hasKey
}
