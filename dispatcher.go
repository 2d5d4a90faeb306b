package respwire

import (
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/orange-cat-cat/respwire/resp"
)

// Handler processes one decoded command and produces its reply. The command
// is always an array whose first element is a string; both were validated
// before dispatch. The reply may be allocated from arena, which is reset
// after the reply is written, so handlers must not retain the command or
// the reply past the call.
//
// A handler runs for one command at a time per connection, but concurrently
// across connections. Shared state needs its own synchronization.
type Handler interface {
	Handle(cmd *resp.Value, arena *resp.Arena) *resp.Value
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(cmd *resp.Value, arena *resp.Arena) *resp.Value

func (f HandlerFunc) Handle(cmd *resp.Value, arena *resp.Arena) *resp.Value {
	return f(cmd, arena)
}

// connDispatcher runs the per-connection server loop: decode one command,
// dispatch it, write the reply, then immediately try the next buffered
// command. Commands on one connection are strictly sequential, so replies
// leave in arrival order even when the client pipelines.
type connDispatcher struct {
	conn        net.Conn
	handler     Handler
	logger      *slog.Logger
	idleTimeout time.Duration
	buf         []byte
	out         []byte
	arena       *resp.Arena
}

func newConnDispatcher(conn net.Conn, handler Handler, logger *slog.Logger, idleTimeout time.Duration) *connDispatcher {
	return &connDispatcher{
		conn:        conn,
		handler:     handler,
		logger:      logger,
		idleTimeout: idleTimeout,
		arena:       resp.NewArena(),
	}
}

func (d *connDispatcher) serve() {
	defer d.conn.Close()

	var chunk [readChunkSize]byte
	for {
		if d.idleTimeout > 0 {
			if err := d.conn.SetReadDeadline(time.Now().Add(d.idleTimeout)); err != nil {
				return
			}
		}
		n, readErr := d.conn.Read(chunk[:])
		d.buf = append(d.buf, chunk[:n]...)

		// Drain every complete command already buffered before reading
		// more; a pipelining client gets all its replies without further
		// round trips.
		for {
			cmd, consumed, err := resp.Decode(d.buf, d.arena)
			if errors.Is(err, resp.ErrIncomplete) {
				break
			}
			if err != nil {
				// The stream is corrupt past this point. Send a
				// best-effort error reply and tear the connection down.
				d.logger.Debug("protocol error, closing connection",
					"remote", d.conn.RemoteAddr(), "error", err)
				d.writeProtocolError(err)
				return
			}
			d.buf = d.buf[:copy(d.buf, d.buf[consumed:])]

			reply := d.dispatch(cmd)
			out, encErr := resp.AppendValue(d.out[:0], reply)
			if encErr != nil {
				// Handler produced an unencodable reply (CR or LF in a
				// status or error line). Substitute a generic error so
				// the one-reply-per-command contract holds.
				d.logger.Error("reply not encodable",
					"remote", d.conn.RemoteAddr(), "error", encErr)
				out, _ = resp.AppendValue(d.out[:0], errUnencodableReply)
			}
			d.out = out
			if _, err := d.conn.Write(d.out); err != nil {
				return
			}
			d.arena.Reset()
		}

		if readErr != nil {
			return
		}
	}
}

var errUnencodableReply = func() *resp.Value {
	a := resp.NewArena()
	v := a.NewValue()
	v.SetError("ERR reply not encodable", a)
	return v
}()

// dispatch validates the command shape and hands it to the handler. Shape
// violations get an error reply but keep the connection open; the framing
// itself was valid, so the stream position is still known.
func (d *connDispatcher) dispatch(cmd *resp.Value) *resp.Value {
	if !cmd.IsArray() || cmd.Len() == 0 {
		v := d.arena.NewValue()
		v.SetError("command not valid array", d.arena)
		return v
	}
	if !cmd.Elem(0).IsString() {
		v := d.arena.NewValue()
		v.SetError("command not string", d.arena)
		return v
	}
	reply := d.handler.Handle(cmd, d.arena)
	if reply == nil {
		v := d.arena.NewValue()
		v.SetNil()
		return v
	}
	return reply
}

// writeProtocolError tries to tell the peer why the connection is going
// away. The peer may be mid-frame and unable to read it; failures here are
// ignored.
func (d *connDispatcher) writeProtocolError(err error) {
	arena := resp.NewArena()
	v := arena.NewValue()
	v.SetError("ERR protocol error: "+err.Error(), arena)
	if buf, encErr := resp.AppendValue(nil, v); encErr == nil {
		d.conn.Write(buf)
	}
}
