package respwire

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/orange-cat-cat/respwire/resp"
)

var (
	ErrConnectionClosed = errors.New("respwire: connection closed")
)

// Connection is a single client connection carrying pipelined batches. A
// batch is one write of all commands followed by one read per command, so
// replies always come back in command order.
type Connection struct {
	addr     string
	conn     net.Conn
	dec      *streamDecoder
	auth     Authenticator
	mu       sync.Mutex
	authDone bool
	lastUsed time.Time
	closed   bool
}

// NewConnection dials addr over TCP with the given timeout. The
// authenticator, when not nil, runs before the first batch.
func NewConnection(addr string, timeout time.Duration, auth Authenticator) (*Connection, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	return WrapConnection(addr, conn, auth), nil
}

// WrapConnection builds a Connection over an already established net.Conn.
func WrapConnection(addr string, conn net.Conn, auth Authenticator) *Connection {
	return &Connection{
		addr:     addr,
		conn:     conn,
		dec:      newStreamDecoder(conn),
		auth:     auth,
		lastUsed: time.Now(),
	}
}

// Do writes the whole batch in one shot and reads exactly one reply per
// command, in command order. Error replies from the peer (the "-..." wire
// form) come back as values inside the Response, not as a Go error; a
// non-nil error means the batch failed as a whole and the connection is no
// longer usable.
func (c *Connection) Do(ctx context.Context, req *Request) (*Response, error) {
	out := &Response{}
	if req.CommandCount() == 0 {
		return out, nil
	}

	// Check if context is already cancelled
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrConnectionClosed
	}

	// Set deadline based on context
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(deadline)
	} else {
		// Clear deadline if context doesn't have one
		c.conn.SetDeadline(time.Time{})
	}

	if err := c.authenticate(); err != nil {
		c.markClosed()
		return nil, err
	}

	if _, err := c.conn.Write(req.Bytes()); err != nil {
		c.markClosed()
		return nil, fmt.Errorf("respwire: write batch: %w", err)
	}

	arena := out.decodeArena()
	for i := 0; i < req.CommandCount(); i++ {
		v, err := c.dec.next(arena)
		if err != nil {
			// The stream position is unknown now; the connection cannot
			// carry another batch.
			c.markClosed()
			return nil, fmt.Errorf("respwire: read reply %d of %d: %w", i+1, req.CommandCount(), err)
		}
		out.addReply(v)
	}

	c.lastUsed = time.Now()
	return out, nil
}

// authenticate runs the authenticator's commands once per connection and
// consumes their replies before any user reply enters the stream.
func (c *Connection) authenticate() error {
	if c.auth == nil || c.authDone {
		return nil
	}
	c.authDone = true

	areq, err := c.auth.Commands()
	if err != nil {
		return fmt.Errorf("respwire: build auth commands: %w", err)
	}
	if areq == nil || areq.CommandCount() == 0 {
		return nil
	}
	if _, err := c.conn.Write(areq.Bytes()); err != nil {
		return fmt.Errorf("respwire: write auth commands: %w", err)
	}
	arena := resp.NewArena()
	for i := 0; i < areq.CommandCount(); i++ {
		v, err := c.dec.next(arena)
		if err != nil {
			return fmt.Errorf("respwire: read auth reply: %w", err)
		}
		if v.IsError() {
			return fmt.Errorf("respwire: authentication rejected: %s", v.Text())
		}
	}
	return nil
}

// LastUsed returns when the connection last completed a batch.
func (c *Connection) LastUsed() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed
}

// IsClosed returns whether the connection is closed
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Addr returns the connection address
func (c *Connection) Addr() string {
	return c.addr
}

// Close closes the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	return c.conn.Close()
}

// markClosed abandons the connection after a mid-batch failure. Must be
// called with the lock held.
func (c *Connection) markClosed() {
	c.closed = true
	c.conn.Close()
}

// Ping sends a PING command and waits for its reply, verifying the
// connection can still carry traffic.
func (c *Connection) Ping(ctx context.Context) error {
	req := NewRequest()
	if err := req.AddCommandByComponents("PING"); err != nil {
		return err
	}
	_, err := c.Do(ctx, req)
	return err
}
