package respwire

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/orange-cat-cat/respwire/resp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// kvHandler is a small in-memory key/value handler used across the server
// tests. It understands PING, SET, GET, DEL and SLEEPECHO (reply with the
// payload after a delay, for pipelining tests).
type kvHandler struct {
	mu   sync.Mutex
	data map[string]string
}

func newKVHandler() *kvHandler {
	return &kvHandler{data: make(map[string]string)}
}

func (h *kvHandler) Handle(cmd *resp.Value, arena *resp.Arena) *resp.Value {
	name := strings.ToUpper(cmd.Elem(0).Text())
	reply := arena.NewValue()

	switch name {
	case "PING":
		reply.SetStatus("PONG", arena)

	case "SET":
		if cmd.Len() != 3 {
			reply.SetError("ERR wrong number of arguments for 'set' command", arena)
			break
		}
		h.mu.Lock()
		h.data[cmd.Elem(1).Text()] = cmd.Elem(2).Text()
		h.mu.Unlock()
		reply.SetStatus("OK", arena)

	case "GET":
		h.mu.Lock()
		val, ok := h.data[cmd.Elem(1).Text()]
		h.mu.Unlock()
		if !ok {
			reply.SetNilString()
			break
		}
		reply.SetString([]byte(val), arena)

	case "DEL":
		h.mu.Lock()
		_, ok := h.data[cmd.Elem(1).Text()]
		delete(h.data, cmd.Elem(1).Text())
		h.mu.Unlock()
		n := int64(0)
		if ok {
			n = 1
		}
		reply.SetInteger(n)

	case "SLEEPECHO":
		ms, _ := strconv.Atoi(cmd.Elem(2).Text())
		time.Sleep(time.Duration(ms) * time.Millisecond)
		reply.SetString([]byte(cmd.Elem(1).Text()), arena)

	default:
		reply.SetError(fmt.Sprintf("ERR unknown command '%s'", name), arena)
	}
	return reply
}

// startTestServer runs a server on a loopback listener and returns its
// address. The server is shut down when the test finishes.
func startTestServer(t *testing.T, handler Handler) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(handler, ServerConfig{})
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	return ln.Addr().String()
}

func dialTestServer(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetDeadline(time.Now().Add(10 * time.Second))
	return conn
}

func readReply(t *testing.T, dec *streamDecoder) *resp.Value {
	t.Helper()
	v, err := dec.next(resp.NewArena())
	require.NoError(t, err)
	return v
}

func TestServerBasicCommands(t *testing.T) {
	addr := startTestServer(t, newKVHandler())
	conn := dialTestServer(t, addr)
	dec := newStreamDecoder(conn)

	_, err := conn.Write([]byte("*3\r\n$3\r\nSET\r\n$1\r\na\r\n$2\r\nhi\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "OK", readReply(t, dec).Text())

	_, err = conn.Write([]byte("*2\r\n$3\r\nGET\r\n$1\r\na\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "hi", readReply(t, dec).Text())

	_, err = conn.Write([]byte("*2\r\n$3\r\nGET\r\n$7\r\nmissing\r\n"))
	require.NoError(t, err)
	assert.True(t, readReply(t, dec).IsNil())
}

func TestServerPipelinedRepliesInOrder(t *testing.T) {
	addr := startTestServer(t, newKVHandler())
	conn := dialTestServer(t, addr)
	dec := newStreamDecoder(conn)

	// Later commands are faster than earlier ones; replies must still come
	// back in submission order.
	const n = 10
	var batch []byte
	for i := 0; i < n; i++ {
		payload := fmt.Sprintf("msg-%d", i)
		delay := strconv.Itoa((n - i) % 4)
		batch = resp.AppendCommand(batch, [][]byte{
			[]byte("SLEEPECHO"), []byte(payload), []byte(delay),
		})
	}
	_, err := conn.Write(batch)
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		v := readReply(t, dec)
		require.True(t, v.IsString())
		assert.Equal(t, fmt.Sprintf("msg-%d", i), v.Text())
	}
}

func TestServerConnectionsAreIndependent(t *testing.T) {
	addr := startTestServer(t, newKVHandler())

	// A slow command on one connection must not delay another connection.
	slow := dialTestServer(t, addr)
	_, err := slow.Write([]byte("*3\r\n$9\r\nSLEEPECHO\r\n$4\r\nslow\r\n$3\r\n300\r\n"))
	require.NoError(t, err)

	fast := dialTestServer(t, addr)
	fastDec := newStreamDecoder(fast)
	start := time.Now()
	_, err = fast.Write([]byte("*1\r\n$4\r\nPING\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "PONG", readReply(t, fastDec).Text())
	assert.Less(t, time.Since(start), 250*time.Millisecond)

	slowDec := newStreamDecoder(slow)
	assert.Equal(t, "slow", readReply(t, slowDec).Text())
}

func TestServerRejectsNonArrayCommand(t *testing.T) {
	addr := startTestServer(t, newKVHandler())
	conn := dialTestServer(t, addr)
	dec := newStreamDecoder(conn)

	// A well-framed value of the wrong shape gets an error reply, and the
	// connection keeps working.
	_, err := conn.Write([]byte(":5\r\n"))
	require.NoError(t, err)
	v := readReply(t, dec)
	require.True(t, v.IsError())
	assert.Equal(t, "command not valid array", v.Text())

	_, err = conn.Write([]byte("*1\r\n$4\r\nPING\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "PONG", readReply(t, dec).Text())
}

func TestServerRejectsNonStringCommandName(t *testing.T) {
	addr := startTestServer(t, newKVHandler())
	conn := dialTestServer(t, addr)
	dec := newStreamDecoder(conn)

	_, err := conn.Write([]byte("*2\r\n:1\r\n:2\r\n"))
	require.NoError(t, err)
	v := readReply(t, dec)
	require.True(t, v.IsError())
	assert.Equal(t, "command not string", v.Text())

	// Empty arrays are rejected the same way.
	_, err = conn.Write([]byte("*0\r\n"))
	require.NoError(t, err)
	v = readReply(t, dec)
	require.True(t, v.IsError())
	assert.Equal(t, "command not valid array", v.Text())
}

func TestServerMalformedInputClosesConnection(t *testing.T) {
	addr := startTestServer(t, newKVHandler())
	conn := dialTestServer(t, addr)
	dec := newStreamDecoder(conn)

	_, err := conn.Write([]byte("=bogus\r\n"))
	require.NoError(t, err)

	// Best-effort error reply, then the connection goes away.
	v, err := dec.next(resp.NewArena())
	if err == nil {
		require.True(t, v.IsError())
		assert.Contains(t, v.Text(), "protocol error")
		_, err = dec.next(resp.NewArena())
	}
	assert.Error(t, err)
}

func TestServerHandlerErrorRepliesKeepConnectionOpen(t *testing.T) {
	addr := startTestServer(t, newKVHandler())
	conn := dialTestServer(t, addr)
	dec := newStreamDecoder(conn)

	_, err := conn.Write([]byte("*1\r\n$7\r\nNOSUCH1\r\n*1\r\n$4\r\nPING\r\n"))
	require.NoError(t, err)

	v := readReply(t, dec)
	require.True(t, v.IsError())
	assert.Contains(t, v.Text(), "unknown command")
	assert.Equal(t, "PONG", readReply(t, dec).Text())
}

func TestServerNilHandlerReplyBecomesNil(t *testing.T) {
	handler := HandlerFunc(func(cmd *resp.Value, arena *resp.Arena) *resp.Value {
		return nil
	})
	addr := startTestServer(t, handler)
	conn := dialTestServer(t, addr)
	dec := newStreamDecoder(conn)

	_, err := conn.Write([]byte("*1\r\n$4\r\nPING\r\n"))
	require.NoError(t, err)
	assert.True(t, readReply(t, dec).IsNil())
}

func TestServerUnencodableReplySubstituted(t *testing.T) {
	handler := HandlerFunc(func(cmd *resp.Value, arena *resp.Arena) *resp.Value {
		v := arena.NewValue()
		v.SetStatus("bad\r\nstatus", arena)
		return v
	})
	addr := startTestServer(t, handler)
	conn := dialTestServer(t, addr)
	dec := newStreamDecoder(conn)

	_, err := conn.Write([]byte("*1\r\n$4\r\nPING\r\n"))
	require.NoError(t, err)
	v := readReply(t, dec)
	require.True(t, v.IsError())
	assert.Contains(t, v.Text(), "not encodable")
}

func TestServerClose(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(newKVHandler(), ServerConfig{})
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	conn := dialTestServer(t, ln.Addr().String())
	dec := newStreamDecoder(conn)
	_, err = conn.Write([]byte("*1\r\n$4\r\nPING\r\n"))
	require.NoError(t, err)
	require.Equal(t, "PONG", readReply(t, dec).Text())

	require.NoError(t, srv.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrServerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Close")
	}

	// The live connection was torn down too.
	_, err = dec.next(resp.NewArena())
	assert.Error(t, err)
}
