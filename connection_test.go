package respwire

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionDo(t *testing.T) {
	addr := startTestServer(t, newKVHandler())
	conn, err := NewConnection(addr, 5*time.Second, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	req := NewRequest()
	require.NoError(t, req.AddCommand("set k v"))
	require.NoError(t, req.AddCommand("get k"))

	resp, err := conn.Do(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 2, resp.ReplyCount())
	assert.Equal(t, "OK", resp.Reply(0).Text())
	assert.Equal(t, "v", resp.Reply(1).Text())
	assert.Equal(t, addr, conn.Addr())
}

func TestConnectionErrorRepliesAreValues(t *testing.T) {
	addr := startTestServer(t, newKVHandler())
	conn, err := NewConnection(addr, 5*time.Second, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// An error reply is data, not a batch failure; the connection stays
	// usable.
	req := NewRequest()
	require.NoError(t, req.AddCommand("bogus"))
	require.NoError(t, req.AddCommand("ping"))

	resp, err := conn.Do(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 2, resp.ReplyCount())
	assert.True(t, resp.Reply(0).IsError())
	assert.Equal(t, "PONG", resp.Reply(1).Text())
	assert.False(t, conn.IsClosed())
}

func TestConnectionAbandonedAfterStreamFailure(t *testing.T) {
	// A peer that closes mid-batch leaves the stream position unknown.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	conn, err := NewConnection(ln.Addr().String(), 5*time.Second, nil)
	require.NoError(t, err)

	req := NewRequest()
	require.NoError(t, req.AddCommand("ping"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = conn.Do(ctx, req)
	require.Error(t, err)
	assert.True(t, conn.IsClosed())

	// Further batches are refused outright.
	_, err = conn.Do(context.Background(), req)
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestConnectionDoDeadline(t *testing.T) {
	handler := newKVHandler()
	addr := startTestServer(t, handler)
	conn, err := NewConnection(addr, 5*time.Second, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	req := NewRequest()
	require.NoError(t, req.AddCommand("sleepecho x 500"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = conn.Do(ctx, req)
	require.Error(t, err)

	var netErr net.Error
	assert.ErrorAs(t, err, &netErr)
	assert.True(t, conn.IsClosed())
}

func TestConnectionPing(t *testing.T) {
	addr := startTestServer(t, newKVHandler())
	conn, err := NewConnection(addr, 5*time.Second, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.Ping(context.Background()))
}

func TestConnectionCloseIdempotent(t *testing.T) {
	addr := startTestServer(t, newKVHandler())
	conn, err := NewConnection(addr, 5*time.Second, nil)
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.True(t, conn.IsClosed())
}
