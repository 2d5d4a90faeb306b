package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/orange-cat-cat/respwire"
	"github.com/orange-cat-cat/respwire/resp"
)

// store is an in-memory string key/value store exposed over the wire
// protocol. It serves as a demo backend and as a target for the CLI.
type store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func newStore() *store {
	return &store{data: make(map[string][]byte)}
}

func (s *store) Handle(cmd *resp.Value, arena *resp.Arena) *resp.Value {
	reply := arena.NewValue()

	switch strings.ToUpper(cmd.Elem(0).Text()) {
	case "PING":
		reply.SetStatus("PONG", arena)

	case "ECHO":
		if cmd.Len() != 2 {
			reply.SetError("ERR wrong number of arguments for 'echo' command", arena)
			break
		}
		reply.SetString(cmd.Elem(1).Bytes(), arena)

	case "SET":
		if cmd.Len() != 3 {
			reply.SetError("ERR wrong number of arguments for 'set' command", arena)
			break
		}
		s.mu.Lock()
		s.data[cmd.Elem(1).Text()] = append([]byte(nil), cmd.Elem(2).Bytes()...)
		s.mu.Unlock()
		reply.SetStatus("OK", arena)

	case "GET":
		if cmd.Len() != 2 {
			reply.SetError("ERR wrong number of arguments for 'get' command", arena)
			break
		}
		s.mu.RLock()
		val, ok := s.data[cmd.Elem(1).Text()]
		s.mu.RUnlock()
		if !ok {
			reply.SetNilString()
			break
		}
		reply.SetString(val, arena)

	case "DEL":
		if cmd.Len() < 2 {
			reply.SetError("ERR wrong number of arguments for 'del' command", arena)
			break
		}
		removed := int64(0)
		s.mu.Lock()
		for i := 1; i < cmd.Len(); i++ {
			key := cmd.Elem(i).Text()
			if _, ok := s.data[key]; ok {
				delete(s.data, key)
				removed++
			}
		}
		s.mu.Unlock()
		reply.SetInteger(removed)

	case "KEYS":
		s.mu.RLock()
		reply.SetArray(len(s.data), arena)
		i := 0
		for key := range s.data {
			reply.At(i).SetString([]byte(key), arena)
			i++
		}
		s.mu.RUnlock()

	default:
		reply.SetError(fmt.Sprintf("ERR unknown command '%s'", cmd.Elem(0).Text()), arena)
	}
	return reply
}

func main() {
	addr := flag.String("addr", "127.0.0.1:6389", "listen address")
	idleTimeout := flag.Duration("idle-timeout", 5*time.Minute, "close connections idle for this long (0 disables)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	srv := respwire.NewServer(newStore(), respwire.ServerConfig{
		Logger:      logger,
		IdleTimeout: *idleTimeout,
	})

	if err := srv.ListenAndServe(*addr); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
