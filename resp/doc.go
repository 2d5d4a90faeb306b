// Package resp provides a low-level wire implementation of the Redis
// serialization protocol (RESP): an arena-backed value tree, an encoder,
// an incremental decoder, and a splitter for shell-style command lines.
//
// This package serves as a foundation for building higher-level clients and
// servers with different properties (pipelining, connection pooling,
// batching, etc.). It focuses on correctness for serialization and parsing
// without imposing architectural decisions on callers.
//
// # Memory model
//
// All variable-length payloads of a Value tree (status/bulk/error text and
// array element storage) live in the Arena supplied when the tree is built
// or decoded. An Arena is released as one unit; a Value must not outlive
// the Arena that backs it. Two trees built from two arenas never share
// storage, even when their content is byte-identical.
//
//	arena := resp.NewArena()
//	v, n, err := resp.Decode(data, arena)
//
// # Incremental decoding
//
// Decode never consumes a partial value. It returns ErrIncomplete (and a
// consumed count of zero) until the buffer holds one complete top-level
// value, so it can be re-invoked on a growing buffer from any concurrency
// model:
//
//	v, n, err := resp.Decode(buf, arena)
//	switch {
//	case errors.Is(err, resp.ErrIncomplete):
//	    // read more bytes, call again with the grown buffer
//	case err != nil:
//	    // *ParseError: the stream is corrupt, close the connection
//	default:
//	    buf = buf[n:]
//	}
//
// # Thread safety
//
// Arena and Value are not safe for concurrent use. Each decode or build
// operation owns its own Arena; encoding and decoding are safe from
// multiple goroutines as long as they do not share arenas or buffers.
package resp
