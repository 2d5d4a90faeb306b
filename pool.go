package respwire

import (
	"context"
	"time"
)

// Pool manages a set of connections to one server.
type Pool interface {
	// Acquire returns a connection resource, creating one if the pool is
	// under its size limit, or waiting for a release otherwise.
	Acquire(ctx context.Context) (Resource, error)

	// AcquireAllIdle takes every idle connection out of the pool, for
	// health checking. Each returned resource must be released or
	// destroyed by the caller.
	AcquireAllIdle() []Resource

	// Stats returns a snapshot of pool statistics.
	Stats() PoolStats

	// Close destroys all connections in the pool.
	Close()
}

// Resource is a pooled connection lease.
type Resource interface {
	Value() *Connection
	Release()
	ReleaseUnused()
	Destroy()
	CreationTime() time.Time
	IdleDuration() time.Duration
}

// PoolStats contains statistics about a connection pool.
//
// For Prometheus integration, expose these as:
//   - Gauges: TotalConns, IdleConns, ActiveConns
//   - Counters: AcquireCount, AcquireWaitCount, CreatedConns, DestroyedConns, AcquireErrors
//   - Histogram: use AcquireWaitCount and AcquireWaitTimeNs to calculate wait durations
type PoolStats struct {
	AcquireCount      uint64 // Total acquire attempts
	AcquireWaitCount  uint64 // Acquires that had to wait
	CreatedConns      uint64 // Total connections created
	DestroyedConns    uint64 // Total connections destroyed
	AcquireErrors     uint64 // Failed acquire attempts
	AcquireWaitTimeNs uint64 // Total nanoseconds spent waiting

	TotalConns  int32 // Total connections in pool (active + idle)
	IdleConns   int32 // Idle connections available
	ActiveConns int32 // Connections currently in use
}
