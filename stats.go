package respwire

import (
	"sync/atomic"
)

// ClientStats contains statistics about client operations.
// All fields are safe for concurrent access.
//
// For Prometheus integration, expose these as:
//   - Counters: Batches, Commands, Errors
type ClientStats struct {
	Batches  uint64 // Total batches executed
	Commands uint64 // Total commands across all batches
	Errors   uint64 // Batches that failed as a whole
}

// clientStatsCollector provides internal methods for updating client stats.
// Not exported - client updates its own stats.
type clientStatsCollector struct {
	stats *ClientStats
}

func newClientStatsCollector() *clientStatsCollector {
	return &clientStatsCollector{
		stats: &ClientStats{},
	}
}

func (c *clientStatsCollector) recordBatch(commands int) {
	atomic.AddUint64(&c.stats.Batches, 1)
	atomic.AddUint64(&c.stats.Commands, uint64(commands))
}

func (c *clientStatsCollector) recordError() {
	atomic.AddUint64(&c.stats.Errors, 1)
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Batches:  atomic.LoadUint64(&c.stats.Batches),
		Commands: atomic.LoadUint64(&c.stats.Commands),
		Errors:   atomic.LoadUint64(&c.stats.Errors),
	}
}
