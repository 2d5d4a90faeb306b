package respwire

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// Config holds configuration for the client connection pools.
type Config struct {
	// MaxSize is the maximum number of connections per server pool.
	// Required: must be > 0.
	MaxSize int32

	// MaxConnLifetime is the maximum duration a connection can be reused.
	// Zero means no limit.
	MaxConnLifetime time.Duration

	// MaxConnIdleTime is the maximum duration a connection can be idle before being closed.
	// Zero means no limit.
	MaxConnIdleTime time.Duration

	// HealthCheckInterval is how often to check idle connections for health.
	// Zero disables health checks.
	HealthCheckInterval time.Duration

	// Dialer is the net.Dialer used to create new connections.
	// If nil, the default net.Dialer is used.
	Dialer *net.Dialer

	// Authenticator runs on every fresh connection before its first batch.
	// If nil, connections are used as dialed.
	Authenticator Authenticator

	// Pool is the connection pool factory function.
	// If nil, uses NewPuddlePool.
	Pool func(constructor func(ctx context.Context) (*Connection, error), maxSize int32) (Pool, error)

	// SelectServer picks which server to use for a key.
	// Receives the key and current server list from Servers.List().
	// If nil, uses DefaultSelectServer (Jump Hash over xxh3).
	SelectServer SelectServerFunc

	// NewCircuitBreaker creates a circuit breaker for a server.
	// Called once per server address when the pool is created.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(serverAddr string) CircuitBreaker

	// for testing purposes only
	constructor func(ctx context.Context) (*Connection, error)
}

// serverPool wraps a pool with its server address.
type serverPool struct {
	addr           string
	pool           Pool
	circuitBreaker CircuitBreaker // nil if not configured
}

// poolConfig holds the pool configuration extracted from Config.
type poolConfig struct {
	maxSize             int32
	maxConnLifetime     time.Duration
	maxConnIdleTime     time.Duration
	healthCheckInterval time.Duration
	dialer              *net.Dialer
	authenticator       Authenticator
	poolFactory         func(constructor func(ctx context.Context) (*Connection, error), maxSize int32) (Pool, error)
	newCircuitBreaker   func(serverAddr string) CircuitBreaker         // nil if not configured
	constructor         func(ctx context.Context) (*Connection, error) // for testing
}

// Client executes request batches against a set of servers, one lazily
// created connection pool per server. A batch goes to the server selected
// by its first command's key; key distribution across servers is the
// caller's concern when a batch mixes keys.
type Client struct {
	servers      Servers
	selectServer SelectServerFunc

	// Multi-pool management
	mu    sync.RWMutex
	pools map[string]*serverPool

	// Pool configuration (same for all servers)
	poolConfig poolConfig

	// Health check management
	stopHealthCheck chan struct{}

	stats *clientStatsCollector
}

// NewClient creates a new client with the given servers and configuration.
// For a single server, use: NewClient(NewStaticServers("host:port"), config)
func NewClient(servers Servers, config Config) (*Client, error) {
	selectServer := config.SelectServer
	if selectServer == nil {
		selectServer = DefaultSelectServer
	}

	// Validate servers
	serverList := servers.List()
	if len(serverList) == 0 {
		return nil, ErrNoServers
	}

	dialer := config.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}

	poolFactory := config.Pool
	if poolFactory == nil {
		poolFactory = NewPuddlePool
	}

	poolCfg := poolConfig{
		maxSize:             config.MaxSize,
		maxConnLifetime:     config.MaxConnLifetime,
		maxConnIdleTime:     config.MaxConnIdleTime,
		healthCheckInterval: config.HealthCheckInterval,
		dialer:              dialer,
		authenticator:       config.Authenticator,
		poolFactory:         poolFactory,
		newCircuitBreaker:   config.NewCircuitBreaker,
		constructor:         config.constructor,
	}

	client := &Client{
		servers:         servers,
		selectServer:    selectServer,
		pools:           make(map[string]*serverPool),
		poolConfig:      poolCfg,
		stopHealthCheck: make(chan struct{}),
		stats:           newClientStatsCollector(),
	}

	// Start health check goroutine if enabled
	if config.HealthCheckInterval > 0 {
		go client.healthCheckLoop()
	}

	return client, nil
}

// Close closes the client and destroys all connections in all pools.
func (c *Client) Close() {
	// Stop health check goroutine if running
	if c.poolConfig.healthCheckInterval > 0 {
		close(c.stopHealthCheck)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sp := range c.pools {
		sp.pool.Close()
	}
}

// Do executes the batch on the server selected by its first command's key
// and returns one reply per command, in command order. A batch with no key
// argument goes to the first listed server.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req.CommandCount() == 0 {
		return &Response{}, nil
	}

	sp, err := c.getPoolForRequest(req)
	if err != nil {
		c.stats.recordError()
		return nil, err
	}

	resp, err := c.execRequest(ctx, sp, req)
	if err != nil {
		return nil, err
	}

	c.stats.recordBatch(req.CommandCount())
	return resp, nil
}

// selectServerForRequest picks the server address for a batch.
func (c *Client) selectServerForRequest(req *Request) (string, error) {
	servers := c.servers.List()
	key, ok := req.routingKey()
	if !ok {
		if len(servers) == 0 {
			return "", ErrNoServers
		}
		return servers[0], nil
	}
	return c.selectServer(key, servers)
}

// getPoolForRequest returns the pool for the server that should handle
// this batch. Creates the pool lazily if it doesn't exist.
func (c *Client) getPoolForRequest(req *Request) (*serverPool, error) {
	addr, err := c.selectServerForRequest(req)
	if err != nil {
		return nil, err
	}
	return c.getOrCreatePool(addr)
}

// getOrCreatePool gets or creates a pool for the given server address.
func (c *Client) getOrCreatePool(addr string) (*serverPool, error) {
	// Fast path: read lock
	c.mu.RLock()
	sp, exists := c.pools[addr]
	c.mu.RUnlock()
	if exists {
		return sp, nil
	}

	// Slow path: write lock and create
	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if sp, exists := c.pools[addr]; exists {
		return sp, nil
	}

	pool, cb, err := c.createPool(addr)
	if err != nil {
		return nil, err
	}

	sp = &serverPool{
		addr:           addr,
		pool:           pool,
		circuitBreaker: cb,
	}
	c.pools[addr] = sp
	return sp, nil
}

// createPool creates a new connection pool for a server
func (c *Client) createPool(addr string) (Pool, CircuitBreaker, error) {
	constructor := c.poolConfig.constructor
	if constructor == nil {
		constructor = func(ctx context.Context) (*Connection, error) {
			netConn, err := c.poolConfig.dialer.DialContext(ctx, "tcp", addr)
			if err != nil {
				return nil, err
			}
			return WrapConnection(addr, netConn, c.poolConfig.authenticator), nil
		}
	}

	pool, err := c.poolConfig.poolFactory(constructor, c.poolConfig.maxSize)
	if err != nil {
		return nil, nil, err
	}

	var cb CircuitBreaker
	if c.poolConfig.newCircuitBreaker != nil {
		cb = c.poolConfig.newCircuitBreaker(addr)
	}

	return pool, cb, nil
}

// healthCheckLoop periodically checks idle connections for health and lifecycle limits.
func (c *Client) healthCheckLoop() {
	ticker := time.NewTicker(c.poolConfig.healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopHealthCheck:
			return
		case <-ticker.C:
			c.checkAllPools()
		}
	}
}

// checkAllPools runs health checks on all existing pools
func (c *Client) checkAllPools() {
	c.mu.RLock()
	pools := make([]*serverPool, 0, len(c.pools))
	for _, sp := range c.pools {
		pools = append(pools, sp)
	}
	c.mu.RUnlock()

	for _, sp := range pools {
		c.checkPoolConnections(sp.pool)
	}
}

// checkPoolConnections checks all idle connections in a pool and destroys those that are stale or unhealthy.
func (c *Client) checkPoolConnections(pool Pool) {
	now := time.Now()

	for _, res := range pool.AcquireAllIdle() {
		// Check max connection lifetime
		if c.poolConfig.maxConnLifetime > 0 && now.Sub(res.CreationTime()) > c.poolConfig.maxConnLifetime {
			res.Destroy()
			continue
		}

		// Check max idle time
		if c.poolConfig.maxConnIdleTime > 0 && res.IdleDuration() > c.poolConfig.maxConnIdleTime {
			res.Destroy()
			continue
		}

		if err := c.healthCheck(res.Value()); err != nil {
			res.Destroy()
			continue
		}

		res.ReleaseUnused()
	}
}

// healthCheck verifies a connection can still carry a round trip.
func (c *Client) healthCheck(conn *Connection) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// execRequest executes one batch with proper connection management.
// If a circuit breaker is configured for the server pool, the batch is wrapped with it.
func (c *Client) execRequest(ctx context.Context, sp *serverPool, req *Request) (*Response, error) {
	if sp.circuitBreaker != nil {
		resp, err := sp.circuitBreaker.Execute(func() (*Response, error) {
			return c.execRequestDirect(ctx, sp.pool, req)
		})
		if err != nil {
			c.stats.recordError()
			return nil, err
		}
		return resp, nil
	}

	resp, err := c.execRequestDirect(ctx, sp.pool, req)
	if err != nil {
		c.stats.recordError()
		return nil, err
	}
	return resp, nil
}

// execRequestDirect performs the actual batch execution without circuit breaker.
func (c *Client) execRequestDirect(ctx context.Context, pool Pool, req *Request) (*Response, error) {
	resource, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	conn := resource.Value()

	resp, err := conn.Do(ctx, req)
	if err != nil {
		// A failed batch leaves the stream position unknown; the
		// connection was abandoned and must leave the pool.
		if conn.IsClosed() {
			resource.Destroy()
		} else {
			resource.Release()
		}
		return nil, err
	}

	resource.Release()
	return resp, nil
}

// Stats returns a snapshot of client statistics.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// ServerPoolStats contains stats for a single server pool
type ServerPoolStats struct {
	Addr                string
	PoolStats           PoolStats
	CircuitBreakerState string
}

// AllPoolStats returns stats for all server pools
func (c *Client) AllPoolStats() []ServerPoolStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := make([]ServerPoolStats, 0, len(c.pools))
	for _, sp := range c.pools {
		s := ServerPoolStats{
			Addr:      sp.addr,
			PoolStats: sp.pool.Stats(),
		}
		if sp.circuitBreaker != nil {
			s.CircuitBreakerState = sp.circuitBreaker.State().String()
		}
		stats = append(stats, s)
	}
	return stats
}
