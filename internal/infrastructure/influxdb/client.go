package influxdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/maa-core/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	fallbackBatchSize     = 100
	fallbackFlushInterval = 10 * time.Second
)

// pointWriter is the subset of api.WriteAPI used for writes.
type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

// server is the subset of influxdb2.Client used for liveness and teardown.
type server interface {
	Ping(ctx context.Context) (bool, error)
	Close()
}

// Client records task run history in InfluxDB.
//
// Writes are batched by the library and never block the caller. Points
// written while disconnected are discarded.
type Client struct {
	server    server
	writeAPI  pointWriter
	connected atomic.Bool

	// failures counts asynchronous batch write errors.
	failures atomic.Uint64

	mu      sync.RWMutex
	onError func(err error)
}

// Connect pings the server and sets up a batched write API for cfg.Bucket.
// It returns ErrDisabled when cfg.Enabled is false.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	raw := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, writeOptions(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := ping(ctx, raw); err != nil {
		raw.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	api := raw.WriteAPI(cfg.Org, cfg.Bucket)
	c := &Client{server: raw, writeAPI: api}
	c.connected.Store(true)

	go c.watchErrors(api.Errors())
	return c, nil
}

// writeOptions applies the batch settings, falling back to library-friendly
// values for non-positive config.
func writeOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := uint(fallbackBatchSize)
	if cfg.BatchSize > 0 {
		batch = uint(cfg.BatchSize) // #nosec G115 -- checked positive
	}
	flush := fallbackFlushInterval
	if cfg.FlushInterval > 0 {
		flush = time.Duration(cfg.FlushInterval) * time.Second
	}
	return influxdb2.DefaultOptions().
		SetBatchSize(batch).
		SetFlushInterval(uint(flush.Milliseconds())) // #nosec G115 -- positive duration
}

func ping(ctx context.Context, s server) error {
	healthy, err := s.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if !healthy {
		return fmt.Errorf("ping: server not healthy")
	}
	return nil
}

func (c *Client) watchErrors(errs <-chan error) {
	for err := range errs {
		c.failures.Add(1)

		c.mu.RLock()
		fn := c.onError
		c.mu.RUnlock()
		if fn != nil {
			fn(err)
		}
	}
}

// Close flushes pending points and releases the client. Safe on a nil Client
// and safe to call more than once.
func (c *Client) Close() error {
	if c == nil || !c.connected.Swap(false) {
		return nil
	}
	if c.writeAPI != nil {
		c.writeAPI.Flush()
	}
	if c.server != nil {
		c.server.Close()
	}
	return nil
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() || c.server == nil {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := ping(ctx, c.server); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// IsConnected reports whether the client accepts writes.
func (c *Client) IsConnected() bool {
	return c != nil && c.connected.Load()
}

// Failures returns the number of batch writes the server rejected.
func (c *Client) Failures() uint64 {
	if c == nil {
		return 0
	}
	return c.failures.Load()
}

// SetOnError sets the callback for asynchronous batch write failures.
func (c *Client) SetOnError(fn func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

// Flush blocks until buffered points are written. No-op when disconnected.
func (c *Client) Flush() {
	if c.IsConnected() && c.writeAPI != nil {
		c.writeAPI.Flush()
	}
}
