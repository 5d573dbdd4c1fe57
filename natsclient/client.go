package natsclient

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/docstreams/errors"
)

// Client manages one NATS connection and its JetStream context.
// Safe for concurrent use.
type Client struct {
	opts   options
	logger *slog.Logger

	mu   sync.RWMutex
	conn *nats.Conn
	js   jetstream.JetStream
}

// New creates an unconnected client for the given server URL.
func New(url string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Client", "New", "server url required")
	}
	o := defaultOptions(url)
	for _, opt := range opts {
		opt(&o)
	}
	return &Client{opts: o, logger: o.logger}, nil
}

// Connect establishes the connection. Reconnects are handled by the
// underlying library with the configured policy.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Client", "Connect", "connection check")
	}

	natsOpts := []nats.Option{
		nats.Name(c.opts.name),
		nats.MaxReconnects(c.opts.maxReconnects),
		nats.ReconnectWait(c.opts.reconnectWait),
		nats.Timeout(c.opts.timeout),
		nats.DrainTimeout(c.opts.drainTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.logger.Warn("nats disconnected", "error", err)
			if c.opts.onDisconnect != nil {
				c.opts.onDisconnect(err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.logger.Info("nats reconnected", "url", nc.ConnectedUrl())
			if c.opts.onReconnect != nil {
				c.opts.onReconnect()
			}
		}),
	}
	if c.opts.username != "" {
		natsOpts = append(natsOpts, nats.UserInfo(c.opts.username, c.opts.password))
	}
	if c.opts.token != "" {
		natsOpts = append(natsOpts, nats.Token(c.opts.token))
	}

	conn, err := nats.Connect(c.opts.url, natsOpts...)
	if err != nil {
		return errors.WrapTransient(err, "Client", "Connect", "connect to "+c.opts.url)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return errors.WrapTransient(err, "Client", "Connect", "initialize jetstream")
	}

	c.conn = conn
	c.js = js
	c.logger.Info("nats connected", "url", conn.ConnectedUrl(), "name", c.opts.name)
	return nil
}

// Conn returns the raw connection for publish/subscribe.
func (c *Client) Conn() (*nats.Conn, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil || c.conn.IsClosed() {
		return nil, errors.WrapTransient(errors.ErrNoConnection, "Client", "Conn", "connection check")
	}
	return c.conn, nil
}

// JetStream returns the JetStream context.
func (c *Client) JetStream() (jetstream.JetStream, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.js == nil {
		return nil, errors.WrapTransient(errors.ErrNoConnection, "Client", "JetStream", "connection check")
	}
	return c.js, nil
}

// CreateKeyValueBucket creates or opens a JetStream KV bucket.
func (c *Client) CreateKeyValueBucket(ctx context.Context, cfg jetstream.KeyValueConfig) (jetstream.KeyValue, error) {
	js, err := c.JetStream()
	if err != nil {
		return nil, err
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, cfg)
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "CreateKeyValueBucket", "bucket "+cfg.Bucket)
	}
	return kv, nil
}

// IsConnected reports whether the connection is currently up.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && c.conn.IsConnected()
}

// Close drains the connection, allowing in-flight messages to flush.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.conn.IsClosed() {
		return nil
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
		return errors.WrapTransient(err, "Client", "Close", "drain connection")
	}
	c.conn = nil
	c.js = nil
	return nil
}
