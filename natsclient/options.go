package natsclient

import (
	"log/slog"
	"time"
)

// options holds client configuration assembled from functional options.
type options struct {
	name          string
	url           string
	maxReconnects int
	reconnectWait time.Duration
	timeout       time.Duration
	drainTimeout  time.Duration
	username      string
	password      string
	token         string
	logger        *slog.Logger
	onDisconnect  func(error)
	onReconnect   func()
}

func defaultOptions(url string) options {
	return options{
		name:          "docstreams",
		url:           url,
		maxReconnects: -1,
		reconnectWait: 2 * time.Second,
		timeout:       5 * time.Second,
		drainTimeout:  10 * time.Second,
		logger:        slog.Default(),
	}
}

// Option configures the client.
type Option func(*options)

// WithName sets the connection name reported to the server.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithMaxReconnects bounds reconnection attempts; negative means
// unlimited.
func WithMaxReconnects(n int) Option {
	return func(o *options) { o.maxReconnects = n }
}

// WithReconnectWait sets the delay between reconnection attempts.
func WithReconnectWait(d time.Duration) Option {
	return func(o *options) { o.reconnectWait = d }
}

// WithTimeout sets the connect timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithDrainTimeout bounds how long Close waits for in-flight messages.
func WithDrainTimeout(d time.Duration) Option {
	return func(o *options) { o.drainTimeout = d }
}

// WithCredentials sets username/password authentication.
func WithCredentials(username, password string) Option {
	return func(o *options) {
		o.username = username
		o.password = password
	}
}

// WithToken sets token authentication.
func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDisconnectCallback registers a callback invoked when the
// connection drops.
func WithDisconnectCallback(fn func(error)) Option {
	return func(o *options) { o.onDisconnect = fn }
}

// WithReconnectCallback registers a callback invoked after a
// successful reconnect.
func WithReconnectCallback(fn func()) Option {
	return func(o *options) { o.onReconnect = fn }
}
