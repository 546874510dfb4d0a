package link

import (
	"time"

	"github.com/moffa90/go-epdble/protocol"
)

// Config holds the link configuration.
type Config struct {
	// ProgressCallback is called during image transfers to report progress (optional)
	ProgressCallback ProgressCallback

	// StateCallback is called after every state transition (optional)
	StateCallback StateCallback

	// WarningCallback receives non-fatal warnings (optional)
	WarningCallback WarningCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// WriteTimeout bounds each acknowledged write. Zero leaves it to the transport.
	WriteTimeout time.Duration

	// ConnectTimeout bounds the connect sequence up to READY
	ConnectTimeout time.Duration

	// ReconnectDelay is the pause between disconnecting and reconnecting
	ReconnectDelay time.Duration

	// InterleaveCount is the number of unacknowledged chunk writes sent
	// before each acknowledged one
	InterleaveCount int

	// InitialMTU is the MTU assumed on every new connection until the
	// device reports one
	InitialMTU int
}

// Defaults used when no option overrides them.
const (
	DefaultWriteTimeout    = 5 * time.Second
	DefaultConnectTimeout  = 20 * time.Second
	DefaultReconnectDelay  = 300 * time.Millisecond
	DefaultInterleaveCount = 50
)

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		WriteTimeout:    DefaultWriteTimeout,
		ConnectTimeout:  DefaultConnectTimeout,
		ReconnectDelay:  DefaultReconnectDelay,
		InterleaveCount: DefaultInterleaveCount,
		InitialMTU:      protocol.DefaultMTU,
	}
}

// Option is a functional option for configuring the Link.
type Option func(*Config)

// WithProgressCallback sets a callback function to track image transfers.
//
// Example:
//
//	l := link.New(adapter,
//	    link.WithProgressCallback(func(p link.Progress) {
//	        fmt.Printf("%.1f%% complete\n", p.Percentage)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithStateCallback sets a callback invoked after every state transition.
//
// Example:
//
//	l := link.New(adapter, link.WithStateCallback(func(s link.State) {
//	    sendButton.SetEnabled(s == link.StateReady)
//	}))
func WithStateCallback(callback StateCallback) Option {
	return func(c *Config) {
		c.StateCallback = callback
	}
}

// WithWarningCallback sets a callback for non-fatal warnings.
func WithWarningCallback(callback WarningCallback) Option {
	return func(c *Config) {
		c.WarningCallback = callback
	}
}

// WithLogger sets a logger for link operations.
//
// Example:
//
//	l := link.New(adapter, link.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithWriteTimeout sets the timeout for acknowledged writes.
// A write that times out fails with a *WriteError.
//
// Example:
//
//	l := link.New(adapter, link.WithWriteTimeout(2*time.Second))
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout >= 0 {
			c.WriteTimeout = timeout
		}
	}
}

// WithConnectTimeout sets the timeout for the connect sequence.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.ConnectTimeout = timeout
		}
	}
}

// WithReconnectDelay sets the delay between the disconnect and connect
// halves of Reconnect. Default is 300ms.
func WithReconnectDelay(delay time.Duration) Option {
	return func(c *Config) {
		if delay >= 0 {
			c.ReconnectDelay = delay
		}
	}
}

// WithInterleaveCount sets how many unacknowledged chunk writes are sent
// before each acknowledged one. Zero acknowledges every chunk.
//
// Example:
//
//	l := link.New(adapter, link.WithInterleaveCount(20))
func WithInterleaveCount(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.InterleaveCount = n
		}
	}
}

// WithInitialMTU sets the MTU assumed before the device reports one.
func WithInitialMTU(mtu int) Option {
	return func(c *Config) {
		if mtu > 0 {
			c.InitialMTU = mtu
		}
	}
}
