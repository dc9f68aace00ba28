// Package commsutil provides COMMS connection helpers and message encoding.
package commsutil

import (
	"fmt"
	"log/slog"
	"time"

	comms "github.com/nats-io/nats.go"
)

const logPrefix = "commsutil:connect"

// ConnectOpts tunes Connect. Nil uses defaults.
type ConnectOpts struct {
	Timeout       time.Duration
	MaxReconnects int
}

// Connect creates a COMMS connection to the given URL. The client process
// is short-lived, so reconnects are bounded tighter than a service's.
func Connect(url, name string, opts *ConnectOpts) (*comms.Conn, error) {
	timeout, maxReconnects := 5*time.Second, 10
	if opts != nil {
		if opts.Timeout > 0 {
			timeout = opts.Timeout
		}
		if opts.MaxReconnects != 0 {
			maxReconnects = opts.MaxReconnects
		}
	}
	slog.Debug(fmt.Sprintf("%s - Connecting to COMMS at %s as %s", logPrefix, url, name))

	nc, err := comms.Connect(url,
		comms.Name(name),
		comms.Timeout(timeout),
		comms.ReconnectWait(time.Second),
		comms.MaxReconnects(maxReconnects),
		comms.DisconnectErrHandler(func(_ *comms.Conn, err error) {
			if err != nil {
				slog.Warn(fmt.Sprintf("%s - COMMS disconnected: %v", logPrefix, err))
			}
		}),
		comms.ReconnectHandler(func(nc *comms.Conn) {
			slog.Info(fmt.Sprintf("%s - COMMS reconnected to %s", logPrefix, nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}

	slog.Debug(fmt.Sprintf("%s - Connected to COMMS at %s", logPrefix, nc.ConnectedUrl()))
	return nc, nil
}

// Close flushes pending publishes and closes nc. Safe on nil.
func Close(nc *comms.Conn) {
	if nc == nil || nc.IsClosed() {
		return
	}
	if err := nc.FlushTimeout(2 * time.Second); err != nil {
		slog.Warn(fmt.Sprintf("%s - flush before close failed: %v", logPrefix, err))
	}
	nc.Close()
}
