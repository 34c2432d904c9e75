// Package ircrelay implements the irkerd relay daemon: an ingest endpoint
// that accepts JSON requests and forwards them as IRC PRIVMSGs across a
// pool of shared server connections.
package ircrelay

import "time"

// Config holds the options the daemon needs at startup. It replaces the
// dynamic, attribute-injected configuration of the original implementation
// with a single explicit record.
type Config struct {
	// Debug is the verbosity level, 0..3.
	Debug int
	// Port is the ingest listen port.
	Port int
	// Host is the nick suffix used to salt allocated nicknames. Defaults to
	// the local FQDN with dots replaced by dashes.
	Host string
	// TCP selects TCP ingest mode. When false, the daemon listens on UDP.
	TCP bool

	// MaxChannels is CONNECT_MAX: the maximum number of sessions a single
	// ServerConnection may carry before the pool opens another one.
	MaxChannels int
	// SessionTTL is how long a Session may sit idle before it is reaped.
	SessionTTL time.Duration
	// QueueDepth bounds each Session's pending-message queue. Once full,
	// the oldest pending message is dropped to make room for the newest.
	QueueDepth int
	// RegisterTimeout bounds how long a fresh ServerConnection may take to
	// complete IRC registration before the pending send fails.
	RegisterTimeout time.Duration
}

// DefaultConfig returns the daemon's defaults, per spec: UDP ingest on
// localhost:6659, CONNECT_MAX 18, TTL of 3 hours.
func DefaultConfig() Config {
	return Config{
		Port:            6659,
		MaxChannels:     18,
		SessionTTL:      3 * time.Hour,
		QueueDepth:      2048,
		RegisterTimeout: 30 * time.Second,
	}
}
