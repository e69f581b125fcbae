// Package transport abstracts the socket layer beneath the pub/sub
// session. The messaging layer only ever sees framed messages moving
// through the narrow Listener/Dialer/Conn interfaces; everything about
// socket creation, accept loops and connection security lives here.
package transport

import (
	"errors"

	"github.com/wirebus/wirebus/metrics"
	"github.com/wirebus/wirebus/security"
)

var (
	// ErrClosed operation on a closed listener or connection
	ErrClosed = errors.New("transport: closed")

	// ErrFrameTooLarge inbound frame exceeds the allowed size
	ErrFrameTooLarge = errors.New("transport: frame too large")

	// ErrEmptyMessage message carries no frames
	ErrEmptyMessage = errors.New("transport: empty message")
)

// Capabilities features a transport implementation provides
type Capabilities struct {
	// Curve transport can wrap connections with curve security
	Curve bool
}

// Handler invoked by a Listener for every established connection.
// The handler owns the connection from that point on
type Handler func(Conn)

// Listener send-side transport provider. One listener backs one Publisher
type Listener interface {
	// Protocol scheme identifier, e.g. "tcp", "ssl", "ws"
	Protocol() string

	// Capabilities reports transport features
	Capabilities() Capabilities

	// Serve accepts connections and hands them to the handler.
	// Blocks until Close
	Serve(Handler) error

	// Close stops accepting and releases the socket. Established
	// connections are left to their owners
	Close() error

	// Port actual bound port
	Port() int

	// Ready readiness check
	Ready() error

	// Alive liveness check
	Alive() error
}

// Dialer receive-side transport provider. One dialer backs one Subscriber
type Dialer interface {
	Protocol() string
	Capabilities() Capabilities

	// Dial establishes a connection to host:port, applying curve wrapping
	// when the security context demands it
	Dial(host string, port int) (Conn, error)
}

// Conn framed bidirectional connection. A message is an ordered set of
// frames; writers emit all frames of a message atomically with respect to
// other writers of the same conn
type Conn interface {
	// ID stable connection identifier
	ID() string

	// ReadMessage reads one complete message
	ReadMessage() ([][]byte, error)

	// WriteMessage writes one complete message
	WriteMessage(frames ...[]byte) error

	Close() error
}

// Config shared transport configuration
type Config struct {
	// Host interface to bind, empty for all
	Host string

	// Port tcp port to bind or connect to
	Port int

	// Security curve key material, nil or empty context for plain mode
	Security *security.Context

	// Stat byte counters, nil disables accounting
	Stat metrics.Bytes
}
