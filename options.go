package wirebus

import (
	"crypto/tls"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TransportKind selects the socket layer beneath a Publisher or Subscriber
type TransportKind string

const (
	// TransportTCP plain or curve-secured tcp, optionally under tls
	TransportTCP TransportKind = "tcp"
	// TransportWS websocket, no curve capability
	TransportWS TransportKind = "ws"
)

type options struct {
	transport TransportKind
	host      string

	tls      *tls.Config
	certFile string
	keyFile  string
	wsPath   string

	timeout time.Duration

	registerer prometheus.Registerer

	onConnect    func(id string)
	onDisconnect func(id string)
}

func defaultOptions() options {
	return options{
		transport: TransportTCP,
		wsPath:    "/",
		timeout:   5 * time.Second,
	}
}

// Option configures a Publisher or Subscriber at construction
type Option func(*options)

// WithTransport selects the transport kind, default tcp
func WithTransport(kind TransportKind) Option {
	return func(o *options) {
		o.transport = kind
	}
}

// WithBindHost restricts the publisher bind interface, default all
func WithBindHost(host string) Option {
	return func(o *options) {
		o.host = host
	}
}

// WithTLS enables tls on the transport. On a subscriber the config is used
// for the client side of the handshake; with TransportWS it switches the
// dial to wss
func WithTLS(cfg *tls.Config) Option {
	return func(o *options) {
		o.tls = cfg
	}
}

// WithTLSFiles enables tls on the websocket listener. Subscribers reach it
// with WithTLS
func WithTLSFiles(certFile, keyFile string) Option {
	return func(o *options) {
		o.certFile = certFile
		o.keyFile = keyFile
	}
}

// WithWSPath sets the websocket endpoint path, default "/"
func WithWSPath(path string) Option {
	return func(o *options) {
		o.wsPath = path
	}
}

// WithConnectTimeout bounds dial/handshake time on the subscriber side,
// default 5s
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithMetricsRegisterer registers the instance counters with the given
// prometheus registerer. Unset leaves them unregistered
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithLifecycleCallbacks reports subscriber connections coming and going
// on a publisher. Either callback may be nil
func WithLifecycleCallbacks(onConnect, onDisconnect func(id string)) Option {
	return func(o *options) {
		o.onConnect = onConnect
		o.onDisconnect = onDisconnect
	}
}
