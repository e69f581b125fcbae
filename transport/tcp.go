package transport

import (
	"crypto/tls"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/Rudd-O/curvetls"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/wirebus/wirebus/configuration"
	"github.com/wirebus/wirebus/security"
)

// ConfigTCP configuration of tcp transport
type ConfigTCP struct {
	Scheme string

	// TLS wraps the listening socket, independent of curve security
	TLS *tls.Config

	transport *Config
}

// NewConfigTCP allocate new transport config for tcp transport
// Use of this function is preferable instead of direct allocation of ConfigTCP
func NewConfigTCP(transport *Config) *ConfigTCP {
	return &ConfigTCP{
		Scheme:    "tcp",
		transport: transport,
	}
}

type tcp struct {
	config Config

	listener net.Listener

	quit         chan struct{}
	onConnection sync.WaitGroup
	onceStop     sync.Once

	log      *zap.SugaredLogger
	protocol string
}

var _ Listener = (*tcp)(nil)

// NewTCP create new tcp transport listener. The socket is bound here, a
// bind failure surfaces immediately
func NewTCP(config *ConfigTCP) (Listener, error) {
	l := &tcp{
		config: *config.transport,
		quit:   make(chan struct{}),
	}

	addr := config.transport.Host + ":" + strconv.Itoa(config.transport.Port)

	ln, err := net.Listen(config.Scheme, addr)
	if err != nil {
		return nil, errors.Wrap(err, "transport: bind")
	}

	if config.TLS != nil {
		l.protocol = "ssl"
		l.listener = tls.NewListener(ln, config.TLS)
	} else {
		l.protocol = "tcp"
		l.listener = ln
	}

	l.log = configuration.GetLogger().Named("listener: " + l.protocol + "://" + addr)

	return l, nil
}

// Protocol ...
func (l *tcp) Protocol() string {
	return l.protocol
}

// Capabilities ...
func (l *tcp) Capabilities() Capabilities {
	return Capabilities{Curve: true}
}

// Port actual bound port, available right after NewTCP even when the
// configured port was 0
func (l *tcp) Port() int {
	return l.listener.Addr().(*net.TCPAddr).Port
}

// Ready ...
func (l *tcp) Ready() error {
	select {
	case <-l.quit:
		return ErrClosed
	default:
	}

	return nil
}

// Alive ...
func (l *tcp) Alive() error {
	return l.Ready()
}

// Close tcp listener
func (l *tcp) Close() error {
	var err error

	l.onceStop.Do(func() {
		close(l.quit)

		err = l.listener.Close()
		l.onConnection.Wait()
	})

	return err
}

// Serve start serving connections
func (l *tcp) Serve(handler Handler) error {
	var tempDelay time.Duration // how long to sleep on accept failure

	for {
		cn, err := l.listener.Accept()
		if err != nil {
			select {
			case <-l.quit:
				return nil
			default:
			}

			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if max := 1 * time.Second; tempDelay > max {
					tempDelay = max
				}
				l.log.Errorf("accept error, retrying in %v: %s", tempDelay, err)

				time.Sleep(tempDelay)
				continue
			}
			return err
		}

		tempDelay = 0

		l.onConnection.Add(1)
		go func(cn net.Conn) {
			defer l.onConnection.Done()

			inConn, e := l.newConn(cn)
			if e != nil {
				l.log.Errorf("connection setup: %s", e)
				cn.Close() // nolint: errcheck
				return
			}

			handler(inConn)
		}(cn)
	}
}

func (l *tcp) newConn(cn net.Conn) (Conn, error) {
	if !l.config.Security.Secured() {
		return newConn(cn, l.config.Stat), nil
	}

	priv, pub, err := l.config.Security.ServerKeypair()
	if err != nil {
		return nil, err
	}

	nonce, err := curvetls.NewLongNonce()
	if err != nil {
		return nil, err
	}

	ec, _, err := curvetls.WrapServer(cn, priv, pub, nonce)
	if err != nil {
		return nil, err
	}

	// peers authenticate by holding the server public key, there is no
	// per-client allow list
	if err = ec.Allow(); err != nil {
		return nil, err
	}

	return newConn(ec, l.config.Stat), nil
}

// ConfigDialerTCP configuration of the tcp dial side
type ConfigDialerTCP struct {
	Scheme string

	// TLS enables tls on the dialed connection
	TLS *tls.Config

	// Timeout connect timeout, defaults to 5s
	Timeout time.Duration

	transport *Config
}

// NewConfigDialerTCP allocate new dialer config for tcp transport
func NewConfigDialerTCP(transport *Config) *ConfigDialerTCP {
	return &ConfigDialerTCP{
		Scheme:    "tcp",
		Timeout:   5 * time.Second,
		transport: transport,
	}
}

type tcpDialer struct {
	config  Config
	scheme  string
	tlsCfg  *tls.Config
	timeout time.Duration
}

var _ Dialer = (*tcpDialer)(nil)

// NewDialerTCP create new tcp dialer
func NewDialerTCP(config *ConfigDialerTCP) Dialer {
	return &tcpDialer{
		config:  *config.transport,
		scheme:  config.Scheme,
		tlsCfg:  config.TLS,
		timeout: config.Timeout,
	}
}

// Protocol ...
func (d *tcpDialer) Protocol() string {
	if d.tlsCfg != nil {
		return "ssl"
	}

	return "tcp"
}

// Capabilities ...
func (d *tcpDialer) Capabilities() Capabilities {
	return Capabilities{Curve: true}
}

// Dial ...
func (d *tcpDialer) Dial(host string, port int) (Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	cn, err := net.DialTimeout(d.scheme, addr, d.timeout)
	if err != nil {
		return nil, errors.Wrap(err, "transport: connect")
	}

	if d.tlsCfg != nil {
		cn = tls.Client(cn, d.tlsCfg)
	}

	if !d.config.Security.Secured() {
		return newConn(cn, d.config.Stat), nil
	}

	priv, pub, err := d.config.Security.ClientKeypair()
	if err != nil {
		cn.Close() // nolint: errcheck
		return nil, err
	}

	serverPub, err := d.config.Security.RemoteServerKey()
	if err != nil {
		cn.Close() // nolint: errcheck
		return nil, security.ErrMisconfigured
	}

	nonce, err := curvetls.NewLongNonce()
	if err != nil {
		cn.Close() // nolint: errcheck
		return nil, err
	}

	ec, err := curvetls.WrapClient(cn, priv, pub, serverPub, nonce)
	if err != nil {
		cn.Close() // nolint: errcheck
		return nil, err
	}

	return newConn(ec, d.config.Stat), nil
}
