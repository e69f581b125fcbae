package transport

import (
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wirebus/wirebus/security"
)

// ConfigDialerWS configuration of the websocket dial side
type ConfigDialerWS struct {
	Path string

	// TLS switches the dial to wss. Required to reach a listener serving
	// with a certificate
	TLS *tls.Config

	// Timeout connect/handshake timeout, defaults to 5s
	Timeout time.Duration

	transport *Config
}

// NewConfigDialerWS allocate new dialer config for websocket transport
func NewConfigDialerWS(transport *Config) *ConfigDialerWS {
	return &ConfigDialerWS{
		Path:      "/",
		Timeout:   5 * time.Second,
		transport: transport,
	}
}

type wsDialer struct {
	config  Config
	path    string
	tls     *tls.Config
	timeout time.Duration
}

var _ Dialer = (*wsDialer)(nil)

// NewDialerWS create new websocket dialer
func NewDialerWS(config *ConfigDialerWS) Dialer {
	return &wsDialer{
		config:  *config.transport,
		path:    config.Path,
		tls:     config.TLS,
		timeout: config.Timeout,
	}
}

// Protocol ...
func (d *wsDialer) Protocol() string {
	if d.tls != nil {
		return "wss"
	}

	return "ws"
}

// Capabilities ...
func (d *wsDialer) Capabilities() Capabilities {
	return Capabilities{Curve: false}
}

// Dial ...
func (d *wsDialer) Dial(host string, port int) (Conn, error) {
	if d.config.Security.Secured() {
		return nil, security.ErrUnsupported
	}

	u := url.URL{
		Scheme: d.Protocol(),
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   d.path,
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: d.timeout,
		Subprotocols:     []string{Subprotocol},
		TLSClientConfig:  d.tls,
	}

	cn, _, err := dialer.Dial(u.String(), http.Header{})
	if err != nil {
		return nil, err
	}

	return newConn(&wsClientConn{conn: cn}, d.config.Stat), nil
}

// wsClientConn adapts a gorilla websocket connection to net.Conn so the
// framed conn can sit on top of it
type wsClientConn struct {
	conn *websocket.Conn
	prev io.Reader
}

var _ net.Conn = (*wsClientConn)(nil)

// Read ...
func (c *wsClientConn) Read(b []byte) (int, error) {
	for {
		if c.prev == nil {
			mType, r, err := c.conn.NextReader()
			if err != nil {
				return 0, io.EOF
			}

			if mType != websocket.BinaryMessage {
				continue
			}

			c.prev = r
		}

		// drain the in-flight message before advancing; a (0, nil) read must
		// not skip the rest of it
		n, err := c.prev.Read(b)
		if err != nil {
			c.prev = nil
		}

		if n > 0 {
			return n, nil
		}
	}
}

// Write ...
func (c *wsClientConn) Write(b []byte) (int, error) {
	if err := c.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return 0, err
	}

	return len(b), nil
}

// Close ...
func (c *wsClientConn) Close() error {
	return c.conn.Close()
}

// LocalAddr ...
func (c *wsClientConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr ...
func (c *wsClientConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// SetDeadline ...
func (c *wsClientConn) SetDeadline(t time.Time) error {
	if err := c.conn.SetReadDeadline(t); err != nil {
		return err
	}

	return c.conn.SetWriteDeadline(t)
}

// SetReadDeadline ...
func (c *wsClientConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline ...
func (c *wsClientConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}
