package transport

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	gws "github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/wirebus/wirebus/configuration"
)

// Subprotocol announced and required on websocket connections
const Subprotocol = "wirebus"

// ConfigWS listener object for websocket transport
type ConfigWS struct {
	CertFile string
	KeyFile  string
	Path     string

	transport *Config
}

// NewConfigWS allocate new transport config for websocket transport
// Use of this function is preferable instead of direct allocation of ConfigWS
func NewConfigWS(transport *Config) *ConfigWS {
	return &ConfigWS{
		Path:      "/",
		transport: transport,
	}
}

type ws struct {
	config Config

	http     *http.Server
	up       gws.HTTPUpgrader
	listener net.Listener

	certFile string
	keyFile  string

	handler      Handler
	handlerLock  sync.RWMutex
	quit         chan struct{}
	onConnection sync.WaitGroup
	onceStop     sync.Once

	log      *zap.SugaredLogger
	protocol string
}

var _ Listener = (*ws)(nil)

// NewWS create new websocket transport listener. Binds the HTTP socket
// immediately so a bind failure surfaces here
func NewWS(config *ConfigWS) (Listener, error) {
	l := &ws{
		config:   *config.transport,
		certFile: config.CertFile,
		keyFile:  config.KeyFile,
		quit:     make(chan struct{}),
	}

	if len(l.certFile) != 0 {
		l.protocol = "wss"
	} else {
		l.protocol = "ws"
	}

	if len(config.Path) == 0 {
		config.Path = "/"
	} else if config.Path[0] != '/' {
		config.Path = "/" + config.Path
	}

	addr := config.transport.Host + ":" + strconv.Itoa(config.transport.Port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	l.listener = ln

	mux := http.NewServeMux()
	mux.Handle(config.Path, l)

	l.http = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	l.up.Protocol = func(proto string) bool {
		return proto == Subprotocol
	}

	l.log = configuration.GetLogger().Named("listener: " + l.protocol + "://" + addr)

	return l, nil
}

// Protocol ...
func (l *ws) Protocol() string {
	return l.protocol
}

// Capabilities websocket transport carries no curve support, TLS is the
// only security option on this path
func (l *ws) Capabilities() Capabilities {
	return Capabilities{Curve: false}
}

// Port ...
func (l *ws) Port() int {
	return l.listener.Addr().(*net.TCPAddr).Port
}

// Ready ...
func (l *ws) Ready() error {
	select {
	case <-l.quit:
		return ErrClosed
	default:
	}

	return nil
}

// Alive ...
func (l *ws) Alive() error {
	return l.Ready()
}

func (l *ws) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	proto := r.Header.Get("Sec-WebSocket-Protocol")
	if proto != Subprotocol {
		w.WriteHeader(http.StatusUpgradeRequired)
		_, _ = w.Write([]byte("unsupported \"Sec-WebSocket-Protocol\""))
		return
	}

	cn, _, _, err := l.up.Upgrade(r, w)
	if err != nil {
		l.log.Errorf("upgrade error: %s", err)
		return
	}

	l.handlerLock.RLock()
	handler := l.handler
	l.handlerLock.RUnlock()

	if handler == nil {
		cn.Close() // nolint: errcheck
		return
	}

	l.onConnection.Add(1)
	go func() {
		defer l.onConnection.Done()

		handler(newConn(&wsServerConn{Conn: cn}, l.config.Stat))
	}()
}

// Serve ...
func (l *ws) Serve(handler Handler) error {
	l.handlerLock.Lock()
	l.handler = handler
	l.handlerLock.Unlock()

	var err error
	if len(l.certFile) != 0 && len(l.keyFile) != 0 {
		err = l.http.ServeTLS(l.listener, l.certFile, l.keyFile)
	} else {
		err = l.http.Serve(l.listener)
	}

	select {
	case <-l.quit:
		return nil
	default:
	}

	return err
}

// Close websocket listener
func (l *ws) Close() error {
	var err error

	l.onceStop.Do(func() {
		close(l.quit)

		ctx, ctxCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer ctxCancel()

		err = l.http.Shutdown(ctx)
		l.onConnection.Wait()
	})

	return err
}

// wsServerConn adapts the upgraded stream so Read/Write move whole binary
// websocket messages, which the framed conn then treats as a byte stream
type wsServerConn struct {
	net.Conn
	rem []byte
}

// Read ...
func (c *wsServerConn) Read(b []byte) (int, error) {
	var n int
	if len(c.rem) > 0 {
		n = copy(b, c.rem)
		c.rem = c.rem[n:]

		return n, nil
	}

	data, err := wsutil.ReadClientBinary(c.Conn)
	if err != nil {
		return 0, err
	}

	n = copy(b, data)
	if n < len(data) {
		c.rem = data[n:]
	}

	return n, nil
}

// Write ...
func (c *wsServerConn) Write(b []byte) (int, error) {
	if err := wsutil.WriteServerBinary(c.Conn, b); err != nil {
		return 0, err
	}

	return len(b), nil
}
