package wirebus

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wirebus/wirebus/configuration"
	"github.com/wirebus/wirebus/envelope"
	"github.com/wirebus/wirebus/metrics"
	"github.com/wirebus/wirebus/security"
	"github.com/wirebus/wirebus/topic"
	"github.com/wirebus/wirebus/transport"
)

type state int

const (
	stateCreated state = iota
	stateStarted
	stateStopped
)

// Publisher owns one send-side socket bound to a port and fans messages
// out to every connected subscriber, optionally restricted to a topic or
// topic set. Lifecycle is Created -> Started -> Stopped, strictly linear
type Publisher struct {
	opts options

	port     int
	security *security.Context
	metric   metrics.IFace
	log      *zap.SugaredLogger

	// guards state transitions; Start and Stop must never race each other
	// or Publish
	lock  sync.Mutex
	state state

	listener  transport.Listener
	serveDone chan struct{}

	conns struct {
		sync.RWMutex
		list map[string]transport.Conn
	}
}

// NewPublisher allocates a publisher for the given port. Port 0 binds an
// ephemeral port, query it with Port after Start
func NewPublisher(port int, opts ...Option) *Publisher {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	p := &Publisher{
		opts:   o,
		port:   port,
		metric: metrics.New(o.registerer),
		log:    configuration.GetLogger().Named("publisher"),
	}

	p.security = security.NewContext(transportCurveCapable(o.transport))
	p.conns.list = make(map[string]transport.Conn)

	return p
}

func transportCurveCapable(kind TransportKind) bool {
	return kind == TransportTCP
}

// SetServerPrivateKey stores this publisher's curve identity. Must be
// called before Start
func (p *Publisher) SetServerPrivateKey(privateKey string) error {
	return mapSecurityErr(p.security.SetServerPrivateKey(privateKey))
}

// Start binds the send socket and begins accepting subscribers
func (p *Publisher) Start() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.state != stateCreated {
		return ErrAlreadyStarted
	}

	tCfg := &transport.Config{
		Host:     p.opts.host,
		Port:     p.port,
		Security: p.security,
		Stat:     p.metric.Bytes(),
	}

	var l transport.Listener
	var err error

	switch p.opts.transport {
	case TransportWS:
		cfg := transport.NewConfigWS(tCfg)
		cfg.Path = p.opts.wsPath
		cfg.CertFile = p.opts.certFile
		cfg.KeyFile = p.opts.keyFile
		l, err = transport.NewWS(cfg)
	default:
		cfg := transport.NewConfigTCP(tCfg)
		cfg.TLS = p.opts.tls
		l, err = transport.NewTCP(cfg)
	}

	if err != nil {
		return errors.Wrap(ErrBind, err.Error())
	}

	p.security.Seal()

	p.listener = l
	p.serveDone = make(chan struct{})
	p.state = stateStarted

	go func() {
		defer close(p.serveDone)

		if e := l.Serve(p.onConnection); e != nil {
			p.log.Errorf("serve: %s", e)
		}
	}()

	p.log.Infof("started on %s port %d", l.Protocol(), l.Port())

	return nil
}

// Port reports the actually bound port. Valid only after Start
func (p *Publisher) Port() (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.state != stateStarted {
		return 0, ErrNotStarted
	}

	return p.listener.Port(), nil
}

// Ready readiness of the send socket, for health checking
func (p *Publisher) Ready() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.state != stateStarted {
		return ErrNotStarted
	}

	return p.listener.Ready()
}

// Publish fans the envelope out to every connected subscriber. The
// selector picks the topic framing: None sends a single untyped message,
// Single/Set send the envelope once per topic, each with its own topic
// frame. Resolution is atomic, one bad list member fails the whole call
// before anything is sent. Send failures on individual subscriber
// connections drop that connection, they never fail the publish
func (p *Publisher) Publish(env *envelope.Envelope, sel topic.Selector) error {
	p.lock.Lock()
	if p.state != stateStarted {
		p.lock.Unlock()
		return ErrNotStarted
	}
	p.lock.Unlock()

	topics, err := sel.Resolve()
	if err != nil {
		return err
	}

	payload, err := env.Encode()
	if err != nil {
		return err
	}

	var msgs [][][]byte
	if sel.All() {
		msgs = [][][]byte{{payload}}
	} else {
		msgs = make([][][]byte, 0, len(topics))
		for _, t := range topics {
			msgs = append(msgs, [][]byte{[]byte(t), payload})
		}
	}

	p.conns.RLock()
	list := make([]transport.Conn, 0, len(p.conns.list))
	for _, cn := range p.conns.list {
		list = append(list, cn)
	}
	p.conns.RUnlock()

	for _, msg := range msgs {
		p.metric.Messages().OnPublished()

		for _, cn := range list {
			if e := cn.WriteMessage(msg...); e != nil {
				p.log.Warnf("send to %s failed, dropping connection: %s", cn.ID(), e)
				p.dropConn(cn)
			}
		}
	}

	return nil
}

// Stop closes the send socket and all subscriber connections. Publish
// calls made afterwards fail with ErrNotStarted
func (p *Publisher) Stop() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.state != stateStarted {
		return ErrNotStarted
	}

	p.state = stateStopped

	err := p.listener.Close()

	p.conns.Lock()
	for id, cn := range p.conns.list {
		err = multierr.Append(err, cn.Close())
		delete(p.conns.list, id)
	}
	p.conns.Unlock()

	<-p.serveDone

	p.log.Info("stopped")

	return err
}

func (p *Publisher) onConnection(cn transport.Conn) {
	p.conns.Lock()
	p.conns.list[cn.ID()] = cn
	p.conns.Unlock()

	p.metric.Clients().OnConnect()
	p.log.Debugf("subscriber %s connected", cn.ID())

	if p.opts.onConnect != nil {
		p.opts.onConnect(cn.ID())
	}

	// subscribers never send application data; a read returning is the
	// disconnect signal
	go func() {
		for {
			if _, err := cn.ReadMessage(); err != nil {
				break
			}
		}

		p.dropConn(cn)
	}()
}

func (p *Publisher) dropConn(cn transport.Conn) {
	p.conns.Lock()
	_, present := p.conns.list[cn.ID()]
	delete(p.conns.list, cn.ID())
	p.conns.Unlock()

	if !present {
		return
	}

	cn.Close() // nolint: errcheck

	p.metric.Clients().OnDisconnect()
	p.log.Debugf("subscriber %s disconnected", cn.ID())

	if p.opts.onDisconnect != nil {
		p.opts.onDisconnect(cn.ID())
	}
}
