package wirebus

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wirebus/wirebus/configuration"
	"github.com/wirebus/wirebus/envelope"
	"github.com/wirebus/wirebus/metrics"
	"github.com/wirebus/wirebus/security"
	"github.com/wirebus/wirebus/topic"
	"github.com/wirebus/wirebus/transport"
)

// Callback receives envelopes matched by an all-topics subscription
type Callback func(env *envelope.Envelope)

// TopicCallback receives envelopes matched by a topic subscription. The
// topic argument is the subscribed topic, not necessarily the exact topic
// the message was published on
type TopicCallback func(topic string, env *envelope.Envelope)

// the all-topics marker key; the empty string can never clash with a real
// subscription because empty topics fail validation
const allKey = ""

type subscription struct {
	all bool

	// conn set on direct endpoint subscriptions only; its lifetime is
	// bound to the subscription entry
	conn transport.Conn
}

// Subscriber owns one receive-side socket connected to a default
// publisher plus any number of direct per-endpoint connections, and
// dispatches inbound messages to the registered callbacks. Lifecycle is
// Created -> Started -> Stopped, strictly linear.
//
// Callbacks fire on the background receive loop while the subscription
// table is read-locked, so delivery to a removed callback cannot happen;
// the flip side is that callbacks must not call Subscribe or UnSubscribe
// on their own subscriber
type Subscriber struct {
	opts options

	host string
	port int

	plainCB Callback
	topicCB TopicCallback

	security *security.Context
	metric   metrics.IFace
	log      *zap.SugaredLogger

	// guards state transitions, see Publisher
	lock  sync.Mutex
	state state

	dialer      transport.Dialer
	defaultConn transport.Conn
	group       errgroup.Group

	subs struct {
		sync.RWMutex
		table map[string]*subscription
	}
}

// NewSubscriber allocates a subscriber targeting the publisher at
// host:port. plainCB fires for all-topics matches, topicCB for topic
// matches; either may be nil when the corresponding subscription kind is
// never used
func NewSubscriber(host string, port int, plainCB Callback, topicCB TopicCallback, opts ...Option) *Subscriber {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &Subscriber{
		opts:    o,
		host:    host,
		port:    port,
		plainCB: plainCB,
		topicCB: topicCB,
		metric:  metrics.New(o.registerer),
		log:     configuration.GetLogger().Named("subscriber"),
	}

	s.security = security.NewContext(transportCurveCapable(o.transport))
	s.subs.table = make(map[string]*subscription)

	return s
}

// Host default connection target address. Valid from construction on
func (s *Subscriber) Host() string {
	return s.host
}

// Port default connection target port. Valid from construction on
func (s *Subscriber) Port() int {
	return s.port
}

// SetClientKeys stores this subscriber's curve identity. Must be called
// before Start
func (s *Subscriber) SetClientKeys(privateKey, publicKey string) error {
	return mapSecurityErr(s.security.SetClientKeys(privateKey, publicKey))
}

// SetServerPublicKey stores the publisher public key this subscriber
// trusts. In secured mode it has to be in place before Start and before
// any SubscribeToEndpoint call
func (s *Subscriber) SetServerPublicKey(publicKey string) error {
	return mapSecurityErr(s.security.SetServerPublicKey(publicKey))
}

// Start connects the receive socket to the default target
func (s *Subscriber) Start() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.state != stateCreated {
		return ErrAlreadyStarted
	}

	if s.security.Secured() && !s.security.HasServerPublicKey() {
		return ErrSecurityMisconfigured
	}

	tCfg := &transport.Config{
		Security: s.security,
		Stat:     s.metric.Bytes(),
	}

	switch s.opts.transport {
	case TransportWS:
		cfg := transport.NewConfigDialerWS(tCfg)
		cfg.Path = s.opts.wsPath
		cfg.TLS = s.opts.tls
		cfg.Timeout = s.opts.timeout
		s.dialer = transport.NewDialerWS(cfg)
	default:
		cfg := transport.NewConfigDialerTCP(tCfg)
		cfg.TLS = s.opts.tls
		cfg.Timeout = s.opts.timeout
		s.dialer = transport.NewDialerTCP(cfg)
	}

	cn, err := s.dialer.Dial(s.host, s.port)
	if err != nil {
		return errors.Wrap(ErrConnect, err.Error())
	}

	s.security.Seal()

	s.defaultConn = cn
	s.state = stateStarted

	s.group.Go(func() error {
		s.receiveLoop(cn)
		return nil
	})

	s.log.Infof("connected to %s:%d", s.host, s.port)

	return nil
}

// Subscribe activates subscriptions according to the selector: None
// activates the all-topics subscription feeding the plain callback,
// Single/Set activate topic subscriptions feeding the topic-aware
// callback. Topic list validation is atomic, one bad member leaves the
// table untouched
func (s *Subscriber) Subscribe(sel topic.Selector) error {
	s.lock.Lock()
	if s.state != stateStarted {
		s.lock.Unlock()
		return ErrNotStarted
	}
	s.lock.Unlock()

	topics, err := sel.Resolve()
	if err != nil {
		return err
	}

	s.subs.Lock()
	defer s.subs.Unlock()

	if sel.All() {
		s.subs.table[allKey] = &subscription{all: true}
		return nil
	}

	for _, t := range topics {
		if existing, ok := s.subs.table[t]; ok && existing.conn != nil {
			// keep the endpoint connection, the entry already covers t
			continue
		}

		s.subs.table[t] = &subscription{}
	}

	return nil
}

// SubscribeToEndpoint opens an additional direct connection to the
// publisher at host:port and subscribes it to one topic, independent of
// the default connection. The topic gets its trailing / appended when
// missing. In secured mode the server public key must already be set,
// otherwise the call fails with ErrSecurityMisconfigured
func (s *Subscriber) SubscribeToEndpoint(host string, port int, t string) error {
	s.lock.Lock()
	if s.state != stateStarted {
		s.lock.Unlock()
		return ErrNotStarted
	}
	s.lock.Unlock()

	if err := topic.Validate(t); err != nil {
		return err
	}
	t = topic.Normalize(t)

	if s.security.Secured() && !s.security.HasServerPublicKey() {
		return ErrSecurityMisconfigured
	}

	cn, err := s.dialer.Dial(host, port)
	if err != nil {
		return errors.Wrap(ErrConnect, err.Error())
	}

	s.subs.Lock()
	if existing, ok := s.subs.table[t]; ok && existing.conn != nil {
		existing.conn.Close() // nolint: errcheck
	}
	s.subs.table[t] = &subscription{conn: cn}
	s.subs.Unlock()

	s.group.Go(func() error {
		s.receiveLoop(cn)
		return nil
	})

	s.log.Infof("direct subscription to %s:%d topic %q", host, port, t)

	return nil
}

// UnSubscribe deactivates subscriptions according to the selector.
// Removing an entry that does not exist is a no-op, not an error; other
// active subscriptions stay untouched. Removing an endpoint subscription
// closes its direct connection
func (s *Subscriber) UnSubscribe(sel topic.Selector) error {
	s.lock.Lock()
	if s.state != stateStarted {
		s.lock.Unlock()
		return ErrNotStarted
	}
	s.lock.Unlock()

	topics, err := sel.Resolve()
	if err != nil {
		return err
	}

	s.subs.Lock()
	defer s.subs.Unlock()

	if sel.All() {
		delete(s.subs.table, allKey)
		return nil
	}

	for _, t := range topics {
		if sub, ok := s.subs.table[t]; ok {
			if sub.conn != nil {
				sub.conn.Close() // nolint: errcheck
			}
			delete(s.subs.table, t)
		}
	}

	return nil
}

// Stop tears down the default and all per-endpoint connections and clears
// every subscription. Returns once the receive loops have exited
func (s *Subscriber) Stop() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.state != stateStarted {
		return ErrNotStarted
	}

	s.state = stateStopped

	err := s.defaultConn.Close()

	s.subs.Lock()
	for t, sub := range s.subs.table {
		if sub.conn != nil {
			err = multierr.Append(err, sub.conn.Close())
		}
		delete(s.subs.table, t)
	}
	s.subs.Unlock()

	// closing the sockets unblocks the loops, so this wait is bounded
	err = multierr.Append(err, s.group.Wait())

	s.log.Info("stopped")

	return err
}

func (s *Subscriber) receiveLoop(cn transport.Conn) {
	for {
		frames, err := cn.ReadMessage()
		if err != nil {
			// closed locally on stop/unsubscribe, or the publisher went
			// away; either way this loop is done
			return
		}

		s.dispatch(frames)
	}
}

// dispatch applies the routing rule to one inbound message: extract the
// topic frame (absent means untyped broadcast), find matching
// subscriptions, decode the envelope once, invoke exactly one callback per
// match. Decode failures drop the message, observable through the log and
// the decode error counter only
func (s *Subscriber) dispatch(frames [][]byte) {
	s.metric.Messages().OnReceived()

	if len(frames) == 0 {
		s.metric.Messages().OnDecodeError()
		return
	}

	var wireTopic string
	var payload []byte

	if len(frames) >= 2 {
		wireTopic = string(frames[0])
		payload = frames[1]

		if topic.Validate(wireTopic) != nil {
			s.metric.Messages().OnDecodeError()
			s.log.Warnf("dropping message with malformed topic frame %q", wireTopic)
			return
		}
	} else {
		payload = frames[0]
	}

	s.subs.RLock()
	defer s.subs.RUnlock()

	matched := make([]string, 0, 2)

	for key, sub := range s.subs.table {
		if sub.all {
			matched = append(matched, allKey)
			continue
		}

		if wireTopic != "" && topic.Matches(wireTopic, key) {
			matched = append(matched, key)
		}
	}

	if len(matched) == 0 {
		s.metric.Messages().OnDropped()
		return
	}

	env, err := envelope.Decode(payload)
	if err != nil {
		s.metric.Messages().OnDecodeError()
		s.log.Warnf("dropping undecodable message: %s", err)
		return
	}

	// messages are never delivered half-decoded: a structured event that
	// fails its codec is dropped here, before any callback fires
	if env.ContentType() == envelope.TypeEvent {
		if _, err = env.Event(); err != nil {
			s.metric.Messages().OnDecodeError()
			s.log.Warnf("dropping undecodable event payload: %s", err)
			return
		}
	}

	for _, m := range matched {
		if m == allKey {
			if s.plainCB != nil {
				s.plainCB(env)
			}
			continue
		}

		if s.topicCB != nil {
			s.topicCB(m, env)
		}
	}
}
