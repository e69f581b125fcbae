package wirebus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wirebus/wirebus/envelope"
	"github.com/wirebus/wirebus/topic"
)

func TestPublisherLifecycle(t *testing.T) {
	p := NewPublisher(0)

	_, err := p.Port()
	require.EqualError(t, err, ErrNotStarted.Error())

	env := envelope.NewBytes([]byte("x"), "")
	require.EqualError(t, p.Publish(env, topic.None()), ErrNotStarted.Error())

	require.NoError(t, p.Start())

	port, err := p.Port()
	require.NoError(t, err)
	require.NotEqual(t, 0, port)

	require.EqualError(t, p.Start(), ErrAlreadyStarted.Error())

	require.NoError(t, p.Stop())
	require.EqualError(t, p.Publish(env, topic.None()), ErrNotStarted.Error())

	// instances are single-use
	require.EqualError(t, p.Start(), ErrAlreadyStarted.Error())
	require.EqualError(t, p.Stop(), ErrNotStarted.Error())
}

func TestPublisherBindConflict(t *testing.T) {
	p1 := NewPublisher(0)
	require.NoError(t, p1.Start())
	defer p1.Stop()

	port, err := p1.Port()
	require.NoError(t, err)

	p2 := NewPublisher(port)
	err = p2.Start()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrBind)
}

func TestPublisherInvalidTopic(t *testing.T) {
	p := NewPublisher(0)
	require.NoError(t, p.Start())
	defer p.Stop()

	env := envelope.NewBytes([]byte("x"), "")

	require.EqualError(t, p.Publish(env, topic.Single("bad topic")), ErrInvalidTopic.Error())
	require.EqualError(t, p.Publish(env, topic.Set("ok/", "")), ErrInvalidTopic.Error())
}

func TestPublisherKeyAfterStart(t *testing.T) {
	priv, _, err := generateTestKeys(t)
	require.NoError(t, err)

	p := NewPublisher(0)
	require.NoError(t, p.Start())
	defer p.Stop()

	require.EqualError(t, p.SetServerPrivateKey(priv), ErrAlreadyStarted.Error())
}

func TestPublisherBadKey(t *testing.T) {
	p := NewPublisher(0)
	require.EqualError(t, p.SetServerPrivateKey("too-short"), ErrBadKey.Error())
}

func TestPublisherSecurityUnsupportedOnWS(t *testing.T) {
	priv, _, err := generateTestKeys(t)
	require.NoError(t, err)

	p := NewPublisher(0, WithTransport(TransportWS))
	require.EqualError(t, p.SetServerPrivateKey(priv), ErrSecurityUnsupported.Error())
}
