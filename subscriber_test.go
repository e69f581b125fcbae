package wirebus

import (
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wirebus/wirebus/envelope"
	"github.com/wirebus/wirebus/topic"
)

// interleaves subscription table churn with a live delivery stream; the
// assertions are about integrity (no panic, no delivery after remove
// returned), not about exact counts
func TestConcurrentSubscriptionChurn(t *testing.T) {
	var stopped int32
	var lateDelivery int32

	sentinel := make(chan struct{}, 8)
	connected := make(chan struct{}, 1)

	pub := NewPublisher(0, WithLifecycleCallbacks(func(string) { connected <- struct{}{} }, nil))
	require.NoError(t, pub.Start())
	defer pub.Stop()

	port, err := pub.Port()
	require.NoError(t, err)

	sub := NewSubscriber("127.0.0.1", port, nil,
		func(tp string, env *envelope.Envelope) {
			switch tp {
			case "churn/":
				if atomic.LoadInt32(&stopped) == 1 {
					atomic.AddInt32(&lateDelivery, 1)
				}
			case "sentinel/":
				sentinel <- struct{}{}
			}
		})

	require.NoError(t, sub.Start())
	defer sub.Stop()

	select {
	case <-connected:
	case <-time.After(testTimeout):
		t.Fatal("publisher never saw the subscriber connect")
	}

	var wg sync.WaitGroup

	// churn: flip a single subscription on and off
	wg.Add(1)
	go func() {
		defer wg.Done()

		for i := 0; i < 1000; i++ {
			require.NoError(t, sub.Subscribe(topic.Single("churn/")))
			require.NoError(t, sub.UnSubscribe(topic.Single("churn/")))
		}
	}()

	// churn: unrelated subscriptions coming and going
	wg.Add(1)
	go func() {
		defer wg.Done()

		for i := 0; i < 1000; i++ {
			tp := "other/" + strconv.Itoa(i%10) + "/"
			require.NoError(t, sub.Subscribe(topic.Single(tp)))
			require.NoError(t, sub.UnSubscribe(topic.Single(tp)))
		}
	}()

	// delivery stream
	wg.Add(1)
	go func() {
		defer wg.Done()

		env := envelope.NewBytes([]byte("x"), "")
		for i := 0; i < 1000; i++ {
			require.NoError(t, pub.Publish(env, topic.Single("churn/sub/")))
		}
	}()

	wg.Wait()

	// from this point on the churn subscription is gone for good; dispatch
	// runs under the same lock UnSubscribe takes, so once it returned no
	// further churn/ delivery may happen
	require.NoError(t, sub.UnSubscribe(topic.Single("churn/")))
	atomic.StoreInt32(&stopped, 1)

	require.NoError(t, pub.Publish(envelope.NewBytes([]byte("x"), ""), topic.Single("churn/late/")))

	// a sentinel published after the late message sequences past it on the
	// same connection
	require.NoError(t, sub.Subscribe(topic.Single("sentinel/")))
	require.NoError(t, pub.Publish(envelope.NewBytes([]byte("s"), ""), topic.Single("sentinel/")))

	select {
	case <-sentinel:
	case <-time.After(testTimeout):
		t.Fatal("sentinel never delivered")
	}

	require.Equal(t, int32(0), atomic.LoadInt32(&lateDelivery))
}

func TestWebsocketTransport(t *testing.T) {
	connected := make(chan struct{}, 1)

	pub := NewPublisher(0,
		WithTransport(TransportWS),
		WithLifecycleCallbacks(func(string) { connected <- struct{}{} }, nil))
	require.NoError(t, pub.Start())
	defer pub.Stop()

	port, err := pub.Port()
	require.NoError(t, err)

	typed := make(chan delivery, 8)

	sub := NewSubscriber("127.0.0.1", port, nil,
		func(tp string, env *envelope.Envelope) { typed <- delivery{topic: tp, env: env} },
		WithTransport(TransportWS))
	require.NoError(t, sub.Start())
	defer sub.Stop()

	select {
	case <-connected:
	case <-time.After(testTimeout):
		t.Fatal("publisher never saw the subscriber connect")
	}

	require.NoError(t, sub.Subscribe(topic.Single("home/")))
	require.NoError(t, pub.Publish(envelope.NewBytes([]byte("ws"), "hint"), topic.Single("home/kitchen/")))

	select {
	case d := <-typed:
		require.Equal(t, "home/", d.topic)
		data, hint, e := d.env.Bytes()
		require.NoError(t, e)
		require.Equal(t, []byte("ws"), data)
		require.Equal(t, "hint", hint)
	case <-time.After(testTimeout):
		t.Fatal("no delivery over websocket")
	}
}

func TestWebsocketSecurityUnsupported(t *testing.T) {
	priv, pub, err := generateTestKeys(t)
	require.NoError(t, err)

	s := NewSubscriber("127.0.0.1", 1, nil, nil, WithTransport(TransportWS))

	require.EqualError(t, s.SetClientKeys(priv, pub), ErrSecurityUnsupported.Error())
	require.EqualError(t, s.SetServerPublicKey(pub), ErrSecurityUnsupported.Error())
}

func TestCurveSecuredSession(t *testing.T) {
	serverPriv, serverPub, err := generateTestKeys(t)
	require.NoError(t, err)

	clientPriv, clientPub, err := generateTestKeys(t)
	require.NoError(t, err)

	connected := make(chan struct{}, 1)

	pub := NewPublisher(0, WithLifecycleCallbacks(func(string) { connected <- struct{}{} }, nil))
	require.NoError(t, pub.SetServerPrivateKey(serverPriv))
	require.NoError(t, pub.Start())
	defer pub.Stop()

	port, err := pub.Port()
	require.NoError(t, err)

	typed := make(chan delivery, 8)

	sub := NewSubscriber("127.0.0.1", port, nil,
		func(tp string, env *envelope.Envelope) { typed <- delivery{topic: tp, env: env} })
	require.NoError(t, sub.SetClientKeys(clientPriv, clientPub))
	require.NoError(t, sub.SetServerPublicKey(serverPub))
	require.NoError(t, sub.Start())
	defer sub.Stop()

	select {
	case <-connected:
	case <-time.After(testTimeout):
		t.Fatal("secured handshake never completed")
	}

	require.NoError(t, sub.Subscribe(topic.Single("secure/")))
	require.NoError(t, pub.Publish(envelope.NewBytes([]byte("secret"), ""), topic.Single("secure/channel/")))

	select {
	case d := <-typed:
		require.Equal(t, "secure/", d.topic)
		data, _, e := d.env.Bytes()
		require.NoError(t, e)
		require.Equal(t, []byte("secret"), data)
	case <-time.After(testTimeout):
		t.Fatal("no delivery over the secured session")
	}
}
