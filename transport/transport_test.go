package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wirebus/wirebus/security"
)

func TestFrameCodec(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	in := newConn(client, nil)
	out := newConn(server, nil)

	go func() {
		_ = in.WriteMessage([]byte("home/kitchen/"), []byte{0x01, 0xde, 0xad})
	}()

	frames, err := out.ReadMessage()
	require.NoError(t, err)
	require.Len(t, frames, 2)
	require.Equal(t, "home/kitchen/", string(frames[0]))
	require.Equal(t, []byte{0x01, 0xde, 0xad}, frames[1])
}

func TestFrameCodecSingleFrame(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	in := newConn(client, nil)
	out := newConn(server, nil)

	go func() {
		_ = in.WriteMessage([]byte("payload"))
	}()

	frames, err := out.ReadMessage()
	require.NoError(t, err)
	require.Len(t, frames, 1)
	require.Equal(t, "payload", string(frames[0]))
}

func TestWriteEmptyMessage(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	c := newConn(client, nil)
	require.EqualError(t, c.WriteMessage(), ErrEmptyMessage.Error())
}

func newTestListener(t *testing.T) (Listener, chan Conn) {
	t.Helper()

	l, err := NewTCP(NewConfigTCP(&Config{Port: 0, Security: security.NewContext(true)}))
	require.NoError(t, err)

	accepted := make(chan Conn, 1)
	go func() {
		_ = l.Serve(func(cn Conn) {
			accepted <- cn
		})
	}()

	return l, accepted
}

func TestTCPLoopback(t *testing.T) {
	l, accepted := newTestListener(t)
	defer l.Close()

	require.NotEqual(t, 0, l.Port())
	require.Equal(t, "tcp", l.Protocol())
	require.True(t, l.Capabilities().Curve)
	require.NoError(t, l.Ready())

	d := NewDialerTCP(NewConfigDialerTCP(&Config{Security: security.NewContext(true)}))

	cn, err := d.Dial("127.0.0.1", l.Port())
	require.NoError(t, err)
	defer cn.Close()

	var serverSide Conn
	select {
	case serverSide = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("no connection accepted")
	}
	defer serverSide.Close()

	require.NoError(t, serverSide.WriteMessage([]byte("topic/"), []byte("payload")))

	frames, err := cn.ReadMessage()
	require.NoError(t, err)
	require.Len(t, frames, 2)
	require.Equal(t, "topic/", string(frames[0]))
}

func TestTCPDialRefused(t *testing.T) {
	d := NewDialerTCP(NewConfigDialerTCP(&Config{Security: security.NewContext(true)}))

	// port 1 is never listening
	_, err := d.Dial("127.0.0.1", 1)
	require.Error(t, err)
}

func TestTCPCloseUnblocksRead(t *testing.T) {
	l, accepted := newTestListener(t)
	defer l.Close()

	d := NewDialerTCP(NewConfigDialerTCP(&Config{Security: security.NewContext(true)}))

	cn, err := d.Dial("127.0.0.1", l.Port())
	require.NoError(t, err)

	select {
	case <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("no connection accepted")
	}

	readDone := make(chan error, 1)
	go func() {
		_, e := cn.ReadMessage()
		readDone <- e
	}()

	require.NoError(t, cn.Close())

	select {
	case e := <-readDone:
		require.Error(t, e)
	case <-time.After(2 * time.Second):
		t.Fatal("read not unblocked by close")
	}
}

func TestBindConflict(t *testing.T) {
	l, _ := newTestListener(t)
	defer l.Close()

	_, err := NewTCP(NewConfigTCP(&Config{Port: l.Port(), Security: security.NewContext(true)}))
	require.Error(t, err)
}
