package transport

import (
	"encoding/binary"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/wirebus/wirebus/metrics"
)

// Frame layout on the wire:
//
//	[1-byte flags][4-byte BE length][length bytes]
//
// flags bit0 set means another frame of the same message follows. A topic
// tagged message is two frames (topic, payload), an untyped broadcast is a
// single payload frame.
const (
	flagMore = 0x01

	frameHeaderLen = 5

	// maxFrameLen upper bound on a single frame, guards the receive loop
	// against hostile length prefixes
	maxFrameLen = 16 * 1024 * 1024
)

// conn wraps a stream net.Conn with message framing and byte accounting
type conn struct {
	net.Conn

	id   string
	stat metrics.Bytes

	wlock sync.Mutex
}

var _ Conn = (*conn)(nil)

func newConn(cn net.Conn, stat metrics.Bytes) *conn {
	return &conn{
		Conn: cn,
		id:   uuid.NewString(),
		stat: stat,
	}
}

// ID ...
func (c *conn) ID() string {
	return c.id
}

// ReadMessage ...
func (c *conn) ReadMessage() ([][]byte, error) {
	var frames [][]byte
	var hdr [frameHeaderLen]byte

	for {
		if _, err := io.ReadFull(c.Conn, hdr[:]); err != nil {
			return nil, err
		}

		size := binary.BigEndian.Uint32(hdr[1:])
		if size > maxFrameLen {
			return nil, ErrFrameTooLarge
		}

		frame := make([]byte, size)
		if _, err := io.ReadFull(c.Conn, frame); err != nil {
			return nil, err
		}

		if c.stat != nil {
			c.stat.OnRecv(frameHeaderLen + int(size))
		}

		frames = append(frames, frame)

		if hdr[0]&flagMore == 0 {
			return frames, nil
		}
	}
}

// WriteMessage ...
func (c *conn) WriteMessage(frames ...[]byte) error {
	if len(frames) == 0 {
		return ErrEmptyMessage
	}

	// assemble the whole message into one buffer so concurrent writers
	// never interleave frames
	total := 0
	for _, f := range frames {
		total += frameHeaderLen + len(f)
	}

	buf := make([]byte, 0, total)

	for i, f := range frames {
		var flags byte
		if i < len(frames)-1 {
			flags = flagMore
		}

		var hdr [frameHeaderLen]byte
		hdr[0] = flags
		binary.BigEndian.PutUint32(hdr[1:], uint32(len(f)))

		buf = append(buf, hdr[:]...)
		buf = append(buf, f...)
	}

	c.wlock.Lock()
	_, err := c.Conn.Write(buf)
	c.wlock.Unlock()

	if err == nil && c.stat != nil {
		c.stat.OnSent(total)
	}

	return err
}
