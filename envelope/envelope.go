// Package envelope implements the tagged payload container carried on the
// wire. A single channel transports either structured events or opaque
// byte blobs; a one-byte content-type discriminator at the head of the
// payload frame tells peers which one they are looking at.
package envelope

import (
	"encoding/binary"
)

// ContentType discriminates the payload carried by an Envelope
type ContentType byte

const (
	// TypeEvent payload is an encoded structured event
	TypeEvent ContentType = 0x00
	// TypeBytes payload is an opaque byte blob
	TypeBytes ContentType = 0x01
)

// maxHintLen is the ceiling imposed by the 2-byte hint length field
const maxHintLen = 1<<16 - 1

// Name returns human readable content type name
func (t ContentType) Name() string {
	switch t {
	case TypeEvent:
		return "event"
	case TypeBytes:
		return "bytes"
	}

	return "unknown"
}

// Envelope tagged message payload. The tag is fixed at construction and
// interpreted identically by every peer; the body is only ever read
// through the accessor matching the tag
type Envelope struct {
	contentType ContentType
	body        []byte
	hint        string

	// decoded event, filled on first access
	event *Event
}

// NewBytes wraps an opaque byte blob, plus an optional type/metadata hint
// for the receiver. The blob itself passes through untouched
func NewBytes(data []byte, hint string) *Envelope {
	return &Envelope{
		contentType: TypeBytes,
		body:        data,
		hint:        hint,
	}
}

// NewEvent encodes a structured event into an envelope
func NewEvent(ev *Event) (*Envelope, error) {
	body, err := ev.encode()
	if err != nil {
		return nil, ErrBadEvent
	}

	return &Envelope{
		contentType: TypeEvent,
		body:        body,
	}, nil
}

// ContentType reports the discriminator tag
func (e *Envelope) ContentType() ContentType {
	return e.contentType
}

// Bytes returns the opaque blob and its hint. Fails with ErrWrongType on
// an event envelope
func (e *Envelope) Bytes() ([]byte, string, error) {
	if e.contentType != TypeBytes {
		return nil, "", ErrWrongType
	}

	return e.body, e.hint, nil
}

// Event decodes and returns the structured event. Fails with ErrWrongType
// on a bytes envelope
func (e *Envelope) Event() (*Event, error) {
	if e.contentType != TypeEvent {
		return nil, ErrWrongType
	}

	if e.event == nil {
		ev, err := decodeEvent(e.body)
		if err != nil {
			return nil, err
		}

		e.event = ev
	}

	return e.event, nil
}

// Encode lays the envelope out as a payload frame:
//
//	[1-byte tag][body]
//
// where a TypeBytes body is [2-byte BE hint length][hint][data] and a
// TypeEvent body is the encoded event record
func (e *Envelope) Encode() ([]byte, error) {
	switch e.contentType {
	case TypeEvent:
		buf := make([]byte, 1+len(e.body))
		buf[0] = byte(TypeEvent)
		copy(buf[1:], e.body)
		return buf, nil
	case TypeBytes:
		if len(e.hint) > maxHintLen {
			return nil, ErrHintTooLong
		}

		buf := make([]byte, 1+2+len(e.hint)+len(e.body))
		buf[0] = byte(TypeBytes)
		binary.BigEndian.PutUint16(buf[1:3], uint16(len(e.hint)))
		copy(buf[3:], e.hint)
		copy(buf[3+len(e.hint):], e.body)
		return buf, nil
	}

	return nil, ErrUnknownTag
}

// Decode reconstructs an envelope from a payload frame. The tag is read
// before anything else; an unknown tag is a hard decode error, never
// silently skipped
func Decode(buf []byte) (*Envelope, error) {
	if len(buf) < 1 {
		return nil, ErrMissingTag
	}

	switch ContentType(buf[0]) {
	case TypeEvent:
		return &Envelope{
			contentType: TypeEvent,
			body:        buf[1:],
		}, nil
	case TypeBytes:
		if len(buf) < 3 {
			return nil, ErrTruncated
		}

		hintLen := int(binary.BigEndian.Uint16(buf[1:3]))
		if len(buf) < 3+hintLen {
			return nil, ErrTruncated
		}

		return &Envelope{
			contentType: TypeBytes,
			hint:        string(buf[3 : 3+hintLen]),
			body:        buf[3+hintLen:],
		}, nil
	}

	return nil, ErrUnknownTag
}
