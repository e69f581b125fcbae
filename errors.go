package wirebus

import (
	"errors"

	"github.com/wirebus/wirebus/security"
	"github.com/wirebus/wirebus/topic"
)

// Closed set of error kinds surfaced by Publisher and Subscriber
// operations. Configuration mistakes (bad topic, bad key, wrong call
// order) come back synchronously as one of these; receive-path failures
// on live connections are handled internally and never show up here.
var (
	// ErrInvalidTopic malformed or empty topic string, or list member
	ErrInvalidTopic = topic.ErrInvalid

	// ErrNotStarted operation requires Start first
	ErrNotStarted = errors.New("wirebus: not started")

	// ErrAlreadyStarted double start, restart after stop, or identity key
	// set after start. Instances are single-use, there is no way back from
	// Stopped
	ErrAlreadyStarted = errors.New("wirebus: already started")

	// ErrBind send socket could not bind its port
	ErrBind = errors.New("wirebus: bind failed")

	// ErrConnect receive socket could not reach its target
	ErrConnect = errors.New("wirebus: connect failed")

	// ErrSecurityUnsupported security API invoked while the chosen
	// transport lacks the curve capability
	ErrSecurityUnsupported = security.ErrUnsupported

	// ErrSecurityMisconfigured key material missing or set in the wrong
	// order, e.g. a secured direct subscribe without a server public key
	ErrSecurityMisconfigured = security.ErrMisconfigured

	// ErrBadKey key is not a 40-character Z85 string
	ErrBadKey = security.ErrKeyFormat

	// ErrNotFound no subscription under the given key. UnSubscribe treats
	// an absent entry as a no-op and never returns this; it completes the
	// enumeration for callers that switch over the set
	ErrNotFound = errors.New("wirebus: subscription not found")
)

// mapSecurityErr translates security package state errors into the public
// taxonomy
func mapSecurityErr(err error) error {
	if errors.Is(err, security.ErrSealed) {
		return ErrAlreadyStarted
	}

	return err
}
