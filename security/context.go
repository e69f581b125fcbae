// Package security holds the curve key material gating encrypted transport
// setup. Keys travel as 40-character Z85 strings, exactly as the transport's
// curve scheme serializes them; no other format is accepted.
package security

import (
	"errors"
	"sync"

	"github.com/Rudd-O/curvetls"
	"golang.org/x/crypto/curve25519"
)

// KeyLength length of a Z85 encoded 32-byte curve key
const KeyLength = 40

var (
	// ErrUnsupported security API invoked while the owning transport lacks
	// the curve capability
	ErrUnsupported = errors.New("security: not supported by transport")

	// ErrSealed key material changed after the owning socket started
	ErrSealed = errors.New("security: socket already started")

	// ErrKeyFormat key is not a 40-character Z85 string
	ErrKeyFormat = errors.New("security: malformed key")

	// ErrMisconfigured key material missing or set in the wrong order
	ErrMisconfigured = errors.New("security: misconfigured")
)

// Context holds local and peer key material for one Publisher or
// Subscriber. A zero-key context leaves the transport in plain mode.
// Once the owning socket starts the context is sealed: local identity
// keys can no longer change
type Context struct {
	lock   sync.RWMutex
	sealed bool

	supported bool

	clientPrivate string
	clientPublic  string
	serverPrivate string
	serverPublic  string
}

// NewContext allocates a context. supported reflects whether the owning
// transport implements the curve capability; when it does not, every
// setter reports ErrUnsupported instead of silently succeeding
func NewContext(supported bool) *Context {
	return &Context{
		supported: supported,
	}
}

func validateKey(key string) error {
	if len(key) != KeyLength {
		return ErrKeyFormat
	}

	raw, err := z85Decode(key)
	if err != nil {
		return err
	}

	if len(raw) != 32 {
		return ErrKeyFormat
	}

	return nil
}

// SetClientKeys stores the local client identity. Must be called before
// the owning socket starts
func (c *Context) SetClientKeys(privateKey, publicKey string) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.supported {
		return ErrUnsupported
	}

	if c.sealed {
		return ErrSealed
	}

	if err := validateKey(privateKey); err != nil {
		return err
	}

	if err := validateKey(publicKey); err != nil {
		return err
	}

	c.clientPrivate = privateKey
	c.clientPublic = publicKey

	return nil
}

// SetServerPrivateKey stores the local server identity. Must be called
// before the owning socket starts
func (c *Context) SetServerPrivateKey(privateKey string) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.supported {
		return ErrUnsupported
	}

	if c.sealed {
		return ErrSealed
	}

	if err := validateKey(privateKey); err != nil {
		return err
	}

	c.serverPrivate = privateKey

	return nil
}

// SetServerPublicKey stores the public key of the remote server this side
// is willing to trust. It must be in place before any call that creates a
// direct connection to that server; the connect path checks and reports
// the violation
func (c *Context) SetServerPublicKey(publicKey string) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.supported {
		return ErrUnsupported
	}

	if err := validateKey(publicKey); err != nil {
		return err
	}

	c.serverPublic = publicKey

	return nil
}

// Seal freezes local identity keys. Called by the owner on start; there is
// no way back
func (c *Context) Seal() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.sealed = true
}

// Secured reports whether any local identity key is present, i.e. whether
// connections must be curve-wrapped
func (c *Context) Secured() bool {
	if c == nil {
		return false
	}

	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.clientPrivate != "" || c.serverPrivate != ""
}

// HasServerPublicKey reports whether a remote trust anchor is configured
func (c *Context) HasServerPublicKey() bool {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.serverPublic != ""
}

// ClientKeypair returns the decoded local client identity
func (c *Context) ClientKeypair() (curvetls.Privkey, curvetls.Pubkey, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	var priv curvetls.Privkey
	var pub curvetls.Pubkey

	if c.clientPrivate == "" || c.clientPublic == "" {
		return priv, pub, ErrMisconfigured
	}

	rawPriv, err := z85Decode(c.clientPrivate)
	if err != nil {
		return priv, pub, err
	}

	rawPub, err := z85Decode(c.clientPublic)
	if err != nil {
		return priv, pub, err
	}

	copy(priv[:], rawPriv)
	copy(pub[:], rawPub)

	return priv, pub, nil
}

// ServerKeypair returns the decoded local server identity. The public half
// is derived from the private key, callers never supply it
func (c *Context) ServerKeypair() (curvetls.Privkey, curvetls.Pubkey, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	var priv curvetls.Privkey
	var pub curvetls.Pubkey

	if c.serverPrivate == "" {
		return priv, pub, ErrMisconfigured
	}

	rawPriv, err := z85Decode(c.serverPrivate)
	if err != nil {
		return priv, pub, err
	}

	rawPub, err := curve25519.X25519(rawPriv, curve25519.Basepoint)
	if err != nil {
		return priv, pub, ErrKeyFormat
	}

	copy(priv[:], rawPriv)
	copy(pub[:], rawPub)

	return priv, pub, nil
}

// RemoteServerKey returns the decoded remote trust anchor
func (c *Context) RemoteServerKey() (curvetls.Pubkey, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	var pub curvetls.Pubkey

	if c.serverPublic == "" {
		return pub, ErrMisconfigured
	}

	raw, err := z85Decode(c.serverPublic)
	if err != nil {
		return pub, err
	}

	copy(pub[:], raw)

	return pub, nil
}
