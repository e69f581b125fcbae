package security

import (
	"github.com/Rudd-O/curvetls"
)

// GenerateKeyPair mints a fresh curve identity, returning the private and
// public halves as Z85 strings ready for SetClientKeys or
// SetServerPrivateKey on a peer
func GenerateKeyPair() (privateKey, publicKey string, err error) {
	priv, pub, err := curvetls.GenKeyPair()
	if err != nil {
		return "", "", err
	}

	if privateKey, err = z85Encode(priv[:]); err != nil {
		return "", "", err
	}

	if publicKey, err = z85Encode(pub[:]); err != nil {
		return "", "", err
	}

	return privateKey, publicKey, nil
}
