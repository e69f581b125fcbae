package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// RFC 32 reference vector
func TestZ85Vector(t *testing.T) {
	raw, err := z85Decode("HelloWorld")
	require.NoError(t, err)
	require.Equal(t, []byte{0x86, 0x4f, 0xd2, 0x6f, 0xb5, 0x59, 0xf7, 0x5b}, raw)

	enc, err := z85Encode(raw)
	require.NoError(t, err)
	require.Equal(t, "HelloWorld", enc)
}

func TestZ85Reject(t *testing.T) {
	_, err := z85Decode("Hello")
	require.NoError(t, err)

	_, err = z85Decode("Hell")
	require.EqualError(t, err, ErrKeyFormat.Error())

	_, err = z85Decode("Hell\"")
	require.EqualError(t, err, ErrKeyFormat.Error())

	_, err = z85Encode([]byte{1, 2, 3})
	require.EqualError(t, err, ErrKeyFormat.Error())
}

func testKey(t *testing.T) (string, string) {
	t.Helper()

	priv, pub, err := GenerateKeyPair()
	require.NoError(t, err)
	require.Len(t, priv, KeyLength)
	require.Len(t, pub, KeyLength)

	return priv, pub
}

func TestSetClientKeys(t *testing.T) {
	priv, pub := testKey(t)

	c := NewContext(true)
	require.NoError(t, c.SetClientKeys(priv, pub))
	require.True(t, c.Secured())

	gotPriv, gotPub, err := c.ClientKeypair()
	require.NoError(t, err)
	require.NotEqual(t, gotPriv, gotPub)
}

func TestKeyValidation(t *testing.T) {
	priv, pub := testKey(t)

	c := NewContext(true)

	require.EqualError(t, c.SetClientKeys("short", pub), ErrKeyFormat.Error())
	require.EqualError(t, c.SetClientKeys(priv, strings.Repeat("\"", KeyLength)), ErrKeyFormat.Error())
	require.EqualError(t, c.SetServerPrivateKey(""), ErrKeyFormat.Error())
	require.False(t, c.Secured())
}

func TestSealBlocksIdentityKeys(t *testing.T) {
	priv, pub := testKey(t)

	c := NewContext(true)
	require.NoError(t, c.SetClientKeys(priv, pub))

	c.Seal()

	require.EqualError(t, c.SetClientKeys(priv, pub), ErrSealed.Error())
	require.EqualError(t, c.SetServerPrivateKey(priv), ErrSealed.Error())

	// the already-active identity is untouched
	require.True(t, c.Secured())

	// the remote trust anchor may still change, late direct connects need it
	require.NoError(t, c.SetServerPublicKey(pub))
	require.True(t, c.HasServerPublicKey())
}

func TestUnsupportedTransport(t *testing.T) {
	priv, pub := testKey(t)

	c := NewContext(false)

	require.EqualError(t, c.SetClientKeys(priv, pub), ErrUnsupported.Error())
	require.EqualError(t, c.SetServerPrivateKey(priv), ErrUnsupported.Error())
	require.EqualError(t, c.SetServerPublicKey(pub), ErrUnsupported.Error())
	require.False(t, c.Secured())
}

func TestServerKeypairDerivesPublic(t *testing.T) {
	priv, pub := testKey(t)

	c := NewContext(true)
	require.NoError(t, c.SetServerPrivateKey(priv))

	_, derived, err := c.ServerKeypair()
	require.NoError(t, err)

	enc, err := z85Encode(derived[:])
	require.NoError(t, err)
	require.Equal(t, pub, enc)
}

func TestMissingKeys(t *testing.T) {
	c := NewContext(true)

	_, _, err := c.ClientKeypair()
	require.EqualError(t, err, ErrMisconfigured.Error())

	_, _, err = c.ServerKeypair()
	require.EqualError(t, err, ErrMisconfigured.Error())

	_, err = c.RemoteServerKey()
	require.EqualError(t, err, ErrMisconfigured.Error())
}
