package security

// Z85 binary-to-text codec as specified by ZMQ RFC 32. Key material crosses
// the public API exclusively in this encoding: a 32-byte curve key is
// exactly 40 characters

const z85Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ.-:+=^!/*?&<>()[]{}@%$#"

var z85Decoder [256]byte

func init() {
	for i := range z85Decoder {
		z85Decoder[i] = 0xff
	}

	for i, c := range []byte(z85Alphabet) {
		z85Decoder[c] = byte(i)
	}
}

func z85Encode(data []byte) (string, error) {
	if len(data)%4 != 0 {
		return "", ErrKeyFormat
	}

	out := make([]byte, 0, len(data)/4*5)

	for i := 0; i < len(data); i += 4 {
		value := uint32(data[i])<<24 | uint32(data[i+1])<<16 |
			uint32(data[i+2])<<8 | uint32(data[i+3])

		div := uint32(85 * 85 * 85 * 85)
		for j := 0; j < 5; j++ {
			out = append(out, z85Alphabet[value/div%85])
			div /= 85
		}
	}

	return string(out), nil
}

func z85Decode(s string) ([]byte, error) {
	if len(s)%5 != 0 {
		return nil, ErrKeyFormat
	}

	out := make([]byte, 0, len(s)/5*4)

	for i := 0; i < len(s); i += 5 {
		var value uint32

		for j := 0; j < 5; j++ {
			d := z85Decoder[s[i+j]]
			if d == 0xff {
				return nil, ErrKeyFormat
			}

			value = value*85 + uint32(d)
		}

		out = append(out, byte(value>>24), byte(value>>16), byte(value>>8), byte(value))
	}

	return out, nil
}
