package envelope

// Error decode/encode errors
type Error byte

const (
	// ErrMissingTag payload frame is empty, no content-type tag present
	ErrMissingTag Error = iota
	// ErrUnknownTag content-type tag is outside the known set
	ErrUnknownTag
	// ErrTruncated body is shorter than its declared layout
	ErrTruncated
	// ErrBadEvent structured event body cannot be decoded
	ErrBadEvent
	// ErrWrongType payload accessed as the wrong content type
	ErrWrongType
	// ErrHintTooLong type hint exceeds the 2-byte wire length field
	ErrHintTooLong
)

// Error returns the corresponding error string
func (e Error) Error() string {
	switch e {
	case ErrMissingTag:
		return "envelope: missing content-type tag"
	case ErrUnknownTag:
		return "envelope: unknown content-type tag"
	case ErrTruncated:
		return "envelope: truncated body"
	case ErrBadEvent:
		return "envelope: malformed event payload"
	case ErrWrongType:
		return "envelope: wrong content type"
	case ErrHintTooLong:
		return "envelope: type hint too long"
	}

	return "envelope: unknown error"
}
