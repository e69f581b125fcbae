package envelope

import (
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Event structured record published over the bus. The envelope layer never
// inspects the fields, it only hands the record to the codec
type Event struct {
	// Name event identifier, e.g. "temperature.changed"
	Name string `cbor:"n"`

	// Source logical origin of the event
	Source string `cbor:"s,omitempty"`

	// Timestamp moment the event was produced
	Timestamp time.Time `cbor:"t,omitempty"`

	// Attributes free-form event data
	Attributes map[string]interface{} `cbor:"a,omitempty"`
}

var encMode cbor.EncMode
var decMode cbor.DecMode

func init() {
	var err error

	if encMode, err = cbor.CanonicalEncOptions().EncMode(); err != nil {
		panic(err.Error())
	}

	if decMode, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic(err.Error())
	}
}

func (ev *Event) encode() ([]byte, error) {
	return encMode.Marshal(ev)
}

func decodeEvent(body []byte) (*Event, error) {
	ev := &Event{}
	if err := decMode.Unmarshal(body, ev); err != nil {
		return nil, ErrBadEvent
	}

	return ev, nil
}
