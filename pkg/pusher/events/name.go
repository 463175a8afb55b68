package events

import "github.com/go-faster/jx"

// Name specifies different types of events that Streaming API sends to subscribers.
// Used for accounting purpose.
type Name string

const (
	PingEvent    Name = "ping"
	MessageEvent Name = "message"
)

func (n Name) String() string {
	return string(n)
}

// FromData extracts the "name" field of an encoded engine event without decoding the rest.
func FromData(data []byte) Name {
	name := MessageEvent
	d := jx.DecodeBytes(data)
	_ = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "name" {
			return d.Skip()
		}
		s, err := d.Str()
		if err != nil {
			return err
		}
		name = Name(s)
		return nil
	})
	return name
}
