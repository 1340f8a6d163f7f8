package codec

import "fmt"

// Limit wraps another codec to enforce maximum payload sizes in both
// directions. A limit <= 0 disables that direction's check.
//
// MaxDecode protects against oversized or malicious entries read from a
// shared store. MaxEncode stops a pathological value from being written in
// the first place, keeping one fat entry from crowding out a size-bounded
// store.
type Limit[V any] struct {
	// Inner is the underlying codec being wrapped. It must be set.
	Inner Codec[V]
	// MaxEncode caps the encoded size of outgoing values.
	MaxEncode int
	// MaxDecode caps the accepted size of incoming payloads; oversized ones
	// fail without invoking Inner.
	MaxDecode int
}

func (c Limit[V]) Encode(v V) ([]byte, error) {
	b, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	if c.MaxEncode > 0 && len(b) > c.MaxEncode {
		return nil, fmt.Errorf("encoded payload too large: %d > %d", len(b), c.MaxEncode)
	}
	return b, nil
}

func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("payload too large: %d > %d", len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
