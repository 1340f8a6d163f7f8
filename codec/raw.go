package codec

// Bytes is an identity codec for []byte values. Encode/Decode return the
// input unchanged. Useful when callers already hold serialized bytes and
// only want the cache's TTL and invalidation machinery.
type Bytes struct{}

func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return b, nil }

// String is a trivial codec for Go string values. Encode converts to
// []byte, Decode converts back. Assumes UTF-8 by convention and performs no
// validation.
type String struct{}

func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (String) Decode(b []byte) (string, error) { return string(b), nil }
