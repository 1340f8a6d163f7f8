// Package codec defines how cached values are serialized for storage and
// ships implementations for the common formats. The cache accepts any
// Codec; JSON is the default elsewhere in this module.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
