package codec

import "google.golang.org/protobuf/proto"

// Protobuf serializes generated proto messages. Decode needs a fresh
// message to unmarshal into, which Go generics cannot conjure from a
// pointer type alone, so the codec carries a constructor.
type Protobuf[T proto.Message] struct {
	newMsg func() T
}

// NewProtobuf builds a Protobuf codec from a message constructor, e.g.
// NewProtobuf(func() *pb.UserList { return &pb.UserList{} }).
func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{newMsg: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.Marshal(v)
}
func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.newMsg()
	err := proto.Unmarshal(b, m)
	return m, err
}
