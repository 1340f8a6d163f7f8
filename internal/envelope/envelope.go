// Package envelope frames cache values together with their absolute expiry
// so stores without per-entry TTL support can still honor per-key expiration
// and report remaining lifetimes.
package envelope

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const version byte = 1

var (
	ErrCorrupt = errors.New("sidecache: corrupt entry")
	magic4     = [...]byte{'S', 'I', 'D', 'E'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Encode frames payload: magic(4) | ver(1) | exp(u64 be, unix nanos, 0 = no
// expiry) | vlen(u32 be) | payload(vlen). A zero expiresAt marks the entry
// as persistent.
func Encode(expiresAt time.Time, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 8 + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u8 [8]byte
	var u4 [4]byte

	var exp uint64
	if !expiresAt.IsZero() {
		exp = uint64(expiresAt.UnixNano())
	}
	binary.BigEndian.PutUint64(u8[:], exp)
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// Decode unwraps a frame produced by Encode. A zero expiresAt means the
// entry never expires. The returned payload aliases b. Truncated frames,
// trailing bytes and foreign data all decode as ErrCorrupt.
func Decode(b []byte) (expiresAt time.Time, payload []byte, err error) {
	const hdr = 4 + 1 + 8 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version {
		return time.Time{}, nil, ErrCorrupt
	}

	off := 5

	// exp
	exp := binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	// vlen must account for every remaining byte
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen != len(b)-off {
		return time.Time{}, nil, ErrCorrupt
	}

	if exp != 0 {
		expiresAt = time.Unix(0, int64(exp))
	}
	return expiresAt, b[off : off+vlen], nil
}
