package codec

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/mr-tron/base58"
)

// byteReader walks a decoded payload left to right, the way the discovery
// package's readUint64LE walks DEX log payloads, but tracks an offset and
// returns an error instead of silently zero-filling on overrun.
type byteReader struct {
	data []byte
	off  int
}

func newByteReader(data []byte) *byteReader {
	return &byteReader{data: data}
}

func (r *byteReader) need(n int) error {
	if r.off+n > len(r.data) {
		return fmt.Errorf("codec: need %d bytes at offset %d, have %d", n, r.off, len(r.data))
	}
	return nil
}

func (r *byteReader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.off]
	r.off++
	return v, nil
}

func (r *byteReader) bool8() (bool, error) {
	v, err := r.u8()
	return v != 0, err
}

func (r *byteReader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v, nil
}

func (r *byteReader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

func (r *byteReader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v, nil
}

// u64String reads a little-endian u64 and renders it as a decimal string,
// the representation used for every amount field to stay precision-safe
// across JSON.
func (r *byteReader) u64String() (string, error) {
	v, err := r.u64()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", v), nil
}

// u128String reads 16 little-endian bytes as an unsigned 128-bit integer
// and renders it as a decimal string.
func (r *byteReader) u128String() (string, error) {
	if err := r.need(16); err != nil {
		return "", err
	}
	le := r.data[r.off : r.off+16]
	r.off += 16
	be := make([]byte, 16)
	for i, b := range le {
		be[15-i] = b
	}
	v := new(big.Int).SetBytes(be)
	return v.String(), nil
}

// pubkey reads 32 raw bytes and base58-encodes them.
func (r *byteReader) pubkey() (string, error) {
	if err := r.need(32); err != nil {
		return "", err
	}
	raw := r.data[r.off : r.off+32]
	r.off += 32
	return base58.Encode(raw), nil
}

// borshString reads a 4-byte little-endian length prefix followed by that
// many bytes of UTF-8.
func (r *byteReader) borshString() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	s := string(r.data[r.off : r.off+int(n)])
	r.off += int(n)
	return s, nil
}
