// Package wire frames shuffle records into the blocks stored under one
// (partition, map task) slot of a remote object.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version   byte = 1
	headerLen      = 4 + 1 + 4
)

var (
	ErrCorrupt = errors.New("shuffleio: corrupt block")
	magic4     = [...]byte{'S', 'H', 'F', 'B'}
)

// Record is one key/value pair. Decoded records alias the block buffer.
type Record struct {
	Key   []byte
	Value []byte
}

// Block:
//
//	magic(4) | ver(1) | n(u32 be)
//	klen(u32 be) | key(klen) | vlen(u32 be) | value(vlen) * n
//
// Builder appends records to one block. The zero value is not usable; call
// NewBuilder.
type Builder struct {
	buf bytes.Buffer
	n   uint32
}

func NewBuilder(sizeHint int) *Builder {
	b := &Builder{}
	b.Reset(sizeHint)
	return b
}

// Reset drops all records and writes a fresh header.
func (b *Builder) Reset(sizeHint int) {
	b.buf.Reset()
	b.buf.Grow(headerLen + sizeHint)
	b.buf.Write(magic4[:])
	b.buf.WriteByte(version)
	b.buf.Write([]byte{0, 0, 0, 0}) // n, patched in Bytes
	b.n = 0
}

func (b *Builder) Add(key, value []byte) {
	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(key)))
	b.buf.Write(u4[:])
	b.buf.Write(key)
	binary.BigEndian.PutUint32(u4[:], uint32(len(value)))
	b.buf.Write(u4[:])
	b.buf.Write(value)
	b.n++
}

// Count is the number of records added since the last Reset.
func (b *Builder) Count() int { return int(b.n) }

// Size is the encoded block size in bytes, header included.
func (b *Builder) Size() int { return b.buf.Len() }

// Bytes returns the encoded block. The slice is only valid until the next
// Add or Reset.
func (b *Builder) Bytes() []byte {
	out := b.buf.Bytes()
	binary.BigEndian.PutUint32(out[5:9], b.n)
	return out
}

// EncodeBlock encodes records into a standalone block.
func EncodeBlock(records []Record) []byte {
	size := 0
	for _, r := range records {
		size += 8 + len(r.Key) + len(r.Value)
	}
	b := NewBuilder(size)
	for _, r := range records {
		b.Add(r.Key, r.Value)
	}
	return b.Bytes()
}

// DecodeBlock parses a block. Returned records are subslices of b.
func DecodeBlock(b []byte) ([]Record, error) {
	if len(b) < headerLen || !bytes.Equal(b[:4], magic4[:]) || b[4] != version {
		return nil, ErrCorrupt
	}
	off := 5
	n := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	// every record needs at least 8 bytes of lengths
	if n < 0 || n > (len(b)-off)/8 {
		return nil, ErrCorrupt
	}

	records := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		key, next, err := field(b, off)
		if err != nil {
			return nil, err
		}
		val, next, err := field(b, next)
		if err != nil {
			return nil, err
		}
		off = next
		records = append(records, Record{Key: key, Value: val})
	}
	if off != len(b) {
		return nil, ErrCorrupt
	}
	return records, nil
}

func field(b []byte, off int) ([]byte, int, error) {
	if off+4 > len(b) {
		return nil, 0, ErrCorrupt
	}
	l := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if l < 0 || l > len(b)-off { // overflow-safe bound check
		return nil, 0, ErrCorrupt
	}
	return b[off : off+l : off+l], off + l, nil
}
