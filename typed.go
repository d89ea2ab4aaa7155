package shuffleio

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/unkn0wn-root/shuffleio/codec"
)

// HashPartition maps an encoded key to a partition in [0, n) with FNV-1a.
func HashPartition(key []byte, n int) int {
	h := fnv.New32a()
	h.Write(key)
	return int(h.Sum32()&0x7fffffff) % n
}

// TypedWriter encodes keys and values with codecs before writing them.
type TypedWriter[K, V any] struct {
	W      WriterSession
	Keys   codec.Codec[K]
	Values codec.Codec[V]
}

// Write encodes k and v and writes them to partition.
func (t TypedWriter[K, V]) Write(ctx context.Context, partition int, k K, v V) error {
	kb, err := t.Keys.Encode(k)
	if err != nil {
		return fmt.Errorf("shuffleio: encode key: %w", err)
	}
	vb, err := t.Values.Encode(v)
	if err != nil {
		return fmt.Errorf("shuffleio: encode value: %w", err)
	}
	return t.W.Write(ctx, partition, kb, vb)
}

// WriteHashed picks the partition with HashPartition over the encoded key.
func (t TypedWriter[K, V]) WriteHashed(ctx context.Context, k K, v V) error {
	kb, err := t.Keys.Encode(k)
	if err != nil {
		return fmt.Errorf("shuffleio: encode key: %w", err)
	}
	vb, err := t.Values.Encode(v)
	if err != nil {
		return fmt.Errorf("shuffleio: encode value: %w", err)
	}
	return t.W.Write(ctx, HashPartition(kb, t.W.NumPartitions()), kb, vb)
}

// TypedRecords decodes the records of a RecordIterator. A decode failure
// stops iteration and is reported by Err.
type TypedRecords[K, V any] struct {
	it     *RecordIterator
	keys   codec.Codec[K]
	values codec.Codec[V]

	k   K
	v   V
	err error
}

func NewTypedRecords[K, V any](it *RecordIterator, keys codec.Codec[K], values codec.Codec[V]) *TypedRecords[K, V] {
	return &TypedRecords[K, V]{it: it, keys: keys, values: values}
}

func (t *TypedRecords[K, V]) Next() bool {
	if t.err != nil || !t.it.Next() {
		return false
	}
	k, err := t.keys.Decode(t.it.Key())
	if err != nil {
		t.err = fmt.Errorf("shuffleio: decode key: %w", err)
		return false
	}
	v, err := t.values.Decode(t.it.Value())
	if err != nil {
		t.err = fmt.Errorf("shuffleio: decode value: %w", err)
		return false
	}
	t.k, t.v = k, v
	return true
}

func (t *TypedRecords[K, V]) Key() K   { return t.k }
func (t *TypedRecords[K, V]) Value() V { return t.v }

func (t *TypedRecords[K, V]) Err() error {
	if t.err != nil {
		return t.err
	}
	return t.it.Err()
}
