package codec

import (
	"errors"
	"fmt"
)

var ErrTooLarge = errors.New("codec: record too large")

// Limit wraps another codec and rejects records larger than the configured
// sizes. A limit <= 0 disables that direction.
//
// Writers use MaxEncode to keep one oversized record from blowing a partition
// buffer; readers use MaxDecode against corrupt or foreign blocks.
type Limit[V any] struct {
	Inner     Codec[V]
	MaxEncode int
	MaxDecode int
}

func (c Limit[V]) Encode(v V) ([]byte, error) {
	b, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	if c.MaxEncode > 0 && len(b) > c.MaxEncode {
		return nil, fmt.Errorf("%w: encoded %d > %d", ErrTooLarge, len(b), c.MaxEncode)
	}
	return b, nil
}

func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("%w: payload %d > %d", ErrTooLarge, len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
