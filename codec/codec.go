// Package codec turns typed shuffle keys and values into the byte records that
// sessions frame into batches.
//
// Shuffle readers compare and group keys by their encoded bytes, so a codec
// used for keys must be deterministic: equal values must encode to equal bytes.
// Every codec here is deterministic unless its doc says otherwise.
package codec

// Codec encodes/decodes values V to []byte.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
