package codec

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

type event struct {
	ID    string            `json:"id" msgpack:"id" cbor:"id"`
	Tags  map[string]string `json:"tags" msgpack:"tags" cbor:"tags"`
	Count int64             `json:"count" msgpack:"count" cbor:"count"`
	At    time.Time         `json:"at" msgpack:"at" cbor:"at"`
}

func sample() event {
	return event{
		ID:    "e1",
		Tags:  map[string]string{"z": "1", "a": "2", "m": "3", "b": "4"},
		Count: 7,
		At:    time.Date(2024, 1, 1, 12, 0, 0, 5, time.UTC),
	}
}

func roundTrip[V any](t *testing.T, name string, c Codec[V], v V, eq func(a, b V) bool) {
	t.Helper()
	b, err := c.Encode(v)
	if err != nil {
		t.Fatalf("%s: Encode: %v", name, err)
	}
	got, err := c.Decode(b)
	if err != nil {
		t.Fatalf("%s: Decode: %v", name, err)
	}
	if !eq(v, got) {
		t.Fatalf("%s: round trip mismatch: %+v != %+v", name, v, got)
	}
}

func eventEq(a, b event) bool {
	if a.ID != b.ID || a.Count != b.Count || !a.At.Equal(b.At) || len(a.Tags) != len(b.Tags) {
		return false
	}
	for k, v := range a.Tags {
		if b.Tags[k] != v {
			return false
		}
	}
	return true
}

func TestStructCodecsRoundTrip(t *testing.T) {
	roundTrip[event](t, "json", JSON[event]{}, sample(), eventEq)
	roundTrip[event](t, "msgpack", Msgpack[event]{}, sample(), eventEq)
	roundTrip[event](t, "msgpack/compact", Msgpack[event]{Compact: true}, sample(), eventEq)
	roundTrip[event](t, "cbor", MustCBOR[event](), sample(), eventEq)
}

// Keys are grouped by encoded bytes, so map iteration order must not leak
// into the encoding.
func TestKeyCodecsAreDeterministic(t *testing.T) {
	codecs := map[string]Codec[event]{
		"json":    JSON[event]{},
		"msgpack": Msgpack[event]{},
		"cbor":    MustCBOR[event](),
	}
	for name, c := range codecs {
		first, err := c.Encode(sample())
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		for i := 0; i < 50; i++ {
			b, err := c.Encode(sample())
			if err != nil {
				t.Fatalf("%s: %v", name, err)
			}
			if !bytes.Equal(first, b) {
				t.Fatalf("%s: encoding #%d differs", name, i)
			}
		}
	}
}

func TestCBORMaxNestedLevels(t *testing.T) {
	type nested struct {
		Next *nested `cbor:"n"`
	}
	deep := &nested{}
	cur := deep
	for i := 0; i < 20; i++ {
		cur.Next = &nested{}
		cur = cur.Next
	}
	enc := MustCBOR[*nested]()
	b, err := enc.Encode(deep)
	if err != nil {
		t.Fatal(err)
	}
	shallow, err := NewCBOR[*nested](4)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := shallow.Decode(b); err == nil {
		t.Fatalf("decode beyond MaxNestedLevels succeeded")
	}
}

func TestProtobufRoundTrip(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	b, err := c.Encode(wrapperspb.String("hello"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if got.GetValue() != "hello" {
		t.Fatalf("got %q", got.GetValue())
	}
}

func TestRawCodecs(t *testing.T) {
	b, _ := Bytes{}.Encode([]byte("abc"))
	if got, _ := (Bytes{}).Decode(b); string(got) != "abc" {
		t.Fatalf("Bytes: %q", got)
	}
	s, _ := String{}.Encode("héllo")
	if got, _ := (String{}).Decode(s); got != "héllo" {
		t.Fatalf("String: %q", got)
	}
}

func TestLimit(t *testing.T) {
	c := Limit[string]{Inner: String{}, MaxEncode: 4, MaxDecode: 3}
	if _, err := c.Encode("abcd"); err != nil {
		t.Fatalf("Encode at limit: %v", err)
	}
	if _, err := c.Encode("abcde"); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Encode over limit: %v", err)
	}
	if _, err := c.Decode([]byte("abcd")); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Decode over limit: %v", err)
	}
	unlimited := Limit[string]{Inner: String{}}
	if _, err := unlimited.Encode(string(make([]byte, 1<<16))); err != nil {
		t.Fatalf("zero limits must disable checks: %v", err)
	}
}
