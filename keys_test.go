package shuffleio

import (
	"errors"
	"math"
	"strconv"
	"testing"
)

func TestParseJobID(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
	}{
		{"app-20240101-0007", 202401010007},
		{"application_1700000000000_0042", 17000000000000042},
		{"app-123", 123},
		{"42", 42},
		{"job-007", 7},
		{"a1b2c3", 123},
		{strconv.FormatUint(math.MaxUint64, 10), math.MaxUint64},
	}
	for _, tc := range cases {
		got, err := ParseJobID(tc.in)
		if err != nil {
			t.Fatalf("ParseJobID(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseJobID(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseJobIDMalformed(t *testing.T) {
	for _, in := range []string{
		"",
		"----",
		"app-",
		"no digits here",
		// non-ASCII digits are dropped
		"١٢٣",
		// MaxUint64 + 1
		"app-18446744073709551616",
		"app-99999999999999999999999",
	} {
		if _, err := ParseJobID(in); !errors.Is(err, ErrMalformedJobID) {
			t.Fatalf("ParseJobID(%q) err = %v, want ErrMalformedJobID", in, err)
		}
	}
}

func TestDeriveKeyIsInjective(t *testing.T) {
	seen := make(map[Key][2]uint64)
	for _, job := range []uint64{0, 1, 2, 1 << 32, math.MaxUint64} {
		for _, stage := range []uint32{0, 1, 2, math.MaxUint32} {
			k := DeriveKey(job, stage)
			if prev, ok := seen[k]; ok {
				t.Fatalf("DeriveKey(%d,%d) collides with (%d,%d)", job, stage, prev[0], prev[1])
			}
			seen[k] = [2]uint64{job, uint64(stage)}
			if DeriveKey(job, stage) != k {
				t.Fatalf("DeriveKey(%d,%d) not deterministic", job, stage)
			}
		}
	}
}

func TestKeyString(t *testing.T) {
	if got := DeriveKey(202401010007, 3).String(); got != "202401010007/3" {
		t.Fatalf("String = %q", got)
	}
}
