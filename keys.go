package shuffleio

import (
	"fmt"
	"strconv"
)

// Key identifies one shuffle object inside this process. It is never sent to
// the store; see store.ObjectID for the remote address.
type Key struct {
	JobID   uint64
	StageID uint32
}

// DeriveKey is total and injective: distinct pairs always give distinct keys.
func DeriveKey(jobID uint64, stageID uint32) Key {
	return Key{JobID: jobID, StageID: stageID}
}

func (k Key) String() string {
	return strconv.FormatUint(k.JobID, 10) + "/" + strconv.FormatUint(uint64(k.StageID), 10)
}

// ParseJobID extracts the numeric job id from a host job identifier by
// dropping every character that is not an ASCII digit, e.g.
// "app-20240101-0007" -> 202401010007.
//
// This is lossy and specific to host ids of the form <prefix>-<digits>...;
// two ids differing only in their non-digit parts map to the same number.
// The full uint64 range is accepted, including values above math.MaxInt64.
func ParseJobID(raw string) (uint64, error) {
	digits := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}
	if len(digits) == 0 {
		return 0, fmt.Errorf("%w: %q has no digits", ErrMalformedJobID, raw)
	}
	id, err := strconv.ParseUint(string(digits), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: out of range", ErrMalformedJobID, raw)
	}
	return id, nil
}
