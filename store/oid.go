package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownClass = errors.New("store: unknown object class")
	ErrUnknownHint  = errors.New("store: unknown object hint")
	ErrNotOpen      = errors.New("store: object not open")
	ErrAlreadyOpen  = errors.New("store: object already open")
)

// ObjectClass selects how the store places and replicates a new object.
type ObjectClass uint16

const (
	ClassUnknown ObjectClass = iota // let the store pick
	ClassSX                         // striped over all targets
	ClassS1                         // single target
	ClassS2                         // two targets
	ClassRP2GX                      // 2-way replicated, striped
	ClassEC2P1GX                    // erasure coded 2+1, striped
)

var classNames = map[ObjectClass]string{
	ClassUnknown: "OC_UNKNOWN",
	ClassSX:      "OC_SX",
	ClassS1:      "OC_S1",
	ClassS2:      "OC_S2",
	ClassRP2GX:   "OC_RP_2GX",
	ClassEC2P1GX: "OC_EC_2P1GX",
}

func (c ObjectClass) String() string {
	if s, ok := classNames[c]; ok {
		return s
	}
	return fmt.Sprintf("OC(%d)", uint16(c))
}

// ParseObjectClass maps a configured name (case-insensitive) to an ObjectClass.
func ParseObjectClass(s string) (ObjectClass, error) {
	for c, name := range classNames {
		if strings.EqualFold(s, name) {
			return c, nil
		}
	}
	return ClassUnknown, fmt.Errorf("%w: %q", ErrUnknownClass, s)
}

// ObjectHint is a performance/size hint applied when the class is ClassUnknown
// or when the store supports hint-driven layout.
type ObjectHint uint8

const (
	HintNone ObjectHint = iota
	HintShardTiny
	HintShardLarge
	HintShardMax
	HintRedundancyRP
	HintRedundancyEC
)

var hintNames = map[ObjectHint]string{
	HintNone:         "HINT_NONE",
	HintShardTiny:    "HINT_SHARD_TINY",
	HintShardLarge:   "HINT_SHARD_LARGE",
	HintShardMax:     "HINT_SHARD_MAX",
	HintRedundancyRP: "HINT_RDD_RP",
	HintRedundancyEC: "HINT_RDD_EC",
}

func (h ObjectHint) String() string {
	if s, ok := hintNames[h]; ok {
		return s
	}
	return fmt.Sprintf("HINT(%d)", uint8(h))
}

// ParseObjectHint maps a configured name (case-insensitive) to an ObjectHint.
func ParseObjectHint(s string) (ObjectHint, error) {
	for h, name := range hintNames {
		if strings.EqualFold(s, name) {
			return h, nil
		}
	}
	return HintNone, fmt.Errorf("%w: %q", ErrUnknownHint, s)
}

// typeDkeyUint64 marks objects whose dkeys are integer partition ids.
const typeDkeyUint64 = 0x2

// ObjectID addresses an object inside the store.
//
//	Hi: type(8) | hint(8) | class(16) | stageID(32)
//	Lo: jobID
type ObjectID struct {
	Hi uint64
	Lo uint64
}

// NewObjectID encodes the job/stage pair together with the placement policy.
func NewObjectID(jobID uint64, stageID uint32, class ObjectClass, hint ObjectHint) ObjectID {
	hi := uint64(typeDkeyUint64)<<56 |
		uint64(hint)<<48 |
		uint64(class)<<32 |
		uint64(stageID)
	return ObjectID{Hi: hi, Lo: jobID}
}

func (id ObjectID) JobID() uint64      { return id.Lo }
func (id ObjectID) StageID() uint32    { return uint32(id.Hi) }
func (id ObjectID) Class() ObjectClass { return ObjectClass(id.Hi >> 32) }
func (id ObjectID) Hint() ObjectHint   { return ObjectHint(id.Hi >> 48) }
func (id ObjectID) IsZero() bool       { return id.Hi == 0 && id.Lo == 0 }
func (id ObjectID) String() string     { return fmt.Sprintf("%016x.%016x", id.Hi, id.Lo) }
