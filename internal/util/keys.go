package util

import (
	"sort"
	"strconv"
	"strings"
)

// PartitionDkey is the dkey holding every map output for one reduce partition.
func PartitionDkey(partition int) string {
	return strconv.Itoa(partition)
}

// MapAkey names one block written by a map task. The first flush uses the bare
// map id, later flushes of the same partition append ".<seq>".
func MapAkey(mapID uint64, seq int) string {
	if seq == 0 {
		return strconv.FormatUint(mapID, 10)
	}
	return strconv.FormatUint(mapID, 10) + "." + strconv.Itoa(seq)
}

// SortAkeys orders akeys by (map id, seq) numerically so blocks come back in
// write order. Unparseable akeys sort last, lexically.
func SortAkeys(akeys []string) {
	parse := func(s string) (uint64, int, bool) {
		head, tail, hasSeq := strings.Cut(s, ".")
		m, err := strconv.ParseUint(head, 10, 64)
		if err != nil {
			return 0, 0, false
		}
		if !hasSeq {
			return m, 0, true
		}
		seq, err := strconv.Atoi(tail)
		if err != nil {
			return 0, 0, false
		}
		return m, seq, true
	}
	less := func(a, b string) bool {
		am, as, aok := parse(a)
		bm, bs, bok := parse(b)
		switch {
		case aok && bok:
			if am != bm {
				return am < bm
			}
			return as < bs
		case aok != bok:
			return aok
		default:
			return a < b
		}
	}
	sort.SliceStable(akeys, func(i, j int) bool { return less(akeys[i], akeys[j]) })
}
