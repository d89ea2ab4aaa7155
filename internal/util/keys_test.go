package util

import (
	"reflect"
	"testing"
)

func TestMapAkey(t *testing.T) {
	if got := MapAkey(7, 0); got != "7" {
		t.Fatalf("MapAkey(7,0)=%q", got)
	}
	if got := MapAkey(7, 3); got != "7.3" {
		t.Fatalf("MapAkey(7,3)=%q", got)
	}
	if got := PartitionDkey(12); got != "12" {
		t.Fatalf("PartitionDkey(12)=%q", got)
	}
}

func TestSortAkeysNumericWithSeq(t *testing.T) {
	in := []string{"10", "2.1", "junk", "2", "1", "2.10", "2.2"}
	SortAkeys(in)
	want := []string{"1", "2", "2.1", "2.2", "2.10", "10", "junk"}
	if !reflect.DeepEqual(in, want) {
		t.Fatalf("got %v want %v", in, want)
	}
}
