package prom

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/unkn0wn-root/shuffleio"
	"github.com/unkn0wn-root/shuffleio/store"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := New(reg, "")
	if err != nil {
		t.Fatal(err)
	}
	k := shuffleio.DeriveKey(1, 2)
	sx := store.NewObjectID(1, 2, store.ClassSX, store.HintNone)
	boom := errors.New("boom")

	h.ObjectCreated(k, sx)
	h.ObjectCreated(k, sx)
	h.CreateRaceLost(k, sx)
	h.ObjectOpened(k, sx)
	h.CreateFailed(k, sx, boom)
	h.OpenFailed(k, sx, boom)
	h.OpenFailed(k, sx, boom)
	h.CloseFailed(k, sx, boom)

	if got := testutil.ToFloat64(h.created.WithLabelValues("OC_SX")); got != 2 {
		t.Fatalf("created{OC_SX} = %v", got)
	}
	if got := testutil.ToFloat64(h.raceLost); got != 1 {
		t.Fatalf("race lost = %v", got)
	}
	if got := testutil.ToFloat64(h.opened); got != 1 {
		t.Fatalf("opened = %v", got)
	}
	for op, want := range map[string]float64{"create": 1, "open": 2, "close": 1} {
		if got := testutil.ToFloat64(h.failures.WithLabelValues(op)); got != want {
			t.Fatalf("failures{%s} = %v, want %v", op, got, want)
		}
	}
	if n := testutil.CollectAndCount(reg); n == 0 {
		t.Fatalf("registry collected nothing")
	}
}

func TestDoubleRegisterFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg, "x"); err != nil {
		t.Fatal(err)
	}
	if _, err := New(reg, "x"); err == nil {
		t.Fatalf("second registration under one namespace succeeded")
	}
}
