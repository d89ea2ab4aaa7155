// Package storetest checks that a store.Store honors the object protocol
// shuffleio relies on. Backends call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/unkn0wn-root/shuffleio/store"
)

// Run exercises a fresh store from newStore in every subtest.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("OpenPutGetList", func(t *testing.T) { testOpenPutGetList(t, newStore(t)) })
	t.Run("NotOpen", func(t *testing.T) { testNotOpen(t, newStore(t)) })
	t.Run("DuplicateOpen", func(t *testing.T) { testDuplicateOpen(t, newStore(t)) })
	t.Run("SharedData", func(t *testing.T) { testSharedData(t, newStore(t)) })
	t.Run("PutDoesNotRetain", func(t *testing.T) { testPutDoesNotRetain(t, newStore(t)) })
	t.Run("ConcurrentPuts", func(t *testing.T) { testConcurrentPuts(t, newStore(t)) })
}

func mustOpen(t *testing.T, s store.Store, id store.ObjectID) store.Object {
	t.Helper()
	ctx := context.Background()
	o, err := s.Object(ctx, id)
	if err != nil {
		t.Fatalf("Object: %v", err)
	}
	if o.ID() != id {
		t.Fatalf("ID = %v, want %v", o.ID(), id)
	}
	if o.IsOpen() {
		t.Fatalf("object open before Open")
	}
	if err := o.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !o.IsOpen() {
		t.Fatalf("object not open after Open")
	}
	return o
}

func testOpenPutGetList(t *testing.T, s store.Store) {
	ctx := context.Background()
	o := mustOpen(t, s, store.NewObjectID(1, 1, store.ClassSX, store.HintNone))
	defer o.Close()

	for _, akey := range []string{"2", "0", "1.1", "1"} {
		if err := o.Put(ctx, "3", akey, []byte("v"+akey)); err != nil {
			t.Fatalf("Put %s: %v", akey, err)
		}
	}
	got, ok, err := o.Get(ctx, "3", "1.1")
	if err != nil || !ok || string(got) != "v1.1" {
		t.Fatalf("Get = %q ok=%v err=%v", got, ok, err)
	}
	if _, ok, err := o.Get(ctx, "3", "9"); err != nil || ok {
		t.Fatalf("Get miss: ok=%v err=%v", ok, err)
	}
	akeys, err := o.List(ctx, "3")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"0", "1", "1.1", "2"}
	if len(akeys) != len(want) {
		t.Fatalf("List = %v, want %v", akeys, want)
	}
	for i := range want {
		if akeys[i] != want[i] {
			t.Fatalf("List = %v, want %v", akeys, want)
		}
	}
	if empty, err := o.List(ctx, "4"); err != nil || len(empty) != 0 {
		t.Fatalf("List of empty dkey = %v, %v", empty, err)
	}
}

func testNotOpen(t *testing.T, s store.Store) {
	ctx := context.Background()
	o, err := s.Object(ctx, store.NewObjectID(1, 2, store.ClassUnknown, store.HintNone))
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Put(ctx, "0", "0", nil); !errors.Is(err, store.ErrNotOpen) {
		t.Fatalf("Put before Open: %v", err)
	}
	if _, _, err := o.Get(ctx, "0", "0"); !errors.Is(err, store.ErrNotOpen) {
		t.Fatalf("Get before Open: %v", err)
	}
	if _, err := o.List(ctx, "0"); !errors.Is(err, store.ErrNotOpen) {
		t.Fatalf("List before Open: %v", err)
	}
	// closing an unopened object is allowed
	if err := o.Close(); err != nil {
		t.Fatalf("Close unopened: %v", err)
	}
}

func testDuplicateOpen(t *testing.T, s store.Store) {
	o := mustOpen(t, s, store.NewObjectID(1, 3, store.ClassUnknown, store.HintNone))
	defer o.Close()
	if err := o.Open(context.Background()); !errors.Is(err, store.ErrAlreadyOpen) {
		t.Fatalf("second Open: %v", err)
	}
}

// Two objects resolved for one id address the same remote data.
func testSharedData(t *testing.T, s store.Store) {
	ctx := context.Background()
	id := store.NewObjectID(1, 4, store.ClassUnknown, store.HintNone)
	a := mustOpen(t, s, id)
	defer a.Close()
	b := mustOpen(t, s, id)
	defer b.Close()

	if err := a.Put(ctx, "0", "5", []byte("x")); err != nil {
		t.Fatal(err)
	}
	got, ok, err := b.Get(ctx, "0", "5")
	if err != nil || !ok || string(got) != "x" {
		t.Fatalf("Get via second object = %q ok=%v err=%v", got, ok, err)
	}

	other := mustOpen(t, s, store.NewObjectID(1, 5, store.ClassUnknown, store.HintNone))
	defer other.Close()
	if _, ok, _ := other.Get(ctx, "0", "5"); ok {
		t.Fatalf("data leaked across object ids")
	}
}

func testPutDoesNotRetain(t *testing.T, s store.Store) {
	ctx := context.Background()
	o := mustOpen(t, s, store.NewObjectID(1, 6, store.ClassUnknown, store.HintNone))
	defer o.Close()

	buf := []byte("before")
	if err := o.Put(ctx, "0", "0", buf); err != nil {
		t.Fatal(err)
	}
	copy(buf, "AFTER!")
	got, _, err := o.Get(ctx, "0", "0")
	if err != nil || string(got) != "before" {
		t.Fatalf("store retained caller buffer: %q %v", got, err)
	}
}

func testConcurrentPuts(t *testing.T, s store.Store) {
	ctx := context.Background()
	o := mustOpen(t, s, store.NewObjectID(1, 7, store.ClassUnknown, store.HintNone))
	defer o.Close()

	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- o.Put(ctx, "0", strconv.Itoa(i), []byte{byte(i)})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	akeys, err := o.List(ctx, "0")
	if err != nil {
		t.Fatal(err)
	}
	if len(akeys) != n {
		t.Fatalf("List returned %d akeys, want %d", len(akeys), n)
	}
}
