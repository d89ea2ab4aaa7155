package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/unkn0wn-root/shuffleio/store"
	"github.com/unkn0wn-root/shuffleio/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return New(Config{}) })
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := New(Config{})
	id := store.NewObjectID(1, 1, store.ClassUnknown, store.HintNone)

	a, _ := s.Object(ctx, id)
	b, _ := s.Object(ctx, id)
	if err := a.Open(ctx); err != nil {
		t.Fatal(err)
	}
	_ = b.Close()
	_ = a.Close()
	_ = a.Close()

	st := s.Stats()
	if st.Creates != 2 || st.Opens != 1 || st.Closes != 2 {
		t.Fatalf("stats = %+v", st)
	}
	if s.Objects() != 1 {
		t.Fatalf("objects = %d, want 1", s.Objects())
	}
}

func TestReopenAfterCloseFails(t *testing.T) {
	ctx := context.Background()
	s := New(Config{})
	o, _ := s.Object(ctx, store.ObjectID{Lo: 1})
	_ = o.Close()
	if err := o.Open(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("Open after Close: %v", err)
	}
}

func TestClosedStoreRejectsObject(t *testing.T) {
	ctx := context.Background()
	s := New(Config{})
	_ = s.Close(ctx)
	if _, err := s.Object(ctx, store.ObjectID{Lo: 1}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Object after Close: %v", err)
	}
}

func TestDelaysHonorContext(t *testing.T) {
	s := New(Config{CreateDelay: time.Second, OpenDelay: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := s.Object(ctx, store.ObjectID{Lo: 1}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Object: %v", err)
	}
}
