package asynchook

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/unkn0wn-root/shuffleio"
	"github.com/unkn0wn-root/shuffleio/store"
)

type countHooks struct {
	shuffleio.NopHooks
	created, failed atomic.Int64
	gate            chan struct{} // when set, ObjectCreated blocks on it
}

func (c *countHooks) ObjectCreated(shuffleio.Key, store.ObjectID) {
	if c.gate != nil {
		<-c.gate
	}
	c.created.Add(1)
}

func (c *countHooks) OpenFailed(shuffleio.Key, store.ObjectID, error) { c.failed.Add(1) }

func TestDeliversBeforeCloseReturns(t *testing.T) {
	inner := &countHooks{}
	h := New(inner, 4, 256)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.ObjectCreated(shuffleio.Key{}, store.ObjectID{})
		}()
	}
	wg.Wait()
	h.OpenFailed(shuffleio.Key{}, store.ObjectID{}, errors.New("x"))
	h.Close()

	if got := inner.created.Load() + int64(h.Dropped()); got != 100 {
		t.Fatalf("delivered+dropped = %d, want 100", got)
	}
	if h.Dropped() != 0 {
		t.Fatalf("dropped = %d with a roomy queue", h.Dropped())
	}
	if inner.failed.Load() != 1 {
		t.Fatalf("OpenFailed delivered %d times", inner.failed.Load())
	}
}

func TestFullQueueDrops(t *testing.T) {
	inner := &countHooks{gate: make(chan struct{})}
	h := New(inner, 1, 1)

	// worker blocks on the first event, queue holds one more
	for i := 0; i < 10; i++ {
		h.ObjectCreated(shuffleio.Key{}, store.ObjectID{})
	}
	if h.Dropped() == 0 {
		t.Fatalf("expected drops with a blocked worker and queue of 1")
	}
	close(inner.gate)
	h.Close()
	if got := inner.created.Load() + int64(h.Dropped()); got != 10 {
		t.Fatalf("delivered+dropped = %d, want 10", got)
	}
}

func TestEventsAfterCloseAreDropped(t *testing.T) {
	inner := &countHooks{}
	h := New(inner, 1, 8)
	h.Close()
	h.Close()

	h.ObjectCreated(shuffleio.Key{}, store.ObjectID{})
	if h.Dropped() != 1 || inner.created.Load() != 0 {
		t.Fatalf("dropped=%d created=%d", h.Dropped(), inner.created.Load())
	}
}
