// Package asynchook moves hook delivery off the acquire path.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{RaceLostEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	m, _ := shuffleio.New(shuffleio.Options{
//	    JobID: appID,
//	    Store: st,
//	    Hooks: hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/shuffleio"
	"github.com/unkn0wn-root/shuffleio/store"
)

type Hooks struct {
	inner shuffleio.Hooks
	q     chan func()
	wg    sync.WaitGroup

	mu      sync.RWMutex // guards closed against sends racing Close
	closed  bool
	dropped atomic.Uint64
}

var _ shuffleio.Hooks = (*Hooks)(nil)

func New(inner shuffleio.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events fired after Close
// are dropped.
func (h *Hooks) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.q)
	h.mu.Unlock()
	h.wg.Wait()
}

// Dropped counts events discarded because the queue was full or closed.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) ObjectCreated(k shuffleio.Key, id store.ObjectID) {
	h.try(func() { h.inner.ObjectCreated(k, id) })
}
func (h *Hooks) CreateRaceLost(k shuffleio.Key, id store.ObjectID) {
	h.try(func() { h.inner.CreateRaceLost(k, id) })
}
func (h *Hooks) ObjectOpened(k shuffleio.Key, id store.ObjectID) {
	h.try(func() { h.inner.ObjectOpened(k, id) })
}
func (h *Hooks) CreateFailed(k shuffleio.Key, id store.ObjectID, err error) {
	h.try(func() { h.inner.CreateFailed(k, id, err) })
}
func (h *Hooks) OpenFailed(k shuffleio.Key, id store.ObjectID, err error) {
	h.try(func() { h.inner.OpenFailed(k, id, err) })
}
func (h *Hooks) CloseFailed(k shuffleio.Key, id store.ObjectID, err error) {
	h.try(func() { h.inner.CloseFailed(k, id, err) })
}
