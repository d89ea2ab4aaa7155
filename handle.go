package shuffleio

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/shuffleio/store"
)

// Handle is the single process-wide reference to one remote object.
// Once open it stays open until HandleCache.Close.
type Handle struct {
	key Key
	obj store.Object

	mu   sync.Mutex // serializes open/close of this handle only
	open atomic.Bool
}

func newHandle(key Key, obj store.Object) *Handle {
	return &Handle{key: key, obj: obj}
}

func (h *Handle) Key() Key             { return h.key }
func (h *Handle) ID() store.ObjectID   { return h.obj.ID() }
func (h *Handle) IsOpen() bool         { return h.open.Load() }
func (h *Handle) Object() store.Object { return h.obj }

// ensureOpen opens the object unless another caller already did.
// opened is true only for the caller that performed the store Open.
func (h *Handle) ensureOpen(ctx context.Context) (opened bool, err error) {
	if h.open.Load() {
		return false, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.open.Load() {
		return false, nil
	}
	if err := h.obj.Open(ctx); err != nil {
		return false, err
	}
	h.open.Store(true)
	return true, nil
}

// close keeps the handle marked open when the store refuses to close it.
func (h *Handle) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.obj.Close(); err != nil {
		return err
	}
	h.open.Store(false)
	return nil
}

func objFields(k Key, id store.ObjectID) Fields {
	return Fields{"key": k.String(), "oid_hi": id.Hi, "oid_lo": id.Lo}
}
