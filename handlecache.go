package shuffleio

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/shuffleio/store"
)

// HandleCacheOptions configure a HandleCache. Store may be left nil and
// injected later with SetStore, before the first Acquire.
type HandleCacheOptions struct {
	Store store.Store

	// Placement policy encoded into every new object address.
	ObjectClass store.ObjectClass
	ObjectHint  store.ObjectHint

	// SerializeCreate makes concurrent first Acquires of one key share a single
	// store create instead of racing and discarding the losers. Use it when
	// the store does not treat a repeated create of the same address as free.
	SerializeCreate bool

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used
}

type storeRef struct{ s store.Store }

// HandleCache is a process-wide registry of open object handles keyed by
// (job, stage). It is safe for concurrent use.
//
// Close must be called once at shutdown. Using the cache after Close is
// unsupported.
type HandleCache struct {
	st    atomic.Pointer[storeRef]
	class store.ObjectClass
	hint  store.ObjectHint

	handles   sync.Map // Key -> *Handle
	serialize bool
	creates   singleflight.Group

	log   Logger
	hooks Hooks
}

func NewHandleCache(opts HandleCacheOptions) *HandleCache {
	c := &HandleCache{
		class:     opts.ObjectClass,
		hint:      opts.ObjectHint,
		serialize: opts.SerializeCreate,
	}
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	if opts.Store != nil {
		c.SetStore(opts.Store)
	}
	return c
}

// SetStore injects the remote store client. Call it before the first Acquire.
func (c *HandleCache) SetStore(s store.Store) {
	c.st.Store(&storeRef{s: s})
}

func (c *HandleCache) currentStore() store.Store {
	if ref := c.st.Load(); ref != nil {
		return ref.s
	}
	return nil
}

// Acquire returns the open handle for (jobID, stageID), creating and opening
// the remote object on first use.
//
// Concurrent callers for one key always get the same *Handle. The store sees
// exactly one Open per handle. Without SerializeCreate the store may see more
// than one create for a key under contention; every extra object is closed.
// Errors are *CreateError or *OpenError and are never retried here.
func (c *HandleCache) Acquire(ctx context.Context, jobID uint64, stageID uint32) (*Handle, error) {
	key := DeriveKey(jobID, stageID)
	if v, ok := c.handles.Load(key); ok {
		h := v.(*Handle)
		if h.IsOpen() {
			return h, nil
		}
		return c.open(ctx, h)
	}

	var (
		h   *Handle
		err error
	)
	if c.serialize {
		h, err = c.createShared(ctx, key)
	} else {
		h, err = c.create(ctx, key)
	}
	if err != nil {
		return nil, err
	}
	return c.open(ctx, h)
}

// create resolves the object and registers it unless another caller got there
// first, in which case the new object is released and the winner returned.
func (c *HandleCache) create(ctx context.Context, key Key) (*Handle, error) {
	id := store.NewObjectID(key.JobID, key.StageID, c.class, c.hint)
	st := c.currentStore()
	if st == nil {
		return nil, &CreateError{Key: key, ID: id, Err: ErrStoreNotSet}
	}
	obj, err := st.Object(ctx, id)
	if err != nil {
		c.log.Error("create object failed", Fields{"key": key.String(), "oid": id.String(), "err": err})
		c.hooks.CreateFailed(key, id, err)
		return nil, &CreateError{Key: key, ID: id, Err: err}
	}

	h := newHandle(key, obj)
	actual, loaded := c.handles.LoadOrStore(key, h)
	if !loaded {
		c.log.Info("created new object", objFields(key, obj.ID()))
		c.hooks.ObjectCreated(key, obj.ID())
		return h, nil
	}

	if err := obj.Close(); err != nil {
		f := objFields(key, obj.ID())
		f["err"] = err
		c.log.Warn("release of duplicate object failed", f)
	}
	c.log.Debug("lost create race, adopting registered handle", objFields(key, obj.ID()))
	c.hooks.CreateRaceLost(key, obj.ID())
	return actual.(*Handle), nil
}

// createShared funnels concurrent creates of one key through a single call.
// The shared create runs detached from any caller's cancellation; each caller
// waits on its own ctx and a canceled caller gives up without affecting the
// others.
func (c *HandleCache) createShared(ctx context.Context, key Key) (*Handle, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.creates.DoChan(key.String(), func() (any, error) {
		if v, ok := c.handles.Load(key); ok {
			return v, nil
		}
		h, err := c.create(detached, key)
		if err != nil {
			return nil, err
		}
		return h, nil
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*Handle), nil
	case <-ctx.Done():
		id := store.NewObjectID(key.JobID, key.StageID, c.class, c.hint)
		return nil, &CreateError{Key: key, ID: id, Err: ctx.Err()}
	}
}

func (c *HandleCache) open(ctx context.Context, h *Handle) (*Handle, error) {
	opened, err := h.ensureOpen(ctx)
	if err != nil {
		f := objFields(h.key, h.ID())
		f["err"] = err
		c.log.Error("open object failed", f)
		c.hooks.OpenFailed(h.key, h.ID(), err)
		return nil, &OpenError{Key: h.key, ID: h.ID(), Err: err}
	}
	if opened {
		c.log.Debug("opened object", objFields(h.key, h.ID()))
		c.hooks.ObjectOpened(h.key, h.ID())
	}
	return h, nil
}

// Lookup returns the registered handle for key without creating or opening it.
func (c *HandleCache) Lookup(key Key) (*Handle, bool) {
	v, ok := c.handles.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*Handle), true
}

// Len returns the number of registered handles.
func (c *HandleCache) Len() int {
	n := 0
	c.handles.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close closes every registered handle. Every close is attempted; failures are
// reported together as a *TeardownError. Handles stay registered, so a second
// Close re-closes them and its outcome depends on the store.
func (c *HandleCache) Close(_ context.Context) error {
	var (
		total    int
		failures []HandleError
	)
	c.handles.Range(func(_, v any) bool {
		h := v.(*Handle)
		total++
		if err := h.close(); err != nil {
			failures = append(failures, HandleError{Key: h.key, ID: h.ID(), Err: err})
			f := objFields(h.key, h.ID())
			f["err"] = err
			c.log.Error("close object failed", f)
			c.hooks.CloseFailed(h.key, h.ID(), err)
		}
		return true
	})
	if len(failures) > 0 {
		return &TeardownError{Total: total, Failures: failures}
	}
	c.log.Debug("closed all handles", Fields{"count": total})
	return nil
}
