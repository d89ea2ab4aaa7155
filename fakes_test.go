package shuffleio

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/shuffleio/store"
)

// fakeStore is an instrumented store with per-call fault injection.
type fakeStore struct {
	mu          sync.Mutex
	createErr   error
	openErr     error
	closeErr    map[uint32]error // by stage id
	hideBlocks  bool             // Get misses even for listed akeys
	createDelay time.Duration

	// When set before use, creates/opens announce themselves on *Entered and
	// block until the gate closes.
	createGate, createEntered chan struct{}
	openGate, openEntered     chan struct{}

	creates    map[store.ObjectID]int
	openCalls  map[store.ObjectID]int
	opens      map[store.ObjectID]int
	closeCalls map[store.ObjectID]int
	data       map[store.ObjectID]map[string]map[string][]byte
	closed     bool
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		closeErr:   make(map[uint32]error),
		creates:    make(map[store.ObjectID]int),
		openCalls:  make(map[store.ObjectID]int),
		opens:      make(map[store.ObjectID]int),
		closeCalls: make(map[store.ObjectID]int),
		data:       make(map[store.ObjectID]map[string]map[string][]byte),
	}
}

func (s *fakeStore) Object(ctx context.Context, id store.ObjectID) (store.Object, error) {
	if err := wait(ctx, s.createEntered, s.createGate); err != nil {
		return nil, err
	}
	if s.createDelay > 0 {
		select {
		case <-time.After(s.createDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.creates[id]++
	if s.data[id] == nil {
		s.data[id] = make(map[string]map[string][]byte)
	}
	return &fakeObject{s: s, id: id}, nil
}

func (s *fakeStore) Close(context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) setOpenErr(err error) {
	s.mu.Lock()
	s.openErr = err
	s.mu.Unlock()
}

func (s *fakeStore) setCreateErr(err error) {
	s.mu.Lock()
	s.createErr = err
	s.mu.Unlock()
}

func (s *fakeStore) count(m map[store.ObjectID]int, id store.ObjectID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return m[id]
}

func (s *fakeStore) totalCreates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.creates {
		n += c
	}
	return n
}

func (s *fakeStore) totalCloseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.closeCalls {
		n += c
	}
	return n
}

type fakeObject struct {
	s    *fakeStore
	id   store.ObjectID
	open atomic.Bool
}

func (o *fakeObject) ID() store.ObjectID { return o.id }
func (o *fakeObject) IsOpen() bool       { return o.open.Load() }

func (o *fakeObject) Open(ctx context.Context) error {
	if err := wait(ctx, o.s.openEntered, o.s.openGate); err != nil {
		return err
	}
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	o.s.openCalls[o.id]++
	if o.s.openErr != nil {
		return o.s.openErr
	}
	if o.open.Load() {
		return store.ErrAlreadyOpen
	}
	o.s.opens[o.id]++
	o.open.Store(true)
	return nil
}

func (o *fakeObject) Close() error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	o.s.closeCalls[o.id]++
	o.open.Store(false)
	return o.s.closeErr[o.id.StageID()]
}

func (o *fakeObject) Put(_ context.Context, dkey, akey string, value []byte) error {
	if !o.open.Load() {
		return store.ErrNotOpen
	}
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	m := o.s.data[o.id][dkey]
	if m == nil {
		m = make(map[string][]byte)
		o.s.data[o.id][dkey] = m
	}
	m[akey] = append([]byte(nil), value...)
	return nil
}

func (o *fakeObject) Get(_ context.Context, dkey, akey string) ([]byte, bool, error) {
	if !o.open.Load() {
		return nil, false, store.ErrNotOpen
	}
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if o.s.hideBlocks {
		return nil, false, nil
	}
	v, ok := o.s.data[o.id][dkey][akey]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (o *fakeObject) List(_ context.Context, dkey string) ([]string, error) {
	if !o.open.Load() {
		return nil, store.ErrNotOpen
	}
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	out := make([]string, 0, len(o.s.data[o.id][dkey]))
	for k := range o.s.data[o.id][dkey] {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func wait(ctx context.Context, entered, gate chan struct{}) error {
	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// recHooks counts hook invocations.
type recHooks struct {
	created, raceLost, opened atomic.Int64
	createFailed, openFailed  atomic.Int64
	closeFailed               atomic.Int64
}

func (h *recHooks) ObjectCreated(Key, store.ObjectID)       { h.created.Add(1) }
func (h *recHooks) CreateRaceLost(Key, store.ObjectID)      { h.raceLost.Add(1) }
func (h *recHooks) ObjectOpened(Key, store.ObjectID)        { h.opened.Add(1) }
func (h *recHooks) CreateFailed(Key, store.ObjectID, error) { h.createFailed.Add(1) }
func (h *recHooks) OpenFailed(Key, store.ObjectID, error)   { h.openFailed.Add(1) }
func (h *recHooks) CloseFailed(Key, store.ObjectID, error)  { h.closeFailed.Add(1) }
