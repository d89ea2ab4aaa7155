// Package memstore is an in-process store.Store.
//
// Objects with the same ID share their data, so several handles resolved for
// one ID observe each other's writes the way a remote store would. Call
// counters make it usable as an instrumented fake in tests and benchmarks.
package memstore

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/shuffleio/store"
)

type Config struct {
	// Simulated latency of create/resolve and open calls.
	CreateDelay time.Duration
	OpenDelay   time.Duration
}

// Stats counts calls made against the store.
type Stats struct {
	Creates int64
	Opens   int64
	Closes  int64
}

type Store struct {
	cfg Config

	mu      sync.Mutex
	objects map[store.ObjectID]*data
	closed  bool

	creates atomic.Int64
	opens   atomic.Int64
	closes  atomic.Int64
}

var _ store.Store = (*Store)(nil)

func New(cfg Config) *Store {
	return &Store{cfg: cfg, objects: make(map[store.ObjectID]*data)}
}

func (s *Store) Object(ctx context.Context, id store.ObjectID) (store.Object, error) {
	if err := sleep(ctx, s.cfg.CreateDelay); err != nil {
		return nil, err
	}
	s.creates.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	d, ok := s.objects[id]
	if !ok {
		d = &data{dkeys: make(map[string]map[string][]byte)}
		s.objects[id] = d
	}
	return &object{s: s, id: id, d: d}, nil
}

func (s *Store) Close(context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *Store) Stats() Stats {
	return Stats{
		Creates: s.creates.Load(),
		Opens:   s.opens.Load(),
		Closes:  s.closes.Load(),
	}
}

// Objects returns the number of distinct object IDs ever resolved.
func (s *Store) Objects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type data struct {
	mu    sync.RWMutex
	dkeys map[string]map[string][]byte
}

type object struct {
	s  *Store
	id store.ObjectID
	d  *data

	mu     sync.Mutex
	open   bool
	closed bool
}

func (o *object) ID() store.ObjectID { return o.id }

func (o *object) Open(ctx context.Context) error {
	if err := sleep(ctx, o.s.cfg.OpenDelay); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.open {
		return store.ErrAlreadyOpen
	}
	if o.closed {
		return ErrClosed
	}
	o.s.opens.Add(1)
	o.open = true
	return nil
}

func (o *object) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.s.closes.Add(1)
	o.open = false
	o.closed = true
	return nil
}

func (o *object) IsOpen() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.open
}

func (o *object) Put(_ context.Context, dkey, akey string, value []byte) error {
	if !o.IsOpen() {
		return store.ErrNotOpen
	}
	v := make([]byte, len(value))
	copy(v, value)

	o.d.mu.Lock()
	defer o.d.mu.Unlock()
	m, ok := o.d.dkeys[dkey]
	if !ok {
		m = make(map[string][]byte)
		o.d.dkeys[dkey] = m
	}
	m[akey] = v
	return nil
}

func (o *object) Get(_ context.Context, dkey, akey string) ([]byte, bool, error) {
	if !o.IsOpen() {
		return nil, false, store.ErrNotOpen
	}
	o.d.mu.RLock()
	defer o.d.mu.RUnlock()
	v, ok := o.d.dkeys[dkey][akey]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (o *object) List(_ context.Context, dkey string) ([]string, error) {
	if !o.IsOpen() {
		return nil, store.ErrNotOpen
	}
	o.d.mu.RLock()
	m := o.d.dkeys[dkey]
	akeys := make([]string, 0, len(m))
	for k := range m {
		akeys = append(akeys, k)
	}
	o.d.mu.RUnlock()
	sort.Strings(akeys)
	return akeys, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
