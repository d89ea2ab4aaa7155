// Package redis is a store.Store backed by Redis, shared by every process of
// a job.
//
// Layout (ns = Config.Namespace):
//
//	<ns>:obj:<oid>           string marker, "<class>/<hint>"
//	<ns>:obj:<oid>:d:<dkey>  hash akey -> block
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/shuffleio/store"
)

var (
	ErrNilClient = errors.New("redis store: nil client")
	ErrNotFound  = errors.New("redis store: object not found")
	ErrClosed    = errors.New("redis store: object closed")
)

const defaultNamespace = "shuffleio"

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool   // set true only if this store exclusively owns the client
	Namespace   string // key prefix; default "shuffleio"

	// TTL applied to object keys on every write; 0 keeps them until deleted.
	TTL time.Duration
}

type Store struct {
	rdb         goredis.UniversalClient
	closeClient bool
	ns          string
	ttl         time.Duration
}

var _ store.Store = (*Store)(nil)

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = defaultNamespace
	}
	return &Store{rdb: cfg.Client, closeClient: cfg.CloseClient, ns: ns, ttl: cfg.TTL}, nil
}

func (s *Store) objKey(id store.ObjectID) string { return s.ns + ":obj:" + id.String() }
func (s *Store) dkeyKey(id store.ObjectID, dkey string) string {
	return s.objKey(id) + ":d:" + dkey
}

// Object creates the marker with SETNX, so repeated creates of one id are
// idempotent on the server.
func (s *Store) Object(ctx context.Context, id store.ObjectID) (store.Object, error) {
	meta := fmt.Sprintf("%s/%s", id.Class(), id.Hint())
	if err := s.rdb.SetNX(ctx, s.objKey(id), meta, s.ttl).Err(); err != nil {
		return nil, err
	}
	return &object{s: s, id: id}, nil
}

// Close releases the underlying redis client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (s *Store) Close(context.Context) error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

type object struct {
	s  *Store
	id store.ObjectID

	mu     sync.Mutex
	open   bool
	closed bool
}

func (o *object) ID() store.ObjectID { return o.id }

func (o *object) Open(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case o.open:
		return store.ErrAlreadyOpen
	case o.closed:
		return ErrClosed
	}
	n, err := o.s.rdb.Exists(ctx, o.s.objKey(o.id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, o.id)
	}
	o.open = true
	return nil
}

func (o *object) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.open = false
	o.closed = true
	return nil
}

func (o *object) IsOpen() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.open
}

// Put writes the block and, with a TTL configured, refreshes expiry in the
// same round-trip.
func (o *object) Put(ctx context.Context, dkey, akey string, value []byte) error {
	if !o.IsOpen() {
		return store.ErrNotOpen
	}
	k := o.s.dkeyKey(o.id, dkey)
	if o.s.ttl <= 0 {
		return o.s.rdb.HSet(ctx, k, akey, value).Err()
	}
	_, err := o.s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		p.HSet(ctx, k, akey, value)
		p.Expire(ctx, k, o.s.ttl)
		p.Expire(ctx, o.s.objKey(o.id), o.s.ttl)
		return nil
	})
	return err
}

func (o *object) Get(ctx context.Context, dkey, akey string) ([]byte, bool, error) {
	if !o.IsOpen() {
		return nil, false, store.ErrNotOpen
	}
	b, err := o.s.rdb.HGet(ctx, o.s.dkeyKey(o.id, dkey), akey).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (o *object) List(ctx context.Context, dkey string) ([]string, error) {
	if !o.IsOpen() {
		return nil, store.ErrNotOpen
	}
	akeys, err := o.s.rdb.HKeys(ctx, o.s.dkeyKey(o.id, dkey)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(akeys)
	return akeys, nil
}
