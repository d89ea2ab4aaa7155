// Package bigcache is a process-local store.Store on allegro/bigcache.
//
// It suits single-process jobs and tests that want a real byte store without
// a network hop. bigcache evicts by age and size: size LifeWindow and
// HardMaxCacheSizeMB so nothing is evicted before the job finishes.
package bigcache

import (
	"context"
	"encoding/binary"
	"errors"
	"sort"
	"sync"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/shuffleio/codec"
	"github.com/unkn0wn-root/shuffleio/store"
)

type Config struct {
	LifeWindow         time.Duration // 0 => 24h
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
	Shards             int // power of two; 0 => bigcache default

	// IndexCodec encodes the akey list kept per dkey. Default Msgpack.
	IndexCodec codec.Codec[[]string]
}

type Store struct {
	c     *bc.BigCache
	index codec.Codec[[]string]

	mu sync.Mutex // guards index read-modify-write
}

var _ store.Store = (*Store)(nil)

func New(cfg Config) (*Store, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = 24 * time.Hour
	}
	conf := bc.DefaultConfig(life)
	conf.CleanWindow = 0 // never sweep; shuffle data lives for the job
	conf.Verbose = false
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	if cfg.Shards > 0 {
		conf.Shards = cfg.Shards
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	s := &Store{c: c, index: cfg.IndexCodec}
	if s.index == nil {
		s.index = codec.Msgpack[[]string]{}
	}
	return s, nil
}

func objKey(id store.ObjectID) string { return "obj/" + id.String() }
func idxKey(id store.ObjectID, dkey string) string {
	return "idx/" + id.String() + "/" + dkey
}
func blkKey(id store.ObjectID, dkey, akey string) string {
	return "blk/" + id.String() + "/" + dkey + "/" + akey
}

// Object registers the object marker if missing. Resolving an existing id is
// free, so concurrent creates of one id are harmless.
func (s *Store) Object(_ context.Context, id store.ObjectID) (store.Object, error) {
	if _, err := s.c.Get(objKey(id)); errors.Is(err, bc.ErrEntryNotFound) {
		if err := s.c.Set(objKey(id), marker(id)); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return &object{s: s, id: id}, nil
}

// marker records the placement the object was created with:
// class(u16 be) | hint(u8).
func marker(id store.ObjectID) []byte {
	m := make([]byte, 3)
	binary.BigEndian.PutUint16(m, uint16(id.Class()))
	m[2] = byte(id.Hint())
	return m
}

func (s *Store) Close(context.Context) error {
	return s.c.Close()
}

func (s *Store) readIndex(id store.ObjectID, dkey string) ([]string, error) {
	raw, err := s.c.Get(idxKey(id, dkey))
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.index.Decode(raw)
}

func (s *Store) addToIndex(id store.ObjectID, dkey, akey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	akeys, err := s.readIndex(id, dkey)
	if err != nil {
		return err
	}
	i := sort.SearchStrings(akeys, akey)
	if i < len(akeys) && akeys[i] == akey {
		return nil
	}
	akeys = append(akeys, "")
	copy(akeys[i+1:], akeys[i:])
	akeys[i] = akey
	raw, err := s.index.Encode(akeys)
	if err != nil {
		return err
	}
	return s.c.Set(idxKey(id, dkey), raw)
}

type object struct {
	s  *Store
	id store.ObjectID

	mu     sync.Mutex
	open   bool
	closed bool
}

func (o *object) ID() store.ObjectID { return o.id }

func (o *object) Open(_ context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case o.open:
		return store.ErrAlreadyOpen
	case o.closed:
		return ErrClosed
	}
	if _, err := o.s.c.Get(objKey(o.id)); err != nil {
		return err
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

func (o *object) Put(_ context.Context, dkey, akey string, value []byte) error {
	if !o.IsOpen() {
		return store.ErrNotOpen
	}
	// bigcache copies value into its shard ring
	if err := o.s.c.Set(blkKey(o.id, dkey, akey), value); err != nil {
		return err
	}
	return o.s.addToIndex(o.id, dkey, akey)
}

func (o *object) Get(_ context.Context, dkey, akey string) ([]byte, bool, error) {
	if !o.IsOpen() {
		return nil, false, store.ErrNotOpen
	}
	b, err := o.s.c.Get(blkKey(o.id, dkey, akey))
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (o *object) List(_ context.Context, dkey string) ([]string, error) {
	if !o.IsOpen() {
		return nil, store.ErrNotOpen
	}
	return o.s.readIndex(o.id, dkey)
}
