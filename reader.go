package shuffleio

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/shuffleio/internal/util"
	"github.com/unkn0wn-root/shuffleio/internal/wire"
)

// ReaderSession reads reduce partitions of one stage object. It is safe for
// concurrent use; each Records call returns an independent iterator.
type ReaderSession interface {
	ID() string
	// Records iterates every record written to partition, block by block in
	// (map task, flush) order.
	Records(ctx context.Context, partition int) (*RecordIterator, error)
	Close() error
}

type reader struct {
	id          string
	h           *Handle
	parallelism int
	blocks      *blockCache // nil when disabled
	log         Logger
	closed      atomic.Bool
}

func newReader(h *Handle, parallelism int, blocks *blockCache, log Logger) *reader {
	return &reader{
		id:          uuid.NewString(),
		h:           h,
		parallelism: parallelism,
		blocks:      blocks,
		log:         log,
	}
}

func (r *reader) ID() string { return r.id }

func (r *reader) Records(ctx context.Context, partition int) (*RecordIterator, error) {
	if r.closed.Load() {
		return nil, ErrSessionClosed
	}
	if partition < 0 {
		return nil, fmt.Errorf("%w: %d", ErrPartitionOutOfRange, partition)
	}
	dkey := util.PartitionDkey(partition)
	akeys, err := r.h.Object().List(ctx, dkey)
	if err != nil {
		return nil, fmt.Errorf("shuffleio: list partition %d of %s: %w", partition, r.h.Key(), err)
	}
	util.SortAkeys(akeys)

	fetch := func(ctx context.Context, i int) ([]wire.Record, error) {
		return r.fetch(ctx, dkey, akeys[i])
	}
	if r.parallelism <= 1 || len(akeys) <= 1 {
		return newRecordIterator(ctx, len(akeys), fetch), nil
	}

	// parallel: fetch every block up front, keep write order
	blocks := make([][]wire.Record, len(akeys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for i := range akeys {
		g.Go(func() error {
			recs, err := fetch(gctx, i)
			if err != nil {
				return err
			}
			blocks[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return newRecordIterator(ctx, len(blocks), func(_ context.Context, i int) ([]wire.Record, error) {
		return blocks[i], nil
	}), nil
}

func (r *reader) fetch(ctx context.Context, dkey, akey string) ([]wire.Record, error) {
	ck := r.h.ID().String() + "/" + dkey + "/" + akey
	if r.blocks != nil {
		if recs, ok := r.blocks.get(ck); ok {
			return recs, nil
		}
	}
	raw, ok, err := r.h.Object().Get(ctx, dkey, akey)
	if err != nil {
		return nil, fmt.Errorf("shuffleio: read block %s/%s of %s: %w", dkey, akey, r.h.Key(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s of %s", ErrMissingBlock, dkey, akey, r.h.Key())
	}
	recs, err := wire.DecodeBlock(raw)
	if err != nil {
		return nil, fmt.Errorf("shuffleio: decode block %s/%s of %s: %w", dkey, akey, r.h.Key(), err)
	}
	if r.blocks != nil {
		r.blocks.set(ck, recs, int64(len(raw)))
	}
	return recs, nil
}

func (r *reader) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return ErrSessionClosed
	}
	r.log.Debug("read session closed", Fields{"session": r.id, "key": r.h.Key().String()})
	return nil
}

// RecordIterator walks records block by block. Key and Value are valid until
// the iterator is garbage; callers must not modify them.
//
//	for it.Next() {
//		use(it.Key(), it.Value())
//	}
//	if err := it.Err(); err != nil { ... }
type RecordIterator struct {
	ctx     context.Context
	nblocks int
	fetch   func(context.Context, int) ([]wire.Record, error)

	block int
	cur   []wire.Record
	pos   int // index of the current record in cur, -1 before the first
	err   error
}

func newRecordIterator(ctx context.Context, nblocks int, fetch func(context.Context, int) ([]wire.Record, error)) *RecordIterator {
	return &RecordIterator{ctx: ctx, nblocks: nblocks, fetch: fetch, pos: -1}
}

func (it *RecordIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for {
		if it.pos+1 < len(it.cur) {
			it.pos++
			return true
		}
		if it.block >= it.nblocks {
			return false
		}
		recs, err := it.fetch(it.ctx, it.block)
		if err != nil {
			it.err = err
			return false
		}
		it.block++
		it.cur, it.pos = recs, -1
	}
}

func (it *RecordIterator) Key() []byte   { return it.cur[it.pos].Key }
func (it *RecordIterator) Value() []byte { return it.cur[it.pos].Value }
func (it *RecordIterator) Err() error    { return it.err }
