package shuffleio

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/shuffleio/internal/util"
	"github.com/unkn0wn-root/shuffleio/internal/wire"
)

// MapStatus summarizes one finished map task.
type MapStatus struct {
	MapID uint64
	// PartitionLengths[p] is the number of bytes written to partition p.
	PartitionLengths []int64
	Records          int64
}

// WriterSession buffers one map task's output by reduce partition and writes
// it into the stage object. It is not safe for concurrent use; open one
// session per map task.
type WriterSession interface {
	ID() string
	NumPartitions() int

	// Write appends a record to partition's buffer. A buffer that reached the
	// configured size is flushed to the store first.
	Write(ctx context.Context, partition int, key, value []byte) error
	// Flush writes every non-empty buffer to the store.
	Flush(ctx context.Context) error
	// Close flushes and returns the map status. The object handle stays open.
	Close(ctx context.Context) (MapStatus, error)
}

type writerConfig struct {
	numPartitions int
	mapID         uint64
	bufferSize    int
	parallelism   int
	log           Logger
}

type writer struct {
	id  string
	h   *Handle
	cfg writerConfig

	bufs    []*wire.Builder // lazily allocated per partition
	seqs    []int           // next akey seq per partition
	lengths []int64
	records int64
	closed  bool
}

func newWriter(h *Handle, cfg writerConfig) *writer {
	return &writer{
		id:      uuid.NewString(),
		h:       h,
		cfg:     cfg,
		bufs:    make([]*wire.Builder, cfg.numPartitions),
		seqs:    make([]int, cfg.numPartitions),
		lengths: make([]int64, cfg.numPartitions),
	}
}

func (w *writer) ID() string         { return w.id }
func (w *writer) NumPartitions() int { return w.cfg.numPartitions }

func (w *writer) Write(ctx context.Context, partition int, key, value []byte) error {
	if w.closed {
		return ErrSessionClosed
	}
	if partition < 0 || partition >= w.cfg.numPartitions {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrPartitionOutOfRange, partition, w.cfg.numPartitions)
	}
	b := w.bufs[partition]
	if b == nil {
		b = wire.NewBuilder(w.cfg.bufferSize)
		w.bufs[partition] = b
	}
	if b.Count() > 0 && b.Size() >= w.cfg.bufferSize {
		if err := w.flushPartition(ctx, partition); err != nil {
			return err
		}
	}
	b.Add(key, value)
	w.records++
	return nil
}

func (w *writer) Flush(ctx context.Context) error {
	if w.closed {
		return ErrSessionClosed
	}
	return w.flush(ctx)
}

func (w *writer) flush(ctx context.Context) error {
	pending := make([]int, 0, len(w.bufs))
	for p, b := range w.bufs {
		if b != nil && b.Count() > 0 {
			pending = append(pending, p)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	if w.cfg.parallelism <= 1 || len(pending) == 1 {
		for _, p := range pending {
			if err := w.flushPartition(ctx, p); err != nil {
				return err
			}
		}
		return nil
	}

	// each goroutine owns one partition index of bufs/seqs/lengths
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.parallelism)
	for _, p := range pending {
		g.Go(func() error { return w.flushPartition(gctx, p) })
	}
	return g.Wait()
}

func (w *writer) flushPartition(ctx context.Context, p int) error {
	b := w.bufs[p]
	block := b.Bytes()
	akey := util.MapAkey(w.cfg.mapID, w.seqs[p])
	if err := w.h.Object().Put(ctx, util.PartitionDkey(p), akey, block); err != nil {
		return fmt.Errorf("shuffleio: write partition %d of %s: %w", p, w.h.Key(), err)
	}
	w.lengths[p] += int64(len(block))
	w.seqs[p]++
	b.Reset(w.cfg.bufferSize)
	return nil
}

func (w *writer) Close(ctx context.Context) (MapStatus, error) {
	if w.closed {
		return MapStatus{}, ErrSessionClosed
	}
	if err := w.flush(ctx); err != nil {
		return MapStatus{}, err
	}
	w.closed = true
	w.bufs = nil

	lengths := make([]int64, len(w.lengths))
	copy(lengths, w.lengths)
	w.cfg.log.Debug("write session closed", Fields{
		"session": w.id,
		"key":     w.h.Key().String(),
		"map":     w.cfg.mapID,
		"records": w.records,
	})
	return MapStatus{MapID: w.cfg.mapID, PartitionLengths: lengths, Records: w.records}, nil
}
