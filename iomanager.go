package shuffleio

import (
	"context"
	"errors"
	"fmt"

	"github.com/unkn0wn-root/shuffleio/store"
)

const (
	defaultWriteBufferSize  = 1 << 20
	defaultFlushParallelism = 4
	defaultReadParallelism  = 8
)

// ioManager holds what both strategies share; syncIO and asyncIO differ only
// in the writer they build.
type ioManager struct {
	jobID   uint64
	handles *HandleCache
	log     Logger

	writeBufferSize  int
	flushParallelism int
	readParallelism  int
	blocks           *blockCache

	st         store.Store
	closeStore bool
}

type syncIO struct{ *ioManager }
type asyncIO struct{ *ioManager }

var (
	_ IOManager = syncIO{}
	_ IOManager = asyncIO{}
)

func newIOManager(opts Options) (IOManager, error) {
	if opts.JobID == "" {
		return nil, fmt.Errorf("shuffleio: job id is required")
	}
	jobID, err := ParseJobID(opts.JobID)
	if err != nil {
		return nil, err
	}

	m := &ioManager{
		jobID:      jobID,
		st:         opts.Store,
		closeStore: opts.CloseStore,
	}
	m.log = coalesce[Logger](opts.Logger, NopLogger{})
	m.writeBufferSize = positive(opts.WriteBufferSize, defaultWriteBufferSize)
	m.flushParallelism = positive(opts.FlushParallelism, defaultFlushParallelism)
	m.readParallelism = positive(opts.ReadParallelism, defaultReadParallelism)

	if opts.BlockCacheMaxCost > 0 {
		bc, err := newBlockCache(opts.BlockCacheMaxCost)
		if err != nil {
			return nil, fmt.Errorf("shuffleio: block cache: %w", err)
		}
		m.blocks = bc
	}

	m.handles = NewHandleCache(HandleCacheOptions{
		Store:           opts.Store,
		ObjectClass:     opts.ObjectClass,
		ObjectHint:      opts.ObjectHint,
		SerializeCreate: opts.SerializeCreate,
		Logger:          m.log,
		Hooks:           opts.Hooks,
	})

	m.log.Info("shuffle io manager ready", Fields{
		"job":   jobID,
		"mode":  opts.Mode.String(),
		"class": opts.ObjectClass.String(),
		"hint":  opts.ObjectHint.String(),
	})

	switch opts.Mode {
	case ModeSync:
		return syncIO{m}, nil
	case ModeAsync:
		return asyncIO{m}, nil
	default:
		return nil, fmt.Errorf("shuffleio: unknown mode %v", opts.Mode)
	}
}

func (m syncIO) OpenWriteSession(ctx context.Context, numPartitions int, stageID uint32, mapTaskID uint64) (WriterSession, error) {
	return m.openWriter(ctx, numPartitions, stageID, mapTaskID, 1)
}

func (m asyncIO) OpenWriteSession(ctx context.Context, numPartitions int, stageID uint32, mapTaskID uint64) (WriterSession, error) {
	return m.openWriter(ctx, numPartitions, stageID, mapTaskID, m.flushParallelism)
}

func (m *ioManager) openWriter(ctx context.Context, numPartitions int, stageID uint32, mapTaskID uint64, parallelism int) (WriterSession, error) {
	if numPartitions <= 0 {
		return nil, fmt.Errorf("%w: %d partitions", ErrPartitionOutOfRange, numPartitions)
	}
	h, err := m.handles.Acquire(ctx, m.jobID, stageID)
	if err != nil {
		return nil, err
	}
	return newWriter(h, writerConfig{
		numPartitions: numPartitions,
		mapID:         mapTaskID,
		bufferSize:    m.writeBufferSize,
		parallelism:   parallelism,
		log:           m.log,
	}), nil
}

func (m *ioManager) OpenReadSession(ctx context.Context, stageID uint32) (ReaderSession, error) {
	return m.openReader(ctx, stageID, 1)
}

func (m *ioManager) OpenParallelReadSession(ctx context.Context, stageID uint32) (ReaderSession, error) {
	return m.openReader(ctx, stageID, m.readParallelism)
}

func (m *ioManager) openReader(ctx context.Context, stageID uint32, parallelism int) (ReaderSession, error) {
	h, err := m.handles.Acquire(ctx, m.jobID, stageID)
	if err != nil {
		return nil, err
	}
	return newReader(h, parallelism, m.blocks, m.log), nil
}

func (m *ioManager) SetStore(s store.Store) {
	m.st = s
	m.handles.SetStore(s)
}

func (m *ioManager) Handles() *HandleCache { return m.handles }

func (m *ioManager) Close(ctx context.Context) error {
	err := m.handles.Close(ctx)
	if m.blocks != nil {
		m.blocks.close()
	}
	if m.closeStore && m.st != nil {
		if serr := m.st.Close(ctx); serr != nil {
			err = errors.Join(err, fmt.Errorf("shuffleio: close store: %w", serr))
		}
	}
	return err
}
