package shuffleio

import (
	"context"
	"fmt"

	"github.com/unkn0wn-root/shuffleio/store"
)

// Mode selects how write sessions flush partition buffers.
type Mode int

const (
	ModeSync  Mode = iota // flush partitions one by one on the caller goroutine
	ModeAsync             // flush partitions concurrently, bounded by FlushParallelism
)

func (m Mode) String() string {
	switch m {
	case ModeSync:
		return "sync"
	case ModeAsync:
		return "async"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "sync" or "async".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "sync":
		return ModeSync, nil
	case "async":
		return ModeAsync, nil
	default:
		return ModeSync, fmt.Errorf("shuffleio: unknown mode %q", s)
	}
}

// IOManager hands out shuffle sessions for one job. Every session obtains its
// object handle through the manager's HandleCache.
type IOManager interface {
	OpenWriteSession(ctx context.Context, numPartitions int, stageID uint32, mapTaskID uint64) (WriterSession, error)
	OpenReadSession(ctx context.Context, stageID uint32) (ReaderSession, error)
	// OpenParallelReadSession fetches a partition's blocks concurrently.
	OpenParallelReadSession(ctx context.Context, stageID uint32) (ReaderSession, error)

	// SetStore injects the store client when it was not given in Options.
	SetStore(s store.Store)
	// Handles exposes the underlying cache (diagnostics, direct Acquire).
	Handles() *HandleCache

	// Close closes every cached handle, then the store if Options.CloseStore.
	Close(ctx context.Context) error
}

// Options tune an IOManager. Only JobID is required; Store may be injected
// later with SetStore.
type Options struct {
	// Required
	JobID string // host job id, e.g. "app-20240101-0007"; see ParseJobID

	Store      store.Store
	CloseStore bool // close Store on Close; set only if the manager owns it

	Mode            Mode
	ObjectClass     store.ObjectClass // default ClassUnknown (store decides)
	ObjectHint      store.ObjectHint  // default HintNone
	SerializeCreate bool              // see HandleCacheOptions

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used

	WriteBufferSize   int   // per-partition bytes before a flush; 0 => 1 MiB
	FlushParallelism  int   // ModeAsync only; 0 => 4
	ReadParallelism   int   // parallel readers; 0 => 8
	BlockCacheMaxCost int64 // bytes of decoded blocks kept by readers; 0 => disabled
}

func New(opts Options) (IOManager, error) {
	return newIOManager(opts)
}
