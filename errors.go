package shuffleio

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/shuffleio/store"
)

var (
	ErrMalformedJobID      = errors.New("shuffleio: malformed job id")
	ErrStoreNotSet         = errors.New("shuffleio: store not set")
	ErrSessionClosed       = errors.New("shuffleio: session closed")
	ErrPartitionOutOfRange = errors.New("shuffleio: partition out of range")
	ErrMissingBlock        = errors.New("shuffleio: listed block missing")
)

// CreateError reports that the store rejected create/resolve for a key.
// Nothing is registered for the key; a later Acquire starts over.
type CreateError struct {
	Key Key
	ID  store.ObjectID
	Err error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("shuffleio: create object %s for %s: %v", e.ID, e.Key, e.Err)
}

func (e *CreateError) Unwrap() error { return e.Err }

// OpenError reports that the store rejected Open. The handle stays registered
// and unopened, so a later Acquire for the same key retries the open.
type OpenError struct {
	Key Key
	ID  store.ObjectID
	Err error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("shuffleio: open object %s for %s: %v", e.ID, e.Key, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// HandleError is one failed close during teardown.
type HandleError struct {
	Key Key
	ID  store.ObjectID
	Err error
}

func (e HandleError) Error() string {
	return fmt.Sprintf("close object %s for %s: %v", e.ID, e.Key, e.Err)
}

func (e HandleError) Unwrap() error { return e.Err }

// TeardownError aggregates every handle that failed to close. All handles are
// attempted before it is returned. A handle listed in Failures still reports
// IsOpen.
type TeardownError struct {
	Total    int
	Failures []HandleError
}

func (e *TeardownError) Error() string {
	switch len(e.Failures) {
	case 0:
		return "shuffleio: teardown: unknown error"
	case 1:
		return fmt.Sprintf("shuffleio: teardown: 1 of %d handles failed: %v", e.Total, e.Failures[0])
	default:
		return fmt.Sprintf("shuffleio: teardown: %d of %d handles failed; first: %v",
			len(e.Failures), e.Total, e.Failures[0])
	}
}

func (e *TeardownError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}
