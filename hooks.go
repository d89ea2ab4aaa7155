package shuffleio

import "github.com/unkn0wn-root/shuffleio/store"

// Hooks lightweight callbacks for handle lifecycle events.
// Implementations MUST be cheap and non-blocking; ObjectOpened and
// CreateRaceLost run on the acquire path. Wrap slow sinks with hooks/async.
type Hooks interface {
	// First successful create/resolve for a key; id is the registered address.
	ObjectCreated(key Key, id store.ObjectID)

	// A concurrent create for the same key won; the object created by this
	// caller was closed and the registered handle adopted.
	CreateRaceLost(key Key, id store.ObjectID)

	// The registered handle was opened (exactly once per handle).
	ObjectOpened(key Key, id store.ObjectID)

	// Create or open failed; the error is also returned to the caller.
	CreateFailed(key Key, id store.ObjectID, err error)
	OpenFailed(key Key, id store.ObjectID, err error)

	// A handle failed to close during teardown.
	CloseFailed(key Key, id store.ObjectID, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) ObjectCreated(Key, store.ObjectID)       {}
func (NopHooks) CreateRaceLost(Key, store.ObjectID)      {}
func (NopHooks) ObjectOpened(Key, store.ObjectID)        {}
func (NopHooks) CreateFailed(Key, store.ObjectID, error) {}
func (NopHooks) OpenFailed(Key, store.ObjectID, error)   {}
func (NopHooks) CloseFailed(Key, store.ObjectID, error)  {}
