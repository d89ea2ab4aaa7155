// Package store defines the remote object-store abstraction used by shuffleio.
//
// A Store resolves an ObjectID to an Object. An Object is a two-level key/value
// container: the distribution key (dkey) selects a reduce partition and the
// attribute key (akey) selects one map task's output inside it.
//
// Implementations own the object address encoding (see NewObjectID) and the
// allocation of whatever resources an object needs once opened. shuffleio never
// retries a failed store call; errors are returned to the caller as-is.
package store

import (
	"context"
)

// Store is a client for a remote object store.
// Must be safe for concurrent use.
type Store interface {
	// Object creates the object addressed by id, or resolves it if it already
	// exists. The returned Object is not open yet.
	// Calling Object twice for the same id may allocate client resources twice;
	// callers that drop a result must Close it.
	Object(ctx context.Context, id ObjectID) (Object, error)

	// Close releases the client connection.
	Close(ctx context.Context) error
}

// Object is a handle to one remote object.
// Open must be called exactly once before Put/Get/List; a duplicate Open is a
// protocol violation and implementations may reject it.
type Object interface {
	ID() ObjectID

	Open(ctx context.Context) error
	// Close releases resources held by the object. Closing an unopened object
	// is allowed and releases whatever Store.Object allocated.
	Close() error
	IsOpen() bool

	// Put stores value under (dkey, akey), replacing any previous value.
	// Implementations must not retain value after Put returns.
	Put(ctx context.Context, dkey, akey string, value []byte) error
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// The returned slice is owned by the caller.
	Get(ctx context.Context, dkey, akey string) ([]byte, bool, error)
	// List returns the akeys under dkey in ascending order.
	List(ctx context.Context, dkey string) ([]string, error)
}
