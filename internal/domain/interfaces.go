package domain

import (
	"context"
	"time"
)

// Replica is the eventually-consistent key/value graph the relay peers
// host. Writes are last-write-wins per path; there are no transactions
// and no authoritative "key does not exist" signal.
type Replica interface {
	// Put stores value at a scalar path.
	Put(ctx context.Context, path string, value []byte) error

	// Add appends value under a map path and returns the entry key the
	// replica assigned to it.
	Add(ctx context.Context, path string, value []byte) (key string, err error)

	// GetOnce reads a scalar path, waiting up to timeout for the value
	// to replicate. ok is false when nothing arrived in time; that is
	// indistinguishable from true absence.
	GetOnce(ctx context.Context, path string, timeout time.Duration) (value []byte, ok bool, err error)

	// SubscribeMap delivers every entry under a map path, existing and
	// future, until the subscription is cancelled. Entries may be
	// delivered more than once; callers de-duplicate by key.
	SubscribeMap(path string, fn func(key string, value []byte)) (Subscription, error)
}

// Subscription is a live map feed. Cancel tears it down deterministically:
// once Cancel returns, fn will not be invoked again.
type Subscription interface {
	Cancel()
}

// DurableCache is local key/value persistence for identity material,
// contacts, and per-channel messages. Writes may fail with
// ErrStorageQuotaExceeded; callers treat that as non-fatal.
type DurableCache interface {
	Set(key string, doc any) error
	Get(key string, out any) (ok bool, err error)
	Remove(key string) error
}

// Directory maps usernames to published public key material.
type Directory interface {
	Publish(ctx context.Context, username Username, pub X25519Public) error
	Resolve(ctx context.Context, username Username) (X25519Public, error)
}

// KeySource hands out the per-partner shared key, deriving and caching
// it on first use.
type KeySource interface {
	SharedKey(ctx context.Context, partner Username) (SharedKey, error)
}
