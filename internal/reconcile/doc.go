// Package reconcile merges a channel's durable message cache with its
// live replica feed into one ordered, de-duplicated, decrypted timeline.
//
// Each open channel moves Idle → Hydrating → Live: the cached messages
// are rendered immediately (stale but available), then the remote feed is
// merged in as entries arrive. Entries are de-duplicated by their
// replica-assigned key and ordered by sender timestamp, ties broken by
// arrival order. A decryption failure renders a sentinel for that one
// message and never aborts feed processing. Closing a channel tears the
// subscription down deterministically; a late callback from a stale
// subscription can never touch the next channel's state.
package reconcile
