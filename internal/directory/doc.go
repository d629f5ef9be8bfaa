// Package directory publishes and resolves users' public key material
// against the replicated store.
//
// The store has no authoritative "key does not exist" signal: absence and
// not-yet-replicated are indistinguishable. Resolve therefore performs a
// bounded number of timed reads with capped multiplicative backoff and
// treats exhaustion as a probabilistic not-found.
package directory
