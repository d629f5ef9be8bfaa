// Package session owns the logged-in identity and the per-partner
// shared-key arena.
//
// Keys are derived lazily: a cache hit returns with no I/O, a miss
// resolves the partner's public key through the directory and runs key
// agreement. Concurrent misses for the same partner collapse into one
// derivation via singleflight. The arena lives only for the session and
// is zeroed on Close; plaintext keys are never persisted.
package session
