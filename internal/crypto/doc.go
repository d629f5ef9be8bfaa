// Package crypto exposes the minimal primitives used by veilchat.
//
// Contents
//
//   - X25519 key generation, clamping and Diffie–Hellman (GenerateX25519, DH)
//   - Shared-key derivation via HKDF-SHA256 over the DH output (DeriveSharedKey)
//   - Passphrase wrapping of the private key for durable storage
//     (WrapPrivateKey, UnwrapPrivateKey)
//   - Short public-key fingerprints for display (Fingerprint)
//
// # Notes
//
// All functions return fixed-size array types defined in internal/domain to
// avoid accidental reallocations. Callers should treat returned secrets as
// sensitive and rely on memzero when practical to reduce lifetime in memory.
package crypto
