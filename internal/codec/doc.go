// Package codec is the only place ciphertext is produced or consumed.
//
// Message and file payloads are sealed with ChaCha20-Poly1305 under the
// per-partner shared key. Every call generates a fresh random nonce;
// nonce reuse under one key would break confidentiality. Decryption
// failures surface as domain.ErrDecryptionFailure so callers can render
// a sentinel for the affected message instead of crashing.
package codec
