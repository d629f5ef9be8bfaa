// Package identity manages creation, wrapping and loading of the local
// identity.
//
// It enforces passphrase policy, generates the X25519 key pair, persists
// the record (public key plus passphrase-wrapped private key) in the
// durable cache, and publishes the public half to the directory.
package identity
