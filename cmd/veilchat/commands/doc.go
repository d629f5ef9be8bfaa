// Package commands defines the veilchat CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - signup       Create the local identity and publish its public key
//   - fingerprint  Print the identity fingerprint (optionally as a QR code)
//   - contacts     List known chat partners, merging cache and replica
//   - chat         Open an interactive encrypted chat with a partner
//   - send         Encrypt and send a single message
//   - send-file    Encrypt and send a file (5 MB cap)
//
// # Implementation
//
// The root command loads Config from the environment, applies flag
// overrides, and builds a dependency graph (cache, replica client,
// directory, identity service) before any subcommand runs.
package commands
