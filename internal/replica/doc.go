// Package replica talks to the replicated key/value graph the relay
// peers host.
//
// The store is treated as opaque and eventually consistent: last-write-wins
// scalar paths, append-only map paths with replica-assigned entry keys, and
// no authoritative absence signal. Two implementations are provided:
//
//   - Memory: an in-process store used by tests and for offline runs.
//   - Client: JSON over HTTP against a veilchat-relay host, with long-poll
//     reads for GetOnce and map subscriptions.
//
// All requests accept a context for cancellation and deadlines. Non-2xx
// statuses are returned as errors with the HTTP method, full URL, and
// status text to aid diagnostics.
package replica
