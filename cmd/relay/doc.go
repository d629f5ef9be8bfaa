// Package main runs the in-memory replica host used by veilchat during
// development and tests. It stores last-write-wins scalar paths and
// append-only map paths, and fans entries out to long-polling watchers.
//
// HTTP API
//
//	POST /v1/put { "path": P, "value": V }
//	    Store V at scalar path P, last write wins.
//
//	GET /v1/get?path=P&timeout_ms=N
//	    Return the value at P. When absent, the request is held open up
//	    to N milliseconds waiting for a write; "found": false afterwards.
//
//	POST /v1/add { "path": P, "value": V }
//	    Append V under the map at P. Responds with the assigned entry
//	    key (a UUID) and sequence number.
//
//	GET /v1/entries?path=P&after=S&timeout_ms=N
//	    Return map entries at P with sequence greater than S, holding
//	    the request open up to N milliseconds when there are none yet.
//
// Behaviour
//
//   - All state is held in memory and lost on process exit.
//   - Responses are JSON. Non-2xx statuses carry a short error message.
//   - The host never sees plaintext or private keys; it stores only
//     ciphertext and public key material.
//   - The default listen address is :8080.
package main
