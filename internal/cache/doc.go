// Package cache is the local durable key/value store for identity
// material, contact lists, and per-channel message lists.
//
// Each record is a JSON document wrapped with an updatedAt stamp. Writes
// are subject to an optional byte quota; when the quota is exceeded the
// least-recently-updated records are evicted first, and a write that can
// never fit yields domain.ErrStorageQuotaExceeded. Callers treat cache
// failures as a degrade to remote-only, never as fatal.
package cache
