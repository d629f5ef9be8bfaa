// Package contacts maintains the set of known chat sessions for a user.
//
// Load favours instant availability over freshness: the durable cache is
// rendered first and the replica's per-user channel list is merged in as
// entries arrive, de-duplicated by channel id and partner. StartChat
// registers the channel under both participants' lists as a best-effort
// dual write; a missing half self-heals when traffic is observed on the
// shared channel.
package contacts
