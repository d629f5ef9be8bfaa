package replica

// Wire types shared between the HTTP client and the relay host.

// PutRequest stores Value at a scalar Path (last write wins).
type PutRequest struct {
	Path  string `json:"path"`
	Value []byte `json:"value"`
}

// AddRequest appends Value under the map at Path.
type AddRequest struct {
	Path  string `json:"path"`
	Value []byte `json:"value"`
}

// AddResponse reports the entry key and sequence the host assigned.
type AddResponse struct {
	Key string `json:"key"`
	Seq uint64 `json:"seq"`
}

// GetResponse carries a scalar read result. Found is false when nothing
// arrived within the requested wait window.
type GetResponse struct {
	Value []byte `json:"value,omitempty"`
	Found bool   `json:"found"`
}

// Entry is one map entry with its host-assigned key and sequence.
type Entry struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
	Seq   uint64 `json:"seq"`
}

// EntriesResponse is a page of map entries. Next is the sequence to pass
// as after on the following poll.
type EntriesResponse struct {
	Entries []Entry `json:"entries"`
	Next    uint64  `json:"next"`
}
