package domain

// Username identifies a user in the directory and on channel paths.
type Username string

// String returns the string form of the username.
func (u Username) String() string { return string(u) }

// ChannelID addresses the conversation between exactly two users. It is
// derived deterministically from both usernames, so either side computes
// the same value without negotiation.
type ChannelID string

// String returns the string form of the channel identifier.
func (c ChannelID) String() string { return string(c) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// SharedKey is the symmetric key derived per partner via key agreement.
// It is held in memory only and recomputed lazily after a restart.
type SharedKey [32]byte

// Slice returns the key as a []byte.
func (k SharedKey) Slice() []byte { return k[:] }

// Identity holds the logged-in user's key pair. The private half never
// leaves the owning client except in passphrase-wrapped form.
type Identity struct {
	Username Username      `json:"username"`
	Pub      X25519Public  `json:"pub"`
	Priv     X25519Private `json:"priv"`
}

// IdentityRecord is the durable form of an identity: the private key is
// stored only inside the passphrase-wrapped blob.
type IdentityRecord struct {
	Username    Username     `json:"username"`
	Pub         X25519Public `json:"pub"`
	WrappedPriv []byte       `json:"wrapped_priv"`
}

// Contact is one known chat partner and the channel shared with them.
type Contact struct {
	Partner Username  `json:"partner"`
	Channel ChannelID `json:"channel"`
}

// Message is the encrypted record stored under a channel's message map.
// Identity is the replica-assigned entry key; ordering is by SentAt with
// ties broken by arrival order.
type Message struct {
	Sender Username `json:"sender"`
	// SentAt is sender wall-clock time in Unix milliseconds.
	SentAt int64  `json:"sent_at"`
	Cipher []byte `json:"cipher"`
	Nonce  []byte `json:"nonce"`
	// Echo carries the sender's own plaintext so it can render its
	// messages without decrypting. Receivers must never trust it for
	// anyone but themselves.
	Echo     string `json:"echo,omitempty"`
	IsFile   bool   `json:"is_file,omitempty"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// CachedMessage pairs a message with its replica entry key for durable
// per-channel caching.
type CachedMessage struct {
	Key string `json:"key"`
	Message
}

// RenderedMessage is one decrypted, display-ready timeline entry.
type RenderedMessage struct {
	Key      string
	Sender   Username
	SentAt   int64
	Text     string
	IsFile   bool
	FileName string
	MimeType string
	Data     []byte
	// Failed marks a message whose ciphertext did not authenticate;
	// Text then holds a sentinel instead of plaintext.
	Failed bool
}

// MaxFileBytes caps file payloads. Larger files are rejected before
// encryption; the codec itself does not chunk.
const MaxFileBytes = 5 << 20
