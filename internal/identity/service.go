package identity

import (
	"context"
	"fmt"
	"unicode"

	"github.com/sirupsen/logrus"

	"veilchat/internal/cache"
	"veilchat/internal/crypto"
	"veilchat/internal/domain"
)

// minPassphraseLength defines the minimum number of characters required
// for a passphrase.
const minPassphraseLength = 12

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)

	// ErrIdentityExists is returned when signup finds a local identity record.
	ErrIdentityExists = fmt.Errorf("an identity already exists here")

	// ErrNoIdentity is returned when login finds no local identity record.
	// Keys are not synced between devices; sign up on this device first.
	ErrNoIdentity = fmt.Errorf("no local identity; run signup first")
)

// Service creates and loads identities using the durable cache and the
// key directory.
type Service struct {
	cache domain.DurableCache
	dir   domain.Directory
	log   *logrus.Logger
}

// New returns an identity service. A nil logger falls back to logrus.New().
func New(c domain.DurableCache, dir domain.Directory, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{cache: c, dir: dir, log: log}
}

// Signup generates a fresh identity, persists it with the private key
// wrapped under the passphrase, and publishes the public key. Identity
// storage failure is fatal here: without the record the account would be
// unrecoverable after restart.
func (s *Service) Signup(ctx context.Context, username domain.Username, passphrase string) (domain.Identity, domain.Fingerprint, error) {
	if !domain.ValidUsername(username) {
		return domain.Identity{}, "", fmt.Errorf("invalid username %q", username)
	}
	if !isSecurePassphrase(passphrase) {
		return domain.Identity{}, "", ErrWeakPassphrase
	}

	// An unreadable record still means a key lives here; overwriting it
	// would destroy the only copy of the private key.
	var existing domain.IdentityRecord
	ok, err := s.cache.Get(cache.IdentityKey(username), &existing)
	if err != nil {
		return domain.Identity{}, "", fmt.Errorf("inspect existing identity: %w", err)
	}
	if ok {
		return domain.Identity{}, "", ErrIdentityExists
	}

	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.Identity{}, "", err
	}
	wrapped, err := crypto.WrapPrivateKey(passphrase, priv)
	if err != nil {
		return domain.Identity{}, "", err
	}

	rec := domain.IdentityRecord{Username: username, Pub: pub, WrappedPriv: wrapped}
	if err := s.cache.Set(cache.IdentityKey(username), rec); err != nil {
		return domain.Identity{}, "", fmt.Errorf("persist identity: %w", err)
	}
	if err := s.dir.Publish(ctx, username, pub); err != nil {
		return domain.Identity{}, "", err
	}

	id := domain.Identity{Username: username, Pub: pub, Priv: priv}
	s.log.WithField("username", username).Info("identity created and published")
	return id, crypto.Fingerprint(pub), nil
}

// Login unwraps the locally stored private key. A wrong passphrase
// surfaces as crypto.ErrWrongPassphrase.
func (s *Service) Login(ctx context.Context, username domain.Username, passphrase string) (domain.Identity, error) {
	var rec domain.IdentityRecord
	ok, err := s.cache.Get(cache.IdentityKey(username), &rec)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("load identity: %w", err)
	}
	if !ok {
		return domain.Identity{}, ErrNoIdentity
	}

	priv, err := crypto.UnwrapPrivateKey(passphrase, rec.WrappedPriv)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{Username: rec.Username, Pub: rec.Pub, Priv: priv}, nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}
