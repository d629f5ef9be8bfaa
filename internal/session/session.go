package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"veilchat/internal/crypto"
	"veilchat/internal/domain"
	"veilchat/internal/util/memzero"
)

// Session is one logged-in identity with its in-memory key arena.
type Session struct {
	id  domain.Identity
	dir domain.Directory
	log *logrus.Logger

	mu     sync.RWMutex
	keys   map[domain.Username]domain.SharedKey
	closed bool

	group singleflight.Group
}

// New opens a session for the given identity. A nil logger falls back to
// logrus.New().
func New(id domain.Identity, dir domain.Directory, log *logrus.Logger) *Session {
	if log == nil {
		log = logrus.New()
	}
	return &Session{
		id:   id,
		dir:  dir,
		log:  log,
		keys: make(map[domain.Username]domain.SharedKey),
	}
}

// Username returns the logged-in user.
func (s *Session) Username() domain.Username { return s.id.Username }

// PublicKey returns the logged-in user's public key.
func (s *Session) PublicKey() domain.X25519Public { return s.id.Pub }

// SharedKey returns the symmetric key for the given partner, deriving and
// caching it on first use. A directory not-found propagates to the caller.
func (s *Session) SharedKey(ctx context.Context, partner domain.Username) (domain.SharedKey, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return domain.SharedKey{}, fmt.Errorf("session closed")
	}
	if k, ok := s.keys[partner]; ok {
		s.mu.RUnlock()
		return k, nil
	}
	s.mu.RUnlock()

	// Collapse concurrent derivations for the same partner; the result
	// is deterministic so whoever wins writes the same key.
	v, err, _ := s.group.Do(string(partner), func() (any, error) {
		s.mu.RLock()
		if k, ok := s.keys[partner]; ok {
			s.mu.RUnlock()
			return k, nil
		}
		s.mu.RUnlock()

		pub, err := s.dir.Resolve(ctx, partner)
		if err != nil {
			return domain.SharedKey{}, err
		}
		key, err := crypto.DeriveSharedKey(s.id.Priv, pub)
		if err != nil {
			return domain.SharedKey{}, fmt.Errorf("derive shared key with %q: %w", partner, err)
		}

		s.mu.Lock()
		if !s.closed {
			s.keys[partner] = key
		}
		s.mu.Unlock()
		s.log.WithField("partner", partner).Debug("derived shared key")
		return key, nil
	})
	if err != nil {
		return domain.SharedKey{}, err
	}
	return v.(domain.SharedKey), nil
}

// Close zeroes every cached key and the private half of the identity.
// The session is unusable afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for partner := range s.keys {
		s.keys[partner] = domain.SharedKey{} // overwrite before dropping
		delete(s.keys, partner)
	}
	memzero.Zero(s.id.Priv[:])
}

// Compile-time assertion that Session implements domain.KeySource.
var _ domain.KeySource = (*Session)(nil)
