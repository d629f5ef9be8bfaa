package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"veilchat/internal/crypto"
	"veilchat/internal/domain"
	"veilchat/internal/session"
)

// fakeDirectory serves public keys from a map and counts resolutions.
// release, when non-nil, blocks every Resolve until closed.
type fakeDirectory struct {
	mu       sync.Mutex
	pubs     map[domain.Username]domain.X25519Public
	resolves int
	release  chan struct{}
}

func (d *fakeDirectory) Publish(ctx context.Context, u domain.Username, pub domain.X25519Public) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pubs[u] = pub
	return nil
}

func (d *fakeDirectory) Resolve(ctx context.Context, u domain.Username) (domain.X25519Public, error) {
	d.mu.Lock()
	d.resolves++
	pub, ok := d.pubs[u]
	release := d.release
	d.mu.Unlock()

	if release != nil {
		<-release
	}
	if !ok {
		return domain.X25519Public{}, domain.ErrPartnerNotFound
	}
	return pub, nil
}

func (d *fakeDirectory) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resolves
}

func makeIdentity(t *testing.T, u domain.Username) domain.Identity {
	t.Helper()
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	return domain.Identity{Username: u, Pub: pub, Priv: priv}
}

func TestSharedKeyMatchesAcrossParties(t *testing.T) {
	alice := makeIdentity(t, "alice")
	bob := makeIdentity(t, "bob")
	dir := &fakeDirectory{pubs: map[domain.Username]domain.X25519Public{
		"alice": alice.Pub,
		"bob":   bob.Pub,
	}}

	sa := session.New(alice, dir, nil)
	defer sa.Close()
	sb := session.New(bob, dir, nil)
	defer sb.Close()

	ctx := context.Background()
	ka, err := sa.SharedKey(ctx, "bob")
	if err != nil {
		t.Fatalf("alice SharedKey: %v", err)
	}
	kb, err := sb.SharedKey(ctx, "alice")
	if err != nil {
		t.Fatalf("bob SharedKey: %v", err)
	}
	if ka != kb {
		t.Fatal("both parties must derive the same shared key")
	}
}

func TestSharedKeyCacheHitSkipsDirectory(t *testing.T) {
	alice := makeIdentity(t, "alice")
	bob := makeIdentity(t, "bob")
	dir := &fakeDirectory{pubs: map[domain.Username]domain.X25519Public{"bob": bob.Pub}}

	s := session.New(alice, dir, nil)
	defer s.Close()

	ctx := context.Background()
	first, err := s.SharedKey(ctx, "bob")
	if err != nil {
		t.Fatalf("SharedKey: %v", err)
	}
	second, err := s.SharedKey(ctx, "bob")
	if err != nil {
		t.Fatalf("SharedKey: %v", err)
	}
	if first != second {
		t.Fatal("cache returned a different key")
	}
	if got := dir.count(); got != 1 {
		t.Fatalf("want exactly one directory resolve, got %d", got)
	}
}

func TestConcurrentDerivationsSingleFlight(t *testing.T) {
	alice := makeIdentity(t, "alice")
	bob := makeIdentity(t, "bob")
	dir := &fakeDirectory{
		pubs:    map[domain.Username]domain.X25519Public{"bob": bob.Pub},
		release: make(chan struct{}),
	}

	s := session.New(alice, dir, nil)
	defer s.Close()

	const callers = 10
	keys := make(chan domain.SharedKey, callers)
	errs := make(chan error, callers)
	var started sync.WaitGroup
	started.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			started.Done()
			k, err := s.SharedKey(context.Background(), "bob")
			keys <- k
			errs <- err
		}()
	}
	started.Wait()
	close(dir.release)

	var first domain.SharedKey
	for i := 0; i < callers; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("SharedKey: %v", err)
		}
		k := <-keys
		if i == 0 {
			first = k
			continue
		}
		if k != first {
			t.Fatal("concurrent callers observed divergent keys")
		}
	}
	if got := dir.count(); got != 1 {
		t.Fatalf("want one collapsed derivation, got %d resolves", got)
	}
}

func TestUnknownPartnerPropagates(t *testing.T) {
	alice := makeIdentity(t, "alice")
	dir := &fakeDirectory{pubs: map[domain.Username]domain.X25519Public{}}

	s := session.New(alice, dir, nil)
	defer s.Close()

	if _, err := s.SharedKey(context.Background(), "ghost"); !errors.Is(err, domain.ErrPartnerNotFound) {
		t.Fatalf("want ErrPartnerNotFound, got %v", err)
	}
}

func TestClosedSessionRefusesDerivation(t *testing.T) {
	alice := makeIdentity(t, "alice")
	bob := makeIdentity(t, "bob")
	dir := &fakeDirectory{pubs: map[domain.Username]domain.X25519Public{"bob": bob.Pub}}

	s := session.New(alice, dir, nil)
	s.Close()
	if _, err := s.SharedKey(context.Background(), "bob"); err == nil {
		t.Fatal("closed session must not hand out keys")
	}
}
