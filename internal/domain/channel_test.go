package domain_test

import (
	"testing"

	"veilchat/internal/domain"
)

func TestChannelForIsCommutative(t *testing.T) {
	ab, err := domain.ChannelFor("alice", "bob")
	if err != nil {
		t.Fatalf("ChannelFor(alice, bob): %v", err)
	}
	ba, err := domain.ChannelFor("bob", "alice")
	if err != nil {
		t.Fatalf("ChannelFor(bob, alice): %v", err)
	}
	if ab != ba {
		t.Fatalf("channel ids differ: %q vs %q", ab, ba)
	}
	if ab != domain.ChannelID("alice:bob") {
		t.Fatalf("want alice:bob, got %q", ab)
	}
}

func TestChannelForRejectsSelf(t *testing.T) {
	if _, err := domain.ChannelFor("alice", "alice"); err == nil {
		t.Fatal("want error for a self channel")
	}
}

func TestChannelForRejectsBadUsernames(t *testing.T) {
	bad := []domain.Username{"", "Alice", "a:b", "has space", "x/y"}
	for _, u := range bad {
		if _, err := domain.ChannelFor(u, "bob"); err == nil {
			t.Errorf("ChannelFor(%q, bob): want error", u)
		}
	}
}

func TestPartnerOf(t *testing.T) {
	ch := domain.ChannelID("alice:bob")

	if p, ok := domain.PartnerOf(ch, "alice"); !ok || p != "bob" {
		t.Fatalf("PartnerOf(alice) = %q, %v", p, ok)
	}
	if p, ok := domain.PartnerOf(ch, "bob"); !ok || p != "alice" {
		t.Fatalf("PartnerOf(bob) = %q, %v", p, ok)
	}
	if _, ok := domain.PartnerOf(ch, "carol"); ok {
		t.Fatal("carol is not a member of alice:bob")
	}
	if _, ok := domain.PartnerOf(domain.ChannelID("nodelimiter"), "alice"); ok {
		t.Fatal("malformed channel id should not resolve a partner")
	}
}
