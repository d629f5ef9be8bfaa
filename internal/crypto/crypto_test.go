package crypto_test

import (
	"errors"
	"testing"

	"veilchat/internal/crypto"
)

func TestDeriveSharedKeySymmetry(t *testing.T) {
	alicePriv, alicePub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	bobPriv, bobPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}

	aliceSide, err := crypto.DeriveSharedKey(alicePriv, bobPub)
	if err != nil {
		t.Fatalf("DeriveSharedKey (alice): %v", err)
	}
	bobSide, err := crypto.DeriveSharedKey(bobPriv, alicePub)
	if err != nil {
		t.Fatalf("DeriveSharedKey (bob): %v", err)
	}
	if aliceSide != bobSide {
		t.Fatal("shared keys differ between the two sides")
	}
}

func TestDeriveSharedKeyDistinctPerPair(t *testing.T) {
	alicePriv, _, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	_, bobPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	_, carolPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}

	withBob, err := crypto.DeriveSharedKey(alicePriv, bobPub)
	if err != nil {
		t.Fatalf("DeriveSharedKey: %v", err)
	}
	withCarol, err := crypto.DeriveSharedKey(alicePriv, carolPub)
	if err != nil {
		t.Fatalf("DeriveSharedKey: %v", err)
	}
	if withBob == withCarol {
		t.Fatal("shared keys for different partners must differ")
	}
}

func TestWrapUnwrapPrivateKey(t *testing.T) {
	priv, _, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}

	wrapped, err := crypto.WrapPrivateKey("correct horse battery", priv)
	if err != nil {
		t.Fatalf("WrapPrivateKey: %v", err)
	}
	got, err := crypto.UnwrapPrivateKey("correct horse battery", wrapped)
	if err != nil {
		t.Fatalf("UnwrapPrivateKey: %v", err)
	}
	if got != priv {
		t.Fatal("unwrapped key does not match the original")
	}
}

func TestUnwrapWrongPassphrase(t *testing.T) {
	priv, _, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	wrapped, err := crypto.WrapPrivateKey("correct horse battery", priv)
	if err != nil {
		t.Fatalf("WrapPrivateKey: %v", err)
	}
	if _, err := crypto.UnwrapPrivateKey("incorrect horse battery", wrapped); !errors.Is(err, crypto.ErrWrongPassphrase) {
		t.Fatalf("want ErrWrongPassphrase, got %v", err)
	}
}

func TestUnwrapTamperedBlob(t *testing.T) {
	priv, _, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	wrapped, err := crypto.WrapPrivateKey("correct horse battery", priv)
	if err != nil {
		t.Fatalf("WrapPrivateKey: %v", err)
	}
	// Flip a bit inside the base64 ciphertext field.
	tampered := append([]byte(nil), wrapped...)
	for i := len(tampered) - 10; i > 0; i-- {
		if tampered[i] >= 'a' && tampered[i] < 'z' {
			tampered[i]++
			break
		}
	}
	if _, err := crypto.UnwrapPrivateKey("correct horse battery", tampered); err == nil {
		t.Fatal("tampered blob must not unwrap")
	}
}

func TestFingerprintIsStable(t *testing.T) {
	_, pub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	a := crypto.Fingerprint(pub)
	b := crypto.Fingerprint(pub)
	if a != b {
		t.Fatal("fingerprint must be deterministic")
	}
	if len(a) != 20 {
		t.Fatalf("want 20 hex chars, got %d", len(a))
	}
}
