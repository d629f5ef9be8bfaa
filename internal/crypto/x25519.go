package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"veilchat/internal/domain"
)

// sharedKeyInfo binds derived keys to this protocol version.
const sharedKeyInfo = "veilchat shared key v1"

// GenerateX25519 returns a fresh Curve25519 key pair.
// The private key is clamped per RFC 7748.
func GenerateX25519() (priv domain.X25519Private, pub domain.X25519Public, err error) {
	if _, err = rand.Read(priv[:]); err != nil {
		return
	}
	clamp(&priv)
	pb, err := curve25519.X25519(priv.Slice(), curve25519.Basepoint)
	if err != nil {
		return
	}
	copy(pub[:], pb)
	return
}

// DH computes X25519 Diffie–Hellman.
func DH(priv domain.X25519Private, pub domain.X25519Public) (out [32]byte, err error) {
	secret, err := curve25519.X25519(priv.Slice(), pub.Slice())
	if err != nil {
		return out, err
	}
	copy(out[:], secret)
	return out, nil
}

// DeriveSharedKey runs X25519 between one party's private key and the
// other's public key, then expands the raw secret with HKDF-SHA256.
// The result is symmetric: DeriveSharedKey(aPriv, bPub) equals
// DeriveSharedKey(bPriv, aPub).
func DeriveSharedKey(priv domain.X25519Private, pub domain.X25519Public) (domain.SharedKey, error) {
	var key domain.SharedKey
	dh, err := DH(priv, pub)
	if err != nil {
		return key, err
	}
	r := hkdf.New(sha256.New, dh[:], nil, []byte(sharedKeyInfo))
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return key, fmt.Errorf("hkdf expand: %w", err)
	}
	return key, nil
}

// Fingerprint returns a short hex fingerprint of the public key.
func Fingerprint(pub domain.X25519Public) domain.Fingerprint {
	sum := sha256.Sum256(pub.Slice())
	return domain.Fingerprint(hex.EncodeToString(sum[:10]))
}

func clamp(k *domain.X25519Private) {
	kb := k[:]
	kb[0] &= 248
	kb[31] &= 127
	kb[31] |= 64
}
