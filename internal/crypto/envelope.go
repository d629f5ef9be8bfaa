package crypto

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"veilchat/internal/domain"
	"veilchat/internal/util/memzero"
)

// The current supported version of the wrapped-key blob format.
const envelopeFormatVersion = 1

// ErrWrongPassphrase is returned when the passphrase is incorrect or the
// wrapped key has been modified or corrupted.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted identity")

// blob is the stored JSON structure holding the ciphertext and KDF parameters.
type blob struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

// WrapPrivateKey seals the private key under a passphrase-derived key for
// durable storage.
func WrapPrivateKey(passphrase string, priv domain.X25519Private) ([]byte, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, err
	}
	N, r, p := scryptParamsDefault()
	key, err := scrypt.Key([]byte(passphrase), salt[:], N, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [12]byte // zero nonce; salt-bound key guarantees uniqueness
	ct := aead.Seal(nil, nonce[:], priv.Slice(), salt[:])

	return json.Marshal(blob{
		V:      envelopeFormatVersion,
		Salt:   salt[:],
		N:      N,
		R:      r,
		P:      p,
		Cipher: ct,
	})
}

// UnwrapPrivateKey opens a blob produced by WrapPrivateKey.
func UnwrapPrivateKey(passphrase string, wrapped []byte) (domain.X25519Private, error) {
	var priv domain.X25519Private
	var bl blob
	if err := json.Unmarshal(wrapped, &bl); err != nil {
		return priv, err
	}
	if bl.V > envelopeFormatVersion {
		return priv, fmt.Errorf("unsupported key envelope version %d", bl.V)
	}

	key, err := scrypt.Key([]byte(passphrase), bl.Salt, bl.N, bl.R, bl.P, chacha20poly1305.KeySize)
	if err != nil {
		return priv, err
	}
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return priv, err
	}
	var nonce [12]byte
	pt, err := aead.Open(nil, nonce[:], bl.Cipher, bl.Salt)
	if err != nil {
		return priv, ErrWrongPassphrase
	}
	if len(pt) != len(priv) {
		return priv, ErrWrongPassphrase
	}
	copy(priv[:], pt)
	memzero.Zero(pt)
	return priv, nil
}

// Tunables for scrypt key derivation.
func scryptParamsDefault() (N, r, p int) { return 1 << 15, 8, 1 }
