package codec

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"veilchat/internal/domain"
)

// NonceSize is the nonce length the codec emits and expects.
const NonceSize = chacha20poly1305.NonceSize

// Envelope carries one sealed payload and the nonce it was sealed with.
type Envelope struct {
	Cipher []byte
	Nonce  []byte
}

// EncryptText seals a UTF-8 message under key with a fresh nonce.
func EncryptText(key domain.SharedKey, plaintext string) (Envelope, error) {
	return seal(key, []byte(plaintext))
}

// DecryptText opens a sealed message. A tag mismatch (wrong key,
// corrupted data, or nonce mismatch) yields domain.ErrDecryptionFailure.
func DecryptText(key domain.SharedKey, env Envelope) (string, error) {
	pt, err := open(key, env)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}

// EncryptFile seals a whole file payload. There is no chunking; callers
// enforce the domain.MaxFileBytes policy cap before reaching here.
func EncryptFile(key domain.SharedKey, data []byte) (Envelope, error) {
	return seal(key, data)
}

// DecryptFile opens a sealed file payload.
func DecryptFile(key domain.SharedKey, env Envelope) ([]byte, error) {
	return open(key, env)
}

func seal(key domain.SharedKey, plaintext []byte) (Envelope, error) {
	aead, err := chacha20poly1305.New(key.Slice())
	if err != nil {
		return Envelope{}, err
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Cipher: aead.Seal(nil, nonce, plaintext, nil),
		Nonce:  nonce,
	}, nil
}

func open(key domain.SharedKey, env Envelope) ([]byte, error) {
	if len(env.Nonce) != NonceSize {
		return nil, fmt.Errorf("%w: bad nonce size %d", domain.ErrDecryptionFailure, len(env.Nonce))
	}
	aead, err := chacha20poly1305.New(key.Slice())
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, env.Nonce, env.Cipher, nil)
	if err != nil {
		return nil, domain.ErrDecryptionFailure
	}
	return pt, nil
}
