// Package session – credential sealing.
//
// API keys are encrypted before they touch the session store so a leaked
// Redis dump or memory snapshot does not expose provider credentials in the
// clear. Sealing uses XChaCha20-Poly1305 with a random per-record nonce,
// encoded as base64url(nonce || ciphertext).
package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the required byte length of the sealing key.
const KeySize = chacha20poly1305.KeySize

// ErrSealedKey is returned when a stored credential cannot be decrypted,
// typically because the sealing key changed between writes.
var ErrSealedKey = errors.New("cannot open sealed credential")

type sealer struct {
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
}

func newSealer(key []byte) (*sealer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("sealing key must be %d bytes, got %d", KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &sealer{aead: aead}, nil
}

// seal encrypts plain and returns base64url(nonce || ciphertext).
func (s *sealer) seal(plain string) (string, error) {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	ct := s.aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.RawURLEncoding.EncodeToString(ct), nil
}

// open reverses seal.
func (s *sealer) open(sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrSealedKey
	}
	if len(raw) < chacha20poly1305.NonceSizeX {
		return "", ErrSealedKey
	}
	nonce, ct := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]
	plain, err := s.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", ErrSealedKey
	}
	return string(plain), nil
}

// NewKey generates a random sealing key. Deployments should persist the key
// (SESSION_SEAL_KEY) so sessions survive restarts; an ephemeral key merely
// invalidates all sessions on reboot.
func NewKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}
