// Package crypto seals configuration secrets so they can sit in a config
// file as "enc:<base64>" values.
package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// Prefix marks a sealed value.
const Prefix = "enc:"

var ErrNoKey = errors.New("sealed value but no CRED_ENC_KEY configured")

type AEAD struct{ aead cipher.AEAD }

// New builds an XChaCha20-Poly1305 sealer. key must be 32 bytes.
func New(key []byte) (*AEAD, error) {
	a, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("CRED_ENC_KEY: %w", err)
	}
	return &AEAD{aead: a}, nil
}

// NewFromBase64 accepts padded or raw standard base64.
func NewFromBase64(s string) (*AEAD, error) {
	key, err := DecodeKey(s)
	if err != nil {
		return nil, err
	}
	return New(key)
}

// Seal returns plaintext as an "enc:" value: a fresh nonce followed by the
// ciphertext, in unpadded base64.
func (a *AEAD) Seal(plaintext string) (string, error) {
	sealed := make([]byte, a.aead.NonceSize(), a.aead.NonceSize()+len(plaintext)+a.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, sealed); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed = a.aead.Seal(sealed, sealed, []byte(plaintext), nil)
	return Prefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Open returns v unchanged unless it carries Prefix. a may be nil when no
// key is configured; opening a sealed value then fails with ErrNoKey.
func (a *AEAD) Open(v string) (string, error) {
	if !IsSealed(v) {
		return v, nil
	}
	if a == nil {
		return "", ErrNoKey
	}
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(v, Prefix))
	if err != nil {
		return "", fmt.Errorf("sealed value is not base64: %w", err)
	}
	n := a.aead.NonceSize()
	if len(raw) < n+a.aead.Overhead() {
		return "", errors.New("sealed value too short")
	}
	plain, err := a.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", fmt.Errorf("open sealed value: %w", err)
	}
	return string(plain), nil
}

func IsSealed(v string) bool { return strings.HasPrefix(v, Prefix) }

// GenerateKey returns a fresh random key, base64 encoded.
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

func DecodeKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if b, err = base64.RawStdEncoding.DecodeString(s); err != nil {
			return nil, fmt.Errorf("CRED_ENC_KEY is not base64: %w", err)
		}
	}
	if len(b) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("CRED_ENC_KEY must decode to %d bytes (got %d)", chacha20poly1305.KeySize, len(b))
	}
	return b, nil
}
