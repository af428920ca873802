// Package secure seals personal facts at rest and signs webhook bodies.
package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrMalformedCiphertext is returned by Open for values carrying the
	// sealed prefix that cannot be decoded or authenticated.
	ErrMalformedCiphertext = errors.New("secure: malformed ciphertext")
	// ErrEmptyKey is returned when a Sealer is requested without a secret.
	ErrEmptyKey = errors.New("secure: empty encryption key")
)

const sealedPrefix = "enc:v1:"

// KeyParams tunes the argon2id derivation of the AES-256 key.
type KeyParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
}

// DefaultKeyParams matches the cost used for password hashing.
var DefaultKeyParams = KeyParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
}

// Sealer encrypts values with AES-256-GCM. A nil *Sealer passes values
// through unchanged so storage can run without a configured key.
type Sealer struct {
	aead   cipher.AEAD
	random io.Reader
}

// NewSealer derives the key from secret and salt with DefaultKeyParams.
func NewSealer(secret, salt string) (*Sealer, error) {
	return NewSealerWithParams(secret, salt, DefaultKeyParams)
}

// NewSealerWithParams derives the key from secret and salt with params.
func NewSealerWithParams(secret, salt string, params KeyParams) (*Sealer, error) {
	if secret == "" {
		return nil, ErrEmptyKey
	}
	key := argon2.IDKey([]byte(secret), []byte(salt), params.Iterations, params.Memory, params.Parallelism, 32)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secure: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secure: create gcm: %w", err)
	}
	return &Sealer{aead: aead, random: rand.Reader}, nil
}

// Seal returns enc:v1:<nonce>:<tag>:<ciphertext>, each part hex encoded.
func (s *Sealer) Seal(plaintext []byte) (string, error) {
	if s == nil {
		return string(plaintext), nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(s.random, nonce); err != nil {
		return "", fmt.Errorf("secure: read nonce: %w", err)
	}
	sealed := s.aead.Seal(nil, nonce, plaintext, nil)
	split := len(sealed) - s.aead.Overhead()
	ciphertext, tag := sealed[:split], sealed[split:]

	var b strings.Builder
	b.WriteString(sealedPrefix)
	b.WriteString(hex.EncodeToString(nonce))
	b.WriteByte(':')
	b.WriteString(hex.EncodeToString(tag))
	b.WriteByte(':')
	b.WriteString(hex.EncodeToString(ciphertext))
	return b.String(), nil
}

// Open reverses Seal. Values without the sealed prefix are returned as they
// are, so rows written before a key was configured stay readable.
func (s *Sealer) Open(value string) ([]byte, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return []byte(value), nil
	}
	if s == nil {
		return nil, fmt.Errorf("%w: no key configured", ErrMalformedCiphertext)
	}
	parts := strings.Split(strings.TrimPrefix(value, sealedPrefix), ":")
	if len(parts) != 3 {
		return nil, ErrMalformedCiphertext
	}
	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != s.aead.NonceSize() {
		return nil, ErrMalformedCiphertext
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != s.aead.Overhead() {
		return nil, ErrMalformedCiphertext
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return nil, ErrMalformedCiphertext
	}
	plaintext, err := s.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	return plaintext, nil
}

// IsSealed reports whether value carries the sealed prefix.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, sealedPrefix)
}
