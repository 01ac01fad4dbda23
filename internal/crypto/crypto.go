// Package crypto seals gift-card claim codes at rest with AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// AES-256 key length
	keyLength = 32
	// hex-encoded key length expected in configuration
	keyHexLength = keyLength * 2
)

// ErrMalformed is returned by Open when the sealed value cannot be decoded or
// fails authentication.
var ErrMalformed = errors.New("malformed sealed value")

// Sealer encrypts short secrets. The output is base64(nonce || ciphertext).
type Sealer struct {
	aead cipher.AEAD
}

// ParseKey decodes a 64-character hex key.
func ParseKey(hexKey string) ([]byte, error) {
	if len(hexKey) != keyHexLength {
		return nil, fmt.Errorf("invalid key length: must be %d hex characters", keyHexLength)
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode key from hex: %w", err)
	}
	return key, nil
}

// NewSealer builds a Sealer from a hex-encoded AES-256 key.
func NewSealer(hexKey string) (*Sealer, error) {
	key, err := ParseKey(hexKey)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts plainText with a fresh random nonce.
func (s *Sealer) Seal(plainText string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plainText), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	n := s.aead.NonceSize()
	if len(raw) < n+s.aead.Overhead() {
		return "", fmt.Errorf("%w: too short", ErrMalformed)
	}
	plain, err := s.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return string(plain), nil
}
