package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// Sealer protects the token while it sits in the store.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// NoopSealer stores tokens as-is (no key configured).
type NoopSealer struct{}

func (NoopSealer) Seal(plaintext string) (string, error) { return plaintext, nil }
func (NoopSealer) Open(sealed string) (string, error)    { return sealed, nil }

// AEADSealer seals with XChaCha20-Poly1305 and hex-encodes nonce||ciphertext.
type AEADSealer struct {
	key []byte
}

// NewAEADSealer takes a 64-character hex key (32 bytes).
func NewAEADSealer(hexKey string) (*AEADSealer, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid session key hex: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("session key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &AEADSealer{key: key}, nil
}

func (s *AEADSealer) Seal(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(aead.Seal(nonce, nonce, []byte(plaintext), nil)), nil
}

func (s *AEADSealer) Open(sealed string) (string, error) {
	buf, err := hex.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("failed to decode hex: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	if len(buf) < aead.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := buf[:aead.NonceSize()], buf[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plain), nil
}
