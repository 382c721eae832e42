package provider

import (
	"crypto/aes"
	"crypto/cipher"
)

// AESGCM implements AES-GCM authenticated encryption with explicit nonces.
//
// Unlike a nonce-prefixing AEAD wrapper, the nonce travels separately from
// the ciphertext because the v3 envelope stores it in its own field.
type AESGCM struct {
	aead cipher.AEAD
}

// NewAESGCM creates a new AES-GCM cipher.
//
// Key must be 16, 24, or 32 bytes for AES-128, AES-192, or AES-256.
func NewAESGCM(key []byte) (*AESGCM, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &AESGCM{aead: aead}, nil
}

// Seal encrypts plaintext under nonce. The returned slice is ciphertext||tag.
func (c *AESGCM) Seal(nonce, plaintext, additionalData []byte) ([]byte, error) {
	if len(nonce) != c.aead.NonceSize() {
		return nil, ErrInvalidNonce
	}
	return c.aead.Seal(nil, nonce, plaintext, additionalData), nil
}

// Open authenticates and decrypts ciphertext||tag under nonce.
func (c *AESGCM) Open(nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(nonce) != c.aead.NonceSize() {
		return nil, ErrInvalidNonce
	}
	return c.aead.Open(nil, nonce, ciphertext, additionalData)
}

// NonceSize returns the nonce size in bytes.
func (c *AESGCM) NonceSize() int {
	return c.aead.NonceSize()
}

// Overhead returns the authentication tag size in bytes.
func (c *AESGCM) Overhead() int {
	return c.aead.Overhead()
}
