package provider

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the derived key length in bytes (AES-256 / HMAC-SHA256).
	KeySize = 32

	// NonceSize is the AES-GCM nonce length in bytes (96 bits).
	NonceSize = 12

	// TagSize is the AES-GCM authentication tag length in bytes.
	TagSize = 16
)

// Provider errors.
var (
	ErrUnavailable    = errors.New("provider: cryptographic provider unavailable")
	ErrInvalidKeySize = errors.New("provider: invalid key size")
	ErrInvalidNonce   = errors.New("provider: invalid nonce size")
	ErrInvalidParams  = errors.New("provider: invalid derivation parameters")
)

// Provider is a platform cryptographic provider.
type Provider interface {
	// Name identifies the provider in logs and diagnostics.
	Name() string

	// RandomBytes returns n bytes from a CSPRNG.
	RandomBytes(n int) ([]byte, error)

	// PBKDF2 derives keyLen bytes from password and salt using HMAC-SHA256.
	PBKDF2(password, salt []byte, iterations, keyLen int) ([]byte, error)

	// HMACSign computes HMAC-SHA256 of data.
	HMACSign(key, data []byte) ([]byte, error)

	// HMACVerify reports whether mac is a valid HMAC-SHA256 of data.
	HMACVerify(key, data, mac []byte) (bool, error)

	// Seal encrypts plaintext with AES-GCM under key and nonce.
	Seal(key, nonce, plaintext, additionalData []byte) ([]byte, error)

	// Open decrypts and authenticates ciphertext produced by Seal.
	Open(key, nonce, ciphertext, additionalData []byte) ([]byte, error)

	// Digest computes SHA-256 of data.
	Digest(data []byte) ([]byte, error)
}

// Native implements Provider using Go's crypto packages.
type Native struct {
	random io.Reader
}

// Option configures a Native provider.
type Option func(*Native)

// WithRandom overrides the randomness source.
func WithRandom(r io.Reader) Option {
	return func(n *Native) {
		n.random = r
	}
}

// NewNative creates a Native provider.
func NewNative(opts ...Option) *Native {
	n := &Native{random: rand.Reader}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Name returns the provider name.
func (n *Native) Name() string {
	return "native"
}

// RandomBytes returns n random bytes.
func (n *Native) RandomBytes(size int) ([]byte, error) {
	if size <= 0 {
		return nil, ErrInvalidParams
	}
	b := make([]byte, size)
	if _, err := io.ReadFull(n.random, b); err != nil {
		return nil, err
	}
	return b, nil
}

// PBKDF2 derives a key with PBKDF2-HMAC-SHA256.
func (n *Native) PBKDF2(password, salt []byte, iterations, keyLen int) ([]byte, error) {
	if iterations <= 0 || keyLen <= 0 || len(salt) == 0 {
		return nil, ErrInvalidParams
	}
	return pbkdf2.Key(password, salt, iterations, keyLen, sha256.New), nil
}

// HMACSign computes HMAC-SHA256.
func (n *Native) HMACSign(key, data []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrInvalidKeySize
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil), nil
}

// HMACVerify checks an HMAC-SHA256 tag in constant time.
func (n *Native) HMACVerify(key, data, tag []byte) (bool, error) {
	expected, err := n.HMACSign(key, data)
	if err != nil {
		return false, err
	}
	return hmac.Equal(expected, tag), nil
}

// Seal encrypts with AES-GCM.
func (n *Native) Seal(key, nonce, plaintext, additionalData []byte) ([]byte, error) {
	c, err := NewAESGCM(key)
	if err != nil {
		return nil, err
	}
	return c.Seal(nonce, plaintext, additionalData)
}

// Open decrypts with AES-GCM.
func (n *Native) Open(key, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	c, err := NewAESGCM(key)
	if err != nil {
		return nil, err
	}
	return c.Open(nonce, ciphertext, additionalData)
}

// Digest computes SHA-256.
func (n *Native) Digest(data []byte) ([]byte, error) {
	sum := sha256.Sum256(data)
	return sum[:], nil
}

// Unavailable is a Provider whose every operation fails.
type Unavailable struct{}

// Name returns the provider name.
func (Unavailable) Name() string { return "unavailable" }

func (Unavailable) RandomBytes(int) ([]byte, error) { return nil, ErrUnavailable }

func (Unavailable) PBKDF2([]byte, []byte, int, int) ([]byte, error) { return nil, ErrUnavailable }

func (Unavailable) HMACSign([]byte, []byte) ([]byte, error) { return nil, ErrUnavailable }

func (Unavailable) HMACVerify([]byte, []byte, []byte) (bool, error) { return false, ErrUnavailable }

func (Unavailable) Seal([]byte, []byte, []byte, []byte) ([]byte, error) { return nil, ErrUnavailable }

func (Unavailable) Open([]byte, []byte, []byte, []byte) ([]byte, error) { return nil, ErrUnavailable }

func (Unavailable) Digest([]byte) ([]byte, error) { return nil, ErrUnavailable }

// ByName returns the provider registered under name ("native" or "none").
func ByName(name string) (Provider, error) {
	switch name {
	case "", "native":
		return NewNative(), nil
	case "none", "unavailable":
		return Unavailable{}, nil
	default:
		return nil, errors.New("unknown crypto provider: " + name)
	}
}
