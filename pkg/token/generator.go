// Package token provides identifier generation and hashing utilities.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// DeviceIDLength is the DeviceId length in random bytes.
	DeviceIDLength = 24

	// SessionIDLength is the SessionId length in random bytes.
	SessionIDLength = 32

	// StorageIDLength is the length of an encoded storage id.
	StorageIDLength = 26
)

// ErrInvalidLength is returned for non-positive identifier lengths.
var ErrInvalidLength = errors.New("token: length must be positive")

// GenerateHex returns length random bytes, hex encoded.
func GenerateHex(length int) (string, error) {
	b, err := GenerateBytes(length)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateBytes generates random bytes.
func GenerateBytes(length int) ([]byte, error) {
	if length <= 0 {
		return nil, ErrInvalidLength
	}
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// NewDeviceID returns a fresh DeviceId.
func NewDeviceID() (string, error) {
	return GenerateHex(DeviceIDLength)
}

// NewSessionID returns a fresh SessionId.
func NewSessionID() (string, error) {
	return GenerateHex(SessionIDLength)
}

// NewStorageID returns a lowercase ULID.
func NewStorageID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return strings.ToLower(id.String()), nil
}

// IsValidStorageID reports whether id is a lowercase ULID.
func IsValidStorageID(id string) bool {
	if len(id) != StorageIDLength || id != strings.ToLower(id) {
		return false
	}
	_, err := ulid.ParseStrict(strings.ToUpper(id))
	return err == nil
}

// IsHex reports whether s is non-empty lowercase hex of exactly byteLen bytes.
func IsHex(s string, byteLen int) bool {
	if len(s) != byteLen*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil && s == strings.ToLower(s)
}
