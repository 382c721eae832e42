package keyderiv

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/yndnr/securestore/pkg/token"
)

// IdentityContext holds the per-process identity used to salt every key.
//
// Construct exactly one at process start and share it. The SessionId is
// fixed for its lifetime; the DeviceId is filled in lazily by
// Service.GetOrCreateDeviceID and cached.
type IdentityContext struct {
	sessionID string

	mu       sync.Mutex
	deviceID string
}

// NewIdentityContext creates an identity with a fresh random SessionId.
func NewIdentityContext() *IdentityContext {
	id, err := token.NewSessionID()
	if err != nil {
		// crypto/rand failed; the session must still be unique to this process.
		id = token.Hash(fmt.Sprintf("%d:%d:session", time.Now().UnixNano(), os.Getpid()))
	}
	return &IdentityContext{sessionID: id}
}

// NewIdentityContextWithSession creates an identity with a fixed SessionId.
// Two contexts with different ids model two process lifetimes.
func NewIdentityContextWithSession(sessionID string) *IdentityContext {
	return &IdentityContext{sessionID: sessionID}
}

// SessionID returns the session identifier.
func (c *IdentityContext) SessionID() string {
	return c.sessionID
}

// CachedDeviceID returns the DeviceId if it has been resolved already.
func (c *IdentityContext) CachedDeviceID() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deviceID, c.deviceID != ""
}
