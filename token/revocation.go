package token

import (
	"sync"
	"time"

	apperrors "github.com/jrsteele09/gmail-connect/internal/errors"
)

// RevokedTokenCache remembers signed-out access tokens by jti until they
// would have expired on their own.
type RevokedTokenCache interface {
	Add(jti string, exp time.Time) error
	IsRevoked(jti string) bool
	// Cleanup forgets entries whose tokens have expired and reports how many went.
	Cleanup(now time.Time) int
}

// InMemoryRevokedTokenCache is the per-process revocation list. Sessions are
// per-process too, so a restart loses both together.
type InMemoryRevokedTokenCache struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

func NewInMemoryRevokedTokenCache() *InMemoryRevokedTokenCache {
	return &InMemoryRevokedTokenCache{entries: make(map[string]time.Time)}
}

func (c *InMemoryRevokedTokenCache) Add(jti string, exp time.Time) error {
	if jti == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidToken, "revoke: token has no jti")
	}
	// Already unusable.
	if !exp.After(NowTimeFunc()) {
		return nil
	}
	c.mu.Lock()
	c.entries[jti] = exp
	c.mu.Unlock()
	return nil
}

func (c *InMemoryRevokedTokenCache) IsRevoked(jti string) bool {
	c.mu.RLock()
	_, ok := c.entries[jti]
	c.mu.RUnlock()
	return ok
}

func (c *InMemoryRevokedTokenCache) Cleanup(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for jti, exp := range c.entries {
		if !exp.After(now) {
			delete(c.entries, jti)
			removed++
		}
	}
	return removed
}
