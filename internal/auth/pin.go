package auth

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPINNotEnrolled = errors.New("no PIN enrolled for operator")
	ErrPINExpired     = errors.New("cached PIN expired")
	ErrPINMismatch    = errors.New("PIN does not match")
)

type pinEntry struct {
	hash      []byte
	expiresAt time.Time
}

// PINCache lets an already-authenticated operator re-unlock the
// terminal with a short PIN while the backend is unreachable. Entries
// hold only a bcrypt hash and expire after the configured TTL.
type PINCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]pinEntry
}

func NewPINCache(ttl time.Duration) *PINCache {
	return &PINCache{
		ttl:     ttl,
		entries: make(map[string]pinEntry),
	}
}

func (c *PINCache) Enroll(operatorID, pin string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[operatorID] = pinEntry{
		hash:      hash,
		expiresAt: time.Now().Add(c.ttl),
	}
	return nil
}

func (c *PINCache) Verify(operatorID, pin string) error {
	c.mu.Lock()
	entry, ok := c.entries[operatorID]
	c.mu.Unlock()

	if !ok {
		return ErrPINNotEnrolled
	}
	if time.Now().After(entry.expiresAt) {
		c.Clear(operatorID)
		return ErrPINExpired
	}
	if err := bcrypt.CompareHashAndPassword(entry.hash, []byte(pin)); err != nil {
		return ErrPINMismatch
	}
	return nil
}

func (c *PINCache) Clear(operatorID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, operatorID)
}
