// Package tokencache avoids re-prompting for a second factor on every
// activation: MFA-derived session tokens are kept in memory and persisted
// immediately, keyed by source identity and MFA device.
package tokencache

import (
	"fmt"
	"sync"
	"time"

	log "github.com/charmbracelet/log"

	"github.com/chukul/sessionctl/internal/clock"
	"github.com/chukul/sessionctl/internal/provider"
)

// UsableMargin is the minimum remaining validity for a cached token to be
// handed out. A token closer to expiry than this would be found expired
// mid-operation by the caller.
const UsableMargin = 5 * time.Minute

// Entry is one persisted cached token.
type Entry struct {
	AccessKeyID     string    `json:"access_key_id"`
	SecretAccessKey string    `json:"secret_access_key"`
	SessionToken    string    `json:"session_token"`
	Expiration      time.Time `json:"expiration"`
}

// Key derives the stable cache key for a (source identity, MFA device) pair.
func Key(sourceIdentity, mfaSerial string) string {
	return fmt.Sprintf("%s-%s", sourceIdentity, mfaSerial)
}

// Cache is the MFA token cache. Every Put persists the whole map through the
// backend before returning; entries already expired at load time are dropped.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry
	backend Backend
	clk     clock.Clock
}

// New loads the cache from the backend, silently dropping expired entries.
func New(backend Backend, clk clock.Clock) (*Cache, error) {
	if clk == nil {
		clk = clock.System{}
	}

	entries, err := backend.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load token cache: %w", err)
	}

	now := clk.Now()
	for key, e := range entries {
		if !e.Expiration.After(now) {
			delete(entries, key)
		}
	}

	return &Cache{entries: entries, backend: backend, clk: clk}, nil
}

// HasValid reports whether a usable token exists for the pair: present and
// expiring more than UsableMargin from now.
func (c *Cache) HasValid(sourceIdentity, mfaSerial string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validLocked(Key(sourceIdentity, mfaSerial))
}

// Get returns the cached credentials for the pair, only if HasValid would.
// Expired entries found on the way are pruned lazily.
func (c *Cache) Get(sourceIdentity, mfaSerial string) (*provider.Credentials, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(sourceIdentity, mfaSerial)
	if !c.validLocked(key) {
		if e, ok := c.entries[key]; ok && !e.Expiration.After(c.clk.Now()) {
			delete(c.entries, key)
			c.persistLocked()
		}
		return nil, false
	}

	e := c.entries[key]
	return &provider.Credentials{
		AccessKeyID:     e.AccessKeyID,
		SecretAccessKey: e.SecretAccessKey,
		SessionToken:    e.SessionToken,
		Expiration:      e.Expiration,
	}, true
}

// Put stores or overwrites the token for the pair and persists immediately,
// so the cache survives process restarts.
func (c *Cache) Put(sourceIdentity, mfaSerial string, creds *provider.Credentials) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[Key(sourceIdentity, mfaSerial)] = Entry{
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
		SessionToken:    creds.SessionToken,
		Expiration:      creds.Expiration,
	}
	return c.persistLocked()
}

// PruneExpired removes entries whose expiry has passed and returns how many
// were dropped.
func (c *Cache) PruneExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clk.Now()
	count := 0
	for key, e := range c.entries {
		if !e.Expiration.After(now) {
			delete(c.entries, key)
			count++
		}
	}
	if count > 0 {
		c.persistLocked()
		log.Debug("pruned expired cached tokens", "count", count)
	}
	return count
}

// Clear empties memory and deletes the persisted cache file. Live session
// credentials in the credentials file are untouched.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = map[string]Entry{}
	return c.backend.Delete()
}

// Len returns the number of cached entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) validLocked(key string) bool {
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	return e.Expiration.After(c.clk.Now().Add(UsableMargin))
}

func (c *Cache) persistLocked() error {
	if err := c.backend.Save(c.entries); err != nil {
		return fmt.Errorf("failed to persist token cache: %w", err)
	}
	return nil
}
