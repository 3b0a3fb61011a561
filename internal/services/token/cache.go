package token

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Issuer exchanges long-lived credentials for a bearer token
type Issuer interface {
	Issue(ctx context.Context) (string, error)
}

// Credential is an issued bearer token and the instant it stops being used
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Valid reports whether the credential can still be presented at now
func (c Credential) Valid(now time.Time) bool {
	return c.Token != "" && now.Before(c.ExpiresAt)
}

// Cache holds one credential for the whole process and refreshes it lazily.
// Concurrent callers that find it expired share a single refresh.
type Cache struct {
	issuer Issuer
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	current Credential
	group   singleflight.Group
}

func NewCache(issuer Issuer, ttl time.Duration) *Cache {
	return &Cache{
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Get returns the cached credential, refreshing it first when expired. The
// refresh itself outlives a cancelled caller so other waiters still get it.
func (c *Cache) Get(ctx context.Context) (Credential, error) {
	if cred, ok := c.cached(); ok {
		return cred, nil
	}

	flight := c.group.DoChan("credential", func() (interface{}, error) {
		// another flight may have finished while we queued
		if cred, ok := c.cached(); ok {
			return cred, nil
		}
		return c.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return Credential{}, ctx.Err()
	case result := <-flight:
		if result.Err != nil {
			return Credential{}, result.Err
		}
		if result.Shared {
			log.Trace().Msg("Shared in-flight credential refresh")
		}
		return result.Val.(Credential), nil
	}
}

// Invalidate forces the next Get to refresh
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = Credential{}
}

// Close drops the cached credential; nothing is persisted
func (c *Cache) Close() {
	c.Invalidate()
}

func (c *Cache) cached() (Credential, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, c.current.Valid(c.now())
}

func (c *Cache) refresh(ctx context.Context) (Credential, error) {
	issuedAt := c.now()

	tok, err := c.issuer.Issue(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to refresh upstream credential")
		return Credential{}, err
	}

	cred := Credential{Token: tok, ExpiresAt: issuedAt.Add(c.ttl)}

	c.mu.Lock()
	c.current = cred
	c.mu.Unlock()

	log.Info().Time("expires_at", cred.ExpiresAt).Msg("Refreshed upstream credential")
	return cred, nil
}
