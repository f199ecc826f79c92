package feedback

import (
	"context"
	"sync"
	"time"

	"careercoach/ai/internal/models"
)

// ContextCache keeps resolved prompt/reply pairs until they are rated or expire.
// Kept in memory so unrated replies never reach the database.
type ContextCache struct {
	cache map[string]*cacheEntry
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
}

type cacheEntry struct {
	context   *models.RequestContext
	expiresAt time.Time
}

func NewContextCache(ttl time.Duration) *ContextCache {
	return &ContextCache{
		cache: make(map[string]*cacheEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (cc *ContextCache) Set(requestID string, ctx *models.RequestContext) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	cc.cache[requestID] = &cacheEntry{
		context:   ctx,
		expiresAt: cc.now().Add(cc.ttl),
	}
}

// Get returns the context for requestID if it has not expired
func (cc *ContextCache) Get(requestID string) (*models.RequestContext, bool) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	entry, exists := cc.cache[requestID]
	if !exists || cc.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.context, true
}

func (cc *ContextCache) Delete(requestID string) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	delete(cc.cache, requestID)
}

// Run evicts expired entries every interval until ctx is cancelled
func (cc *ContextCache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cc.cleanup()
		}
	}
}

func (cc *ContextCache) cleanup() int {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	now := cc.now()
	removed := 0
	for requestID, entry := range cc.cache {
		if now.After(entry.expiresAt) {
			delete(cc.cache, requestID)
			removed++
		}
	}
	return removed
}

func (cc *ContextCache) Size() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	return len(cc.cache)
}
