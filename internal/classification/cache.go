package classification

import (
	"sync"
	"time"

	"github.com/Veraticus/catalogo/internal/model"
)

// DefaultCacheTTL is how long a merged rule set is served before a rebuild.
const DefaultCacheTTL = 5 * time.Minute

type cacheKey struct {
	rubro    string
	tenantID string
}

func (k cacheKey) String() string {
	return k.rubro + "\x00" + k.tenantID
}

// cacheEntry holds a merged rule set and the time it was built.
type cacheEntry struct {
	builtAt time.Time
	rules   *model.RuleSet
}

// ruleCache keeps the most recent rule set per (rubro, tenant) pair.
// Entries are overwritten on rebuild and never merged.
type ruleCache struct {
	entries map[cacheKey]cacheEntry
	ttl     time.Duration
	mu      sync.RWMutex
}

func newRuleCache(ttl time.Duration) *ruleCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &ruleCache{
		entries: make(map[cacheKey]cacheEntry),
		ttl:     ttl,
	}
}

// get returns the cached rule set if it is non-empty and younger than the TTL.
func (c *ruleCache) get(key cacheKey, now time.Time) (*model.RuleSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || entry.rules.Len() == 0 {
		return nil, false
	}

	if now.Sub(entry.builtAt) >= c.ttl {
		return nil, false
	}

	return entry.rules, true
}

func (c *ruleCache) set(key cacheKey, rules *model.RuleSet, builtAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		rules:   rules,
		builtAt: builtAt,
	}
}

func (c *ruleCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]cacheEntry)
}

func (c *ruleCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
