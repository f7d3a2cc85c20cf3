package classification

import (
	"testing"
	"time"

	"github.com/Veraticus/catalogo/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestRuleCache(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	key := cacheKey{rubro: "bodega", tenantID: "acme"}
	rs := &model.RuleSet{Rules: []model.Rule{{ID: "1"}}}

	t.Run("miss when empty", func(t *testing.T) {
		c := newRuleCache(time.Minute)
		_, ok := c.get(key, base)
		assert.False(t, ok)
	})

	t.Run("hit within ttl", func(t *testing.T) {
		c := newRuleCache(time.Minute)
		c.set(key, rs, base)
		got, ok := c.get(key, base.Add(59*time.Second))
		assert.True(t, ok)
		assert.Same(t, rs, got)
	})

	t.Run("miss at ttl", func(t *testing.T) {
		c := newRuleCache(time.Minute)
		c.set(key, rs, base)
		_, ok := c.get(key, base.Add(time.Minute))
		assert.False(t, ok)
	})

	t.Run("empty rule set is never served", func(t *testing.T) {
		c := newRuleCache(time.Minute)
		c.set(key, &model.RuleSet{}, base)
		_, ok := c.get(key, base)
		assert.False(t, ok)
	})

	t.Run("other key misses", func(t *testing.T) {
		c := newRuleCache(time.Minute)
		c.set(key, rs, base)
		_, ok := c.get(cacheKey{rubro: "bodega"}, base)
		assert.False(t, ok)
	})

	t.Run("default ttl", func(t *testing.T) {
		c := newRuleCache(0)
		assert.Equal(t, DefaultCacheTTL, c.ttl)
	})

	t.Run("clear", func(t *testing.T) {
		c := newRuleCache(time.Minute)
		c.set(key, rs, base)
		assert.Equal(t, 1, c.size())
		c.clear()
		assert.Equal(t, 0, c.size())
	})
}
