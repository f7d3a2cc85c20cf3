package classification

import (
	"context"
	"log/slog"
	"time"

	"github.com/Veraticus/catalogo/internal/model"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DocumentStore reads rule collections by logical path.
type DocumentStore interface {
	// ReadCollection returns every document in the collection, in stored order.
	// A missing collection is an empty result, not an error.
	ReadCollection(ctx context.Context, path string) ([]model.RuleDocument, error)
}

// tier slots, in merge order.
const (
	slotGlobal = iota
	slotRubro
	slotTenant
	slotCount
)

var slotTiers = [slotCount]model.Tier{model.TierGlobal, model.TierRubro, model.TierTenant}

// Loader builds merged rule sets from a DocumentStore and caches them.
type Loader struct {
	store        DocumentStore
	cache        *ruleCache
	now          func() time.Time
	seed         func() []model.RuleDocument
	group        singleflight.Group
	ttl          time.Duration
	singleFlight bool
	foldAccents  bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithTTL sets how long a merged rule set stays fresh.
func WithTTL(ttl time.Duration) Option {
	return func(l *Loader) { l.ttl = ttl }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

// WithSingleFlight coalesces concurrent rebuilds of the same rule set.
// When disabled, callers that see a stale cache at the same time each
// rebuild and the last one to finish wins.
func WithSingleFlight(enabled bool) Option {
	return func(l *Loader) { l.singleFlight = enabled }
}

// WithFoldAccents makes patterns and input text accent-insensitive.
func WithFoldAccents(enabled bool) Option {
	return func(l *Loader) { l.foldAccents = enabled }
}

// WithSeed overrides the compiled-in global rules used as a fallback.
func WithSeed(seed func() []model.RuleDocument) Option {
	return func(l *Loader) { l.seed = seed }
}

// NewLoader creates a Loader reading from store.
func NewLoader(store DocumentStore, opts ...Option) *Loader {
	l := &Loader{
		store:        store,
		now:          time.Now,
		seed:         SeedDocuments,
		ttl:          DefaultCacheTTL,
		singleFlight: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.cache = newRuleCache(l.ttl)
	return l
}

// LoadRules returns the merged rule set for the rubro and tenant in opts.
// It never fails: unreadable collections count as empty, and a global
// tier with no usable rules is replaced by the seed rules. Cancelling ctx
// does not abort a rebuild.
func (l *Loader) LoadRules(ctx context.Context, opts model.LoadOptions) *model.RuleSet {
	opts = opts.WithDefaults()
	key := cacheKey{rubro: opts.Rubro, tenantID: opts.TenantID}

	if rs, ok := l.cache.get(key, l.now()); ok {
		return rs
	}

	// The rebuilt set is cached for every caller, so it is not cut short
	// by this caller's cancellation or deadline.
	ctx = context.WithoutCancel(ctx)

	if !l.singleFlight {
		return l.rebuild(ctx, opts, key)
	}

	v, _, _ := l.group.Do(key.String(), func() (any, error) {
		// Another caller may have finished a rebuild while we waited.
		if rs, ok := l.cache.get(key, l.now()); ok {
			return rs, nil
		}
		return l.rebuild(ctx, opts, key), nil
	})
	return v.(*model.RuleSet)
}

// Invalidate drops every cached rule set.
func (l *Loader) Invalidate() {
	l.cache.clear()
}

func (l *Loader) rebuild(ctx context.Context, opts model.LoadOptions, key cacheKey) *model.RuleSet {
	tiers := l.fetchTiers(ctx, opts)

	var rules [slotCount][]model.Rule
	for slot, docs := range tiers {
		rules[slot] = NormalizeDocuments(docs, slotTiers[slot], l.foldAccents)
	}

	// An unreadable, empty or entirely malformed global tier falls back to the seed.
	if len(rules[slotGlobal]) == 0 {
		slog.Debug("Global rules empty, using seed rules", "documents", len(tiers[slotGlobal]))
		rules[slotGlobal] = NormalizeDocuments(l.seed(), model.TierGlobal, l.foldAccents)
	}

	builtAt := l.now()
	rs := &model.RuleSet{
		Rubro:       opts.Rubro,
		TenantID:    opts.TenantID,
		BuiltAt:     builtAt,
		FoldAccents: l.foldAccents,
	}
	for _, tierRules := range rules {
		rs.Rules = append(rs.Rules, tierRules...)
	}

	l.cache.set(key, rs, builtAt)

	slog.Debug("Rebuilt classification rules",
		"rubro", opts.Rubro,
		"tenant", opts.TenantID,
		"rules", len(rs.Rules))

	return rs
}

// fetchTiers reads the tier collections concurrently. Each goroutine owns
// one slot, so completion order does not affect the merge order.
func (l *Loader) fetchTiers(ctx context.Context, opts model.LoadOptions) [slotCount][]model.RuleDocument {
	var tiers [slotCount][]model.RuleDocument
	if l.store == nil {
		return tiers
	}

	var paths [slotCount]string
	paths[slotGlobal] = model.GlobalCollection
	paths[slotRubro] = model.RubroCollection(opts.Rubro)
	if opts.TenantID != "" {
		paths[slotTenant] = model.TenantCollection(opts.TenantID)
	}

	g, gctx := errgroup.WithContext(ctx)
	for slot, path := range paths {
		if path == "" {
			continue
		}
		g.Go(func() error {
			docs, err := l.store.ReadCollection(gctx, path)
			if err != nil {
				slog.Warn("Failed to read rule collection, treating as empty",
					"collection", path,
					"error", err)
				return nil
			}
			tiers[slot] = docs
			return nil
		})
	}
	_ = g.Wait()

	return tiers
}
