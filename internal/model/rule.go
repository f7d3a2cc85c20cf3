// Package model defines the core data structures for the catalogo application.
package model

import (
	"regexp"
	"time"
)

// DefaultRubro is the industry bucket used when no rubro is configured.
const DefaultRubro = "generico"

// Document field names shared by every rule collection.
const (
	FieldID           = "id"
	FieldCategoria    = "categoria"
	FieldSubcategoria = "subcategoria"
	FieldPatterns     = "patterns"
)

// RuleDocument is a raw rule as stored in a document collection.
// Nothing about its shape is guaranteed until it has been normalized.
type RuleDocument map[string]any

// ID returns the document identifier, or "" when the document has none.
func (d RuleDocument) ID() string {
	id, _ := d[FieldID].(string)
	return id
}

// NewRuleDocument builds a well-formed rule document.
func NewRuleDocument(categoria, subcategoria string, patterns ...string) RuleDocument {
	ps := make([]any, 0, len(patterns))
	for _, p := range patterns {
		ps = append(ps, p)
	}
	return RuleDocument{
		FieldCategoria:    categoria,
		FieldSubcategoria: subcategoria,
		FieldPatterns:     ps,
	}
}

// Tier identifies which collection a rule was sourced from.
type Tier string

// Tier constants, listed in merge order.
const (
	TierGlobal Tier = "global"
	TierRubro  Tier = "rubro"
	TierTenant Tier = "tenant"
)

// Rank returns the merge position of the tier (lower merges first).
func (t Tier) Rank() int {
	switch t {
	case TierGlobal:
		return 0
	case TierRubro:
		return 1
	case TierTenant:
		return 2
	}
	return -1
}

// Rule is a normalized classification rule with its patterns compiled.
type Rule struct {
	ID           string           `json:"id,omitempty"`
	Categoria    string           `json:"categoria"`
	Subcategoria string           `json:"subcategoria"`
	Tier         Tier             `json:"tier"`
	Patterns     []string         `json:"patterns"`
	Match        []*regexp.Regexp `json:"-"`
}

// RuleSet is an immutable, tier-merged sequence of rules.
// Rules are ordered global first, then rubro, then tenant.
type RuleSet struct {
	BuiltAt     time.Time
	Rubro       string
	TenantID    string
	Rules       []Rule
	FoldAccents bool
}

// Len returns the number of rules in the set.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rules)
}

// ByTier returns the rules sourced from the given tier, preserving order.
func (rs *RuleSet) ByTier(tier Tier) []Rule {
	if rs == nil {
		return nil
	}
	var out []Rule
	for _, r := range rs.Rules {
		if r.Tier == tier {
			out = append(out, r)
		}
	}
	return out
}

// LoadOptions selects which rule collections to merge.
type LoadOptions struct {
	Rubro    string
	TenantID string
}

// WithDefaults fills in the generic rubro when none was given.
func (o LoadOptions) WithDefaults() LoadOptions {
	if o.Rubro == "" {
		o.Rubro = DefaultRubro
	}
	return o
}
