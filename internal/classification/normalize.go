package classification

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/Veraticus/catalogo/internal/model"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeDocuments turns raw documents from one tier into compiled rules.
// Documents without a string categoria, a string subcategoria and a
// sequence of patterns are dropped. Patterns that fail to compile are
// skipped individually; the rest of the rule survives.
func NormalizeDocuments(docs []model.RuleDocument, tier model.Tier, foldAccents bool) []model.Rule {
	rules := make([]model.Rule, 0, len(docs))

	for i, doc := range docs {
		rule, ok := normalizeDocument(doc, tier, foldAccents)
		if !ok {
			slog.Debug("Dropped malformed rule document",
				"tier", tier,
				"index", i,
				"id", doc.ID())
			continue
		}
		rules = append(rules, rule)
	}

	return rules
}

func normalizeDocument(doc model.RuleDocument, tier model.Tier, foldAccents bool) (model.Rule, bool) {
	if doc == nil {
		return model.Rule{}, false
	}

	categoria, ok := nonEmptyString(doc[model.FieldCategoria])
	if !ok {
		return model.Rule{}, false
	}
	subcategoria, ok := nonEmptyString(doc[model.FieldSubcategoria])
	if !ok {
		return model.Rule{}, false
	}
	raw, ok := patternList(doc[model.FieldPatterns])
	if !ok {
		return model.Rule{}, false
	}

	rule := model.Rule{
		ID:           doc.ID(),
		Categoria:    categoria,
		Subcategoria: subcategoria,
		Tier:         tier,
		Patterns:     make([]string, 0, len(raw)),
		Match:        make([]*regexp.Regexp, 0, len(raw)),
	}

	for _, p := range raw {
		re, err := CompilePattern(p, foldAccents)
		if err != nil {
			slog.Debug("Skipped invalid rule pattern",
				"rule", rule.ID,
				"pattern", p,
				"error", err)
			continue
		}
		rule.Patterns = append(rule.Patterns, p)
		rule.Match = append(rule.Match, re)
	}

	return rule, true
}

// CompilePattern compiles a rule pattern into a case-insensitive matcher.
func CompilePattern(pattern string, foldAccents bool) (*regexp.Regexp, error) {
	if foldAccents {
		pattern = FoldAccents(pattern)
	}
	if !strings.HasPrefix(pattern, "(?i)") {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

// FoldAccents strips diacritical marks, so "lácteos" becomes "lacteos".
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// patternList accepts both []any (decoded JSON/YAML) and []string.
// Non-string and empty entries are ignored.
func patternList(v any) ([]string, bool) {
	switch ps := v.(type) {
	case []string:
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	case []any:
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			if s, ok := p.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out, true
	}
	return nil, false
}
