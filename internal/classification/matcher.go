// Package classification loads tiered product classification rules and
// matches free-text product descriptions against them.
package classification

import (
	"strings"

	"github.com/Veraticus/catalogo/internal/model"
)

// Classify returns the first rule in rs whose patterns match text.
// Rules are tried in tier-then-insertion order; there is no scoring.
// The boolean is false when nothing matched.
func Classify(text string, rs *model.RuleSet) (model.ClassificationResult, bool) {
	if rs == nil {
		return model.ClassificationResult{}, false
	}

	searchText := strings.ToLower(text)
	if rs.FoldAccents {
		searchText = FoldAccents(searchText)
	}

	for _, rule := range rs.Rules {
		for i, re := range rule.Match {
			if !re.MatchString(searchText) {
				continue
			}

			result := model.ClassificationResult{
				Categoria:    rule.Categoria,
				Subcategoria: rule.Subcategoria,
				Confidence:   model.RuleConfidence,
				Source:       model.SourceRules,
				RuleID:       rule.ID,
				Tier:         rule.Tier,
			}
			if i < len(rule.Patterns) {
				result.Pattern = rule.Patterns[i]
			}
			return result, true
		}
	}

	return model.ClassificationResult{}, false
}

// ClassifyAll classifies each text independently against the same rule set.
// Texts without a match are absent from the returned map.
func ClassifyAll(texts []string, rs *model.RuleSet) map[string]model.ClassificationResult {
	results := make(map[string]model.ClassificationResult, len(texts))
	for _, text := range texts {
		if result, ok := Classify(text, rs); ok {
			results[text] = result
		}
	}
	return results
}
