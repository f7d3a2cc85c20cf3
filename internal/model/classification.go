package model

// RuleConfidence is the confidence reported for every rule-based match.
const RuleConfidence = 0.85

// SourceRules marks a result produced by the rules classifier.
const SourceRules = "rules"

// ClassificationResult is the outcome of matching a text against a rule set.
type ClassificationResult struct {
	Categoria    string  `json:"categoria"`
	Subcategoria string  `json:"subcategoria"`
	Source       string  `json:"source"`
	RuleID       string  `json:"rule_id,omitempty"`
	Tier         Tier    `json:"tier"`
	Pattern      string  `json:"pattern"`
	Confidence   float64 `json:"confidence"`
}
