package model

import "time"

// Feedback records whether a rule-based classification was right.
// When Accepted is false, Categoria and Subcategoria carry the correction.
type Feedback struct {
	RuleID       string
	Text         string
	Categoria    string
	Subcategoria string
	Accepted     bool
}

// RuleStats tracks how often a rule's classifications were accepted.
type RuleStats struct {
	UpdatedAt   time.Time `json:"updated_at"`
	RuleID      string    `json:"rule_id"`
	Total       int       `json:"total"`
	Successes   int       `json:"successes"`
	SuccessRate float64   `json:"success_rate"`
}
