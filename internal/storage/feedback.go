package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/catalogo/internal/common"
	"github.com/Veraticus/catalogo/internal/model"
)

// RecordFeedback stores a feedback event for a rule and updates the rule's
// success rate in the same transaction.
func (s *SQLiteStorage) RecordFeedback(ctx context.Context, fb model.Feedback) (*model.RuleStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateFeedback(fb); err != nil {
		return nil, err
	}

	var stats *model.RuleStats
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM rule_documents WHERE id = ?", fb.RuleID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to verify rule: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("%w: rule %s", common.ErrNotFound, fb.RuleID)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO rule_feedback (rule_id, text, accepted, categoria, subcategoria)
			VALUES (?, ?, ?, ?, ?)
		`, fb.RuleID, fb.Text, fb.Accepted, fb.Categoria, fb.Subcategoria)
		if err != nil {
			return fmt.Errorf("failed to insert feedback: %w", err)
		}

		current, err := getRuleStats(ctx, tx, fb.RuleID)
		if err != nil {
			return err
		}

		current.Total++
		if fb.Accepted {
			current.Successes++
		}
		current.SuccessRate = float64(current.Successes) / float64(current.Total)
		current.UpdatedAt = time.Now().UTC()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO rule_stats (rule_id, total, successes, success_rate, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(rule_id) DO UPDATE SET
				total = excluded.total,
				successes = excluded.successes,
				success_rate = excluded.success_rate,
				updated_at = excluded.updated_at
		`, current.RuleID, current.Total, current.Successes, current.SuccessRate, current.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update rule stats: %w", err)
		}

		stats = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// GetRuleStats returns the feedback counters of a rule.
// A rule that never received feedback has zero counters.
func (s *SQLiteStorage) GetRuleStats(ctx context.Context, ruleID string) (*model.RuleStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ruleID, "ruleID"); err != nil {
		return nil, err
	}

	return getRuleStats(ctx, s.db, ruleID)
}

// queryRower is satisfied by both *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRuleStats(ctx context.Context, q queryRower, ruleID string) (*model.RuleStats, error) {
	stats := &model.RuleStats{RuleID: ruleID}
	var updatedAt sql.NullTime

	err := q.QueryRowContext(ctx, `
		SELECT total, successes, success_rate, updated_at
		FROM rule_stats
		WHERE rule_id = ?
	`, ruleID).Scan(&stats.Total, &stats.Successes, &stats.SuccessRate, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return stats, nil
		}
		return nil, fmt.Errorf("failed to get rule stats: %w", err)
	}

	stats.UpdatedAt = updatedAt.Time
	return stats, nil
}
