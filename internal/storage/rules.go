package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/catalogo/internal/common"
	"github.com/Veraticus/catalogo/internal/model"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// RuleRecord is a stored rule document together with where it lives.
type RuleRecord struct {
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Document   model.RuleDocument
	Stats      *model.RuleStats
	ID         string
	Collection string
	Position   int
}

// CollectionSummary describes one non-empty rule collection.
type CollectionSummary struct {
	Path  string
	Tier  model.Tier
	Count int
}

// ReadCollection returns the documents of a collection in stored order.
// Each document carries its ID under the "id" key. A body that cannot be
// decoded comes back as a document with only an ID.
func (s *SQLiteStorage) ReadCollection(ctx context.Context, path string) ([]model.RuleDocument, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateCollection(path); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, body
		FROM rule_documents
		WHERE collection = ?
		ORDER BY position ASC, id ASC
	`, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection %s: %w", path, err)
	}
	defer func() { _ = rows.Close() }()

	var docs []model.RuleDocument
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("failed to scan rule document: %w", err)
		}
		docs = append(docs, decodeDocument(id, body))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rule documents: %w", err)
	}

	return docs, nil
}

// AddRule appends a document to a collection and returns its ID.
func (s *SQLiteStorage) AddRule(ctx context.Context, path string, doc model.RuleDocument) (string, error) {
	ids, err := s.AddRules(ctx, path, []model.RuleDocument{doc})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// AddRules appends documents to a collection in one transaction.
// Documents without an "id" get a generated one.
func (s *SQLiteStorage) AddRules(ctx context.Context, path string, docs []model.RuleDocument) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateCollection(path); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: documents", ErrEmptySlice)
	}
	for i, doc := range docs {
		if err := validateDocument(doc); err != nil {
			return nil, fmt.Errorf("document at index %d: %w", i, err)
		}
	}

	ids := make([]string, 0, len(docs))
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var next int
		if err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(position), -1) + 1 FROM rule_documents WHERE collection = ?",
			path).Scan(&next); err != nil {
			return fmt.Errorf("failed to get next position: %w", err)
		}

		for i, doc := range docs {
			id := doc.ID()
			if id == "" {
				id = uuid.NewString()
			}

			body, err := encodeDocument(doc)
			if err != nil {
				return fmt.Errorf("document at index %d: %w", i, err)
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO rule_documents (id, collection, position, body)
				VALUES (?, ?, ?, ?)
			`, id, path, next+i, body)
			if err != nil {
				if isConstraintError(err) {
					return fmt.Errorf("%w: rule %s", common.ErrDuplicateEntry, id)
				}
				return fmt.Errorf("failed to insert rule document: %w", err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// GetRule retrieves a stored rule by ID.
func (s *SQLiteStorage) GetRule(ctx context.Context, id string) (*RuleRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, ruleRecordQuery+" WHERE d.id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	records, err := scanRuleRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: rule %s", common.ErrNotFound, id)
	}
	return &records[0], nil
}

// ListRules returns the stored rules of a collection with their feedback stats.
func (s *SQLiteStorage) ListRules(ctx context.Context, path string) ([]RuleRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateCollection(path); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		ruleRecordQuery+" WHERE d.collection = ? ORDER BY d.position ASC, d.id ASC", path)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return scanRuleRecords(rows)
}

// ListCollections returns every collection that holds at least one rule.
func (s *SQLiteStorage) ListCollections(ctx context.Context) ([]CollectionSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT collection, COUNT(*)
		FROM rule_documents
		GROUP BY collection
		ORDER BY collection ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []CollectionSummary
	for rows.Next() {
		var summary CollectionSummary
		if err := rows.Scan(&summary.Path, &summary.Count); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		summary.Tier, _ = model.CollectionTier(summary.Path)
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collections: %w", err)
	}

	return summaries, nil
}

// DeleteRule removes a rule together with its feedback history.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, query := range []string{
			"DELETE FROM rule_feedback WHERE rule_id = ?",
			"DELETE FROM rule_stats WHERE rule_id = ?",
		} {
			if _, err := tx.ExecContext(ctx, query, id); err != nil {
				return fmt.Errorf("failed to delete rule history: %w", err)
			}
		}

		result, err := tx.ExecContext(ctx, "DELETE FROM rule_documents WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete rule: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("%w: rule %s", common.ErrNotFound, id)
		}
		return nil
	})
}

const ruleRecordQuery = `
	SELECT d.id, d.collection, d.position, d.body, d.created_at, d.updated_at,
		s.total, s.successes, s.success_rate, s.updated_at
	FROM rule_documents d
	LEFT JOIN rule_stats s ON s.rule_id = d.id`

func scanRuleRecords(rows *sql.Rows) ([]RuleRecord, error) {
	defer func() { _ = rows.Close() }()

	var records []RuleRecord
	for rows.Next() {
		var (
			record       RuleRecord
			body         string
			total        sql.NullInt64
			successes    sql.NullInt64
			successRate  sql.NullFloat64
			statsUpdated sql.NullTime
		)
		err := rows.Scan(
			&record.ID, &record.Collection, &record.Position, &body,
			&record.CreatedAt, &record.UpdatedAt,
			&total, &successes, &successRate, &statsUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		record.Document = decodeDocument(record.ID, body)
		if total.Valid {
			record.Stats = &model.RuleStats{
				RuleID:      record.ID,
				Total:       int(total.Int64),
				Successes:   int(successes.Int64),
				SuccessRate: successRate.Float64,
				UpdatedAt:   statsUpdated.Time,
			}
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return records, nil
}

// encodeDocument serializes a document without its ID, which lives in its own column.
func encodeDocument(doc model.RuleDocument) (string, error) {
	body := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == model.FieldID {
			continue
		}
		body[k] = v
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidDocument, err)
	}
	return string(data), nil
}

func decodeDocument(id, body string) model.RuleDocument {
	doc := model.RuleDocument{}
	if err := json.Unmarshal([]byte(body), &doc); err != nil || doc == nil {
		slog.Debug("Stored rule document is not valid JSON", "id", id, "error", err)
		doc = model.RuleDocument{}
	}
	doc[model.FieldID] = id
	return doc
}

func isConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
