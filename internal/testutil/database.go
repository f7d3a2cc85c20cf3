// Package testutil provides test utilities for the catalogo project.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/catalogo/internal/model"
	"github.com/Veraticus/catalogo/internal/storage"
)

// Collections maps collection paths to the documents seeded into them.
type Collections map[string][]model.RuleDocument

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database seeded with the given collections.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t, testutil.Collections{
//		model.GlobalCollection: {model.NewRuleDocument("Bebidas", "Gaseosas", "cola")},
//	})
func SetupTestDB(t *testing.T, collections Collections) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	db := &TestDB{Storage: store, t: t}
	for path, docs := range collections {
		if len(docs) == 0 {
			continue
		}
		if _, err := store.AddRules(ctx, path, docs); err != nil {
			t.Fatalf("failed to seed collection %q: %v", path, err)
		}
	}

	return db
}

// MustAddRule appends a rule to a collection or fails the test.
func (db *TestDB) MustAddRule(path, id, categoria, subcategoria string, patterns ...string) string {
	db.t.Helper()

	doc := model.NewRuleDocument(categoria, subcategoria, patterns...)
	if id != "" {
		doc[model.FieldID] = id
	}

	got, err := db.Storage.AddRule(context.Background(), path, doc)
	if err != nil {
		db.t.Fatalf("failed to add rule to %q: %v", path, err)
	}
	return got
}
