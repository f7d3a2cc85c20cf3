// Package filestore keeps rule collections as YAML files in a directory tree.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/Veraticus/catalogo/internal/common"
	"github.com/Veraticus/catalogo/internal/model"
	"gopkg.in/yaml.v3"
)

// Store reads and writes rule collections under a root directory.
// Collection "tenants/acme/rules" lives in "<root>/tenants/acme/rules.yaml".
type Store struct {
	root string
}

// New returns a store rooted at dir.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the directory the store reads from.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) filename(path string) (string, error) {
	if _, ok := model.CollectionTier(path); !ok {
		return "", fmt.Errorf("%w: %q", common.ErrInvalidCollection, path)
	}
	return filepath.Join(s.root, filepath.FromSlash(path)+".yaml"), nil
}

// ReadCollection returns the documents of a collection in file order.
// A missing file is an empty collection. Documents without an ID are
// given "<path>#<index>".
func (s *Store) ReadCollection(ctx context.Context, path string) ([]model.RuleDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, err := s.filename(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(name) //nolint:gosec // path is built from a validated collection
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read collection %s: %w", path, err)
	}

	docs, err := DecodeDocuments(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse collection %s: %w", path, err)
	}

	for i, doc := range docs {
		if doc.ID() == "" {
			doc[model.FieldID] = path + "#" + strconv.Itoa(i)
		}
	}

	slog.Debug("Read YAML collection", "path", path, "documents", len(docs))
	return docs, nil
}

// WriteCollection replaces the contents of a collection.
func (s *Store) WriteCollection(ctx context.Context, path string, docs []model.RuleDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name, err := s.filename(path)
	if err != nil {
		return err
	}

	data, err := EncodeDocuments(docs)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(name), 0750); err != nil {
		return fmt.Errorf("failed to create collection directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(name), ".collection-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write collection %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write collection %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), name); err != nil {
		return fmt.Errorf("failed to replace collection %s: %w", path, err)
	}
	return nil
}

// ListCollections returns the paths of every rule collection file under the root.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.root, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && name == s.root {
				return filepath.SkipAll
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || filepath.Ext(name) != ".yaml" {
			return nil
		}

		rel, err := filepath.Rel(s.root, name)
		if err != nil {
			return err
		}
		path := filepath.ToSlash(strings.TrimSuffix(rel, ".yaml"))
		if _, ok := model.CollectionTier(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

// AddRules appends documents to a collection and returns their IDs.
func (s *Store) AddRules(ctx context.Context, path string, docs []model.RuleDocument) ([]string, error) {
	existing, err := s.ReadCollection(ctx, path)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(existing))
	for _, doc := range existing {
		seen[doc.ID()] = true
	}

	ids := make([]string, 0, len(docs))
	for i, doc := range docs {
		if doc == nil {
			return nil, fmt.Errorf("%w: document at index %d is nil", common.ErrInvalidDocument, i)
		}
		id := doc.ID()
		if id == "" {
			id = path + "#" + strconv.Itoa(len(existing))
			doc[model.FieldID] = id
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: rule %s", common.ErrDuplicateEntry, id)
		}
		seen[id] = true
		existing = append(existing, doc)
		ids = append(ids, id)
	}

	if err := s.WriteCollection(ctx, path, existing); err != nil {
		return nil, err
	}
	return ids, nil
}

// DecodeDocuments parses a YAML sequence of rule documents.
// Entries that are not mappings are skipped.
func DecodeDocuments(data []byte) ([]model.RuleDocument, error) {
	var items []any
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidDocument, err)
	}

	docs := make([]model.RuleDocument, 0, len(items))
	for i, item := range items {
		doc, ok := item.(map[string]any)
		if !ok {
			slog.Debug("Skipping non-mapping YAML entry", "index", i)
			continue
		}
		docs = append(docs, model.RuleDocument(doc))
	}
	return docs, nil
}

// EncodeDocuments renders rule documents as a YAML sequence.
func EncodeDocuments(docs []model.RuleDocument) ([]byte, error) {
	if docs == nil {
		docs = []model.RuleDocument{}
	}
	data, err := yaml.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidDocument, err)
	}
	return data, nil
}

// Export is the on-disk layout of a multi-collection export file.
type Export struct {
	Collections map[string][]model.RuleDocument `yaml:"collections"`
}

// EncodeExport renders several collections as one export file.
func EncodeExport(export *Export) ([]byte, error) {
	data, err := yaml.Marshal(export)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidDocument, err)
	}
	return data, nil
}

// DecodeExport parses an export file. A bare document sequence is read as
// the global collection.
func DecodeExport(data []byte) (*Export, error) {
	var export Export
	if err := yaml.Unmarshal(data, &export); err == nil && len(export.Collections) > 0 {
		for path := range export.Collections {
			if _, ok := model.CollectionTier(path); !ok {
				return nil, fmt.Errorf("%w: %q", common.ErrInvalidCollection, path)
			}
		}
		return &export, nil
	}

	docs, err := DecodeDocuments(data)
	if err != nil {
		return nil, err
	}
	return &Export{Collections: map[string][]model.RuleDocument{model.GlobalCollection: docs}}, nil
}
