package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/catalogo/internal/common"
	"github.com/Veraticus/catalogo/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, path, content string) {
	t.Helper()
	name := filepath.Join(root, filepath.FromSlash(path)+".yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(name), 0750))
	require.NoError(t, os.WriteFile(name, []byte(content), 0600))
}

func TestReadCollection(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, model.RubroCollection("bodega"), `
- id: inca
  categoria: Bebidas
  subcategoria: Gaseosas
  patterns: ["inca kola"]
- categoria: Abarrotes
  subcategoria: Arroz
  patterns:
    - arroz
    - costeño
- 42
`)

	store := New(root)
	docs, err := store.ReadCollection(context.Background(), model.RubroCollection("bodega"))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "inca", docs[0].ID())
	assert.Equal(t, []any{"inca kola"}, docs[0][model.FieldPatterns])
	assert.Equal(t, "rules_by_rubro/bodega/rules#1", docs[1].ID())
	assert.Equal(t, []any{"arroz", "costeño"}, docs[1][model.FieldPatterns])
}

func TestReadCollection_Missing(t *testing.T) {
	store := New(t.TempDir())
	docs, err := store.ReadCollection(context.Background(), model.TenantCollection("acme"))
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestReadCollection_Errors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, model.GlobalCollection, "categoria: [unterminated")
	store := New(root)
	ctx := context.Background()

	_, err := store.ReadCollection(ctx, model.GlobalCollection)
	assert.ErrorIs(t, err, common.ErrInvalidDocument)

	_, err = store.ReadCollection(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, common.ErrInvalidCollection)

	for _, path := range []string{model.TenantCollection(".."), model.RubroCollection("."), model.TenantCollection(`..\x`)} {
		_, err = store.ReadCollection(ctx, path)
		assert.ErrorIs(t, err, common.ErrInvalidCollection, path)
		err = store.WriteCollection(ctx, path, nil)
		assert.ErrorIs(t, err, common.ErrInvalidCollection, path)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = store.ReadCollection(cancelled, model.GlobalCollection)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteCollection_RoundTrip(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()
	path := model.TenantCollection("acme")

	doc := model.NewRuleDocument("Limpieza", "Detergentes", "ariel", "bolivar")
	doc[model.FieldID] = "acme-detergentes"

	require.NoError(t, store.WriteCollection(ctx, path, []model.RuleDocument{doc}))

	docs, err := store.ReadCollection(ctx, path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, doc, docs[0])

	entries, err := os.ReadDir(filepath.Join(store.Root(), "tenants", "acme"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "rules.yaml", entries[0].Name())
}

func TestAddRules(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	ids, err := store.AddRules(ctx, model.GlobalCollection, []model.RuleDocument{
		model.NewRuleDocument("Bebidas", "Aguas", "agua"),
		model.NewRuleDocument("Bebidas", "Jugos", "jugo"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"rules_global#0", "rules_global#1"}, ids)

	dup := model.NewRuleDocument("Otros", "Otros", "x")
	dup[model.FieldID] = "rules_global#0"
	_, err = store.AddRules(ctx, model.GlobalCollection, []model.RuleDocument{dup})
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)

	docs, err := store.ReadCollection(ctx, model.GlobalCollection)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestDecodeExport(t *testing.T) {
	t.Run("collections map", func(t *testing.T) {
		export, err := DecodeExport([]byte(`
collections:
  rules_global:
    - categoria: Bebidas
      subcategoria: Aguas
      patterns: [agua]
  tenants/acme/rules:
    - categoria: Snacks
      subcategoria: Papas
      patterns: [lays]
`))
		require.NoError(t, err)
		assert.Len(t, export.Collections, 2)
		assert.Len(t, export.Collections[model.TenantCollection("acme")], 1)
	})

	t.Run("bare sequence", func(t *testing.T) {
		export, err := DecodeExport([]byte("- categoria: Bebidas\n  subcategoria: Aguas\n  patterns: [agua]\n"))
		require.NoError(t, err)
		assert.Len(t, export.Collections[model.GlobalCollection], 1)
	})

	t.Run("bad collection", func(t *testing.T) {
		_, err := DecodeExport([]byte("collections:\n  products:\n    - categoria: X\n"))
		assert.ErrorIs(t, err, common.ErrInvalidCollection)
	})
}

func TestEncodeDocuments_Empty(t *testing.T) {
	data, err := EncodeDocuments(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestListCollections(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, model.TenantCollection("acme"), "[]")
	writeFile(t, root, model.GlobalCollection, "[]")
	writeFile(t, root, "notes/readme", "[]")
	require.NoError(t, os.WriteFile(filepath.Join(root, "ignored.txt"), nil, 0600))

	paths, err := New(root).ListCollections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{model.GlobalCollection, model.TenantCollection("acme")}, paths)

	paths, err = New(filepath.Join(root, "missing")).ListCollections(context.Background())
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestExport_RoundTrip(t *testing.T) {
	export := &Export{Collections: map[string][]model.RuleDocument{
		model.GlobalCollection:            {model.NewRuleDocument("Bebidas", "Aguas", "agua")},
		model.RubroCollection("farmacia"): {model.NewRuleDocument("Salud", "Analgésicos", "paracetamol")},
	}}

	data, err := EncodeExport(export)
	require.NoError(t, err)

	decoded, err := DecodeExport(data)
	require.NoError(t, err)
	assert.Equal(t, export, decoded)
}
