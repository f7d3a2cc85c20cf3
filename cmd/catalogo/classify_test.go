package main

import (
	"bufio"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Veraticus/catalogo/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeOutputs(t *testing.T, out string) []map[string]any {
	t.Helper()
	var results []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		results = append(results, m)
	}
	return results
}

func TestClassifyCmd_SeedRules(t *testing.T) {
	setupSQLite(t)

	out, err := execute(t, classifyCmd(), "", "--json", "Leche Gloria 400g", "tornillo 3/8")
	require.NoError(t, err)

	results := decodeOutputs(t, out)
	require.Len(t, results, 2)

	assert.Equal(t, true, results[0]["matched"])
	assert.Equal(t, "Lácteos", results[0]["categoria"])
	assert.Equal(t, "Leche", results[0]["subcategoria"])
	assert.Equal(t, "rules", results[0]["source"])
	assert.Equal(t, string(model.TierGlobal), results[0]["tier"])
	assert.InDelta(t, model.RuleConfidence, results[0]["confidence"], 1e-9)

	assert.Equal(t, false, results[1]["matched"])
	assert.NotContains(t, results[1], "categoria")
}

func TestClassifyCmd_Stdin(t *testing.T) {
	setupSQLite(t)

	out, err := execute(t, classifyCmd(), "yogurt gloria\n\n  detergente ariel  \n")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Yogurt")
	assert.Contains(t, lines[1], "detergente ariel")
}

func TestClassifyCmd_NoTexts(t *testing.T) {
	setupSQLite(t)

	_, err := execute(t, classifyCmd(), "   \n")
	assert.Error(t, err)
}

func TestClassifyCmd_TenantRulesFromYAML(t *testing.T) {
	setupYAML(t)

	_, err := execute(t, rulesAddCmd(), "",
		"--tenant", "acme", "--categoria", "Promociones", "--subcategoria", "Packs", "--pattern", `pack\s+x\d+`)
	require.NoError(t, err)

	out, err := execute(t, classifyCmd(), "", "--json", "--tenant", "acme", "Gaseosa pack x6")
	require.NoError(t, err)
	results := decodeOutputs(t, out)
	require.Len(t, results, 1)
	// The global seed rule for gaseosas comes first.
	assert.Equal(t, "Gaseosas", results[0]["subcategoria"])

	out, err = execute(t, classifyCmd(), "", "--json", "--tenant", "acme", "Galletas pack x12")
	require.NoError(t, err)
	results = decodeOutputs(t, out)
	require.Len(t, results, 1)
	// Galletas is a seed snack rule, still global.
	assert.Equal(t, string(model.TierGlobal), results[0]["tier"])

	out, err = execute(t, classifyCmd(), "", "--json", "--tenant", "acme", "Pack x3 surtido")
	require.NoError(t, err)
	results = decodeOutputs(t, out)
	require.Len(t, results, 1)
	assert.Equal(t, "Packs", results[0]["subcategoria"])
	assert.Equal(t, string(model.TierTenant), results[0]["tier"])
}

func TestReadTexts(t *testing.T) {
	texts, err := readTexts(strings.NewReader("a\n\n b \r\nc"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, texts)
}

func TestFormatResult(t *testing.T) {
	miss := formatResult("tornillo", model.ClassificationResult{}, false)
	assert.Contains(t, miss, noMatchLabel)

	hit := formatResult("leche", model.ClassificationResult{
		Categoria:    "Lácteos",
		Subcategoria: "Leche",
		RuleID:       "seed-lacteos-leche",
		Tier:         model.TierGlobal,
		Pattern:      "leche",
	}, true)
	assert.Contains(t, hit, "Lácteos / Leche")
	assert.Contains(t, hit, "seed-lacteos-leche")
}
