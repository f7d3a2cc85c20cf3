package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/catalogo/internal/common"
	"github.com/Veraticus/catalogo/internal/model"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", "/home/tendero")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/home/tendero/.local/share/catalogo/catalogo.db", cfg.Store.DatabasePath)
	assert.Equal(t, model.DefaultRubro, cfg.Classifier.Rubro)
	assert.Empty(t, cfg.Classifier.TenantID)
	assert.Equal(t, 5*time.Minute, cfg.Classifier.CacheTTL)
	assert.True(t, cfg.Classifier.SingleFlight)
	assert.False(t, cfg.Classifier.FoldAccents)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
store:
  backend: yaml
  rules_dir: ` + dir + `/rules
classifier:
  rubro: bodega
  tenant_id: acme
  cache_ttl: 90s
  single_flight: false
  fold_accents: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, BackendYAML, cfg.Store.Backend)
	assert.Equal(t, filepath.Join(dir, "rules"), cfg.Store.RulesDir)
	assert.Equal(t, 90*time.Second, cfg.Classifier.CacheTTL)
	assert.False(t, cfg.Classifier.SingleFlight)
	assert.True(t, cfg.Classifier.FoldAccents)
	assert.Equal(t, model.LoadOptions{Rubro: "bodega", TenantID: "acme"}, cfg.Classifier.LoadOptions())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		want  error
		setup func(*viper.Viper)
		name  string
	}{
		{
			name:  "unknown backend",
			setup: func(v *viper.Viper) { v.Set("store.backend", "firestore") },
			want:  common.ErrInvalidConfig,
		},
		{
			name:  "empty database path",
			setup: func(v *viper.Viper) { v.Set("database.path", "") },
			want:  common.ErrMissingConfig,
		},
		{
			name:  "negative ttl",
			setup: func(v *viper.Viper) { v.Set("classifier.cache_ttl", "-1m") },
			want:  common.ErrInvalidConfig,
		},
		{
			name:  "slash in tenant",
			setup: func(v *viper.Viper) { v.Set("classifier.tenant_id", "a/b") },
			want:  common.ErrInvalidConfig,
		},
		{
			name:  "dot-dot rubro",
			setup: func(v *viper.Viper) { v.Set("classifier.rubro", "..") },
			want:  common.ErrInvalidConfig,
		},
		{
			name:  "dot tenant",
			setup: func(v *viper.Viper) { v.Set("classifier.tenant_id", ".") },
			want:  common.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			tt.setup(v)
			_, err := Load(v)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoad_BlankRubroFallsBack(t *testing.T) {
	v := viper.New()
	v.Set("classifier.rubro", "   ")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultRubro, cfg.Classifier.Rubro)
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tendero")
	t.Setenv("CATALOGO_DIR", "/srv/catalogo")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, "/home/tendero/rules", ExpandPath("~/rules"))
	assert.Equal(t, "/home/tendero", ExpandPath("~"))
	assert.Equal(t, "/srv/catalogo/db", ExpandPath("$CATALOGO_DIR/db"))
	assert.Equal(t, ":memory:", ExpandPath(":memory:"))
	assert.Equal(t, "~tendero/rules", ExpandPath("~tendero/rules"))
}

func TestLoad_ExpandsStorePaths(t *testing.T) {
	t.Setenv("HOME", "/home/tendero")

	v := viper.New()
	v.Set("database.path", "~/catalogo.db")
	v.Set("store.rules_dir", "$HOME/rules")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "/home/tendero/catalogo.db", cfg.Store.DatabasePath)
	assert.Equal(t, "/home/tendero/rules", cfg.Store.RulesDir)
}
