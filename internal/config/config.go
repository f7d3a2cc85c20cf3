// Package config provides configuration utilities for the application.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/catalogo/internal/common"
	"github.com/Veraticus/catalogo/internal/model"
	"github.com/spf13/viper"
)

// Supported rule store backends.
const (
	BackendSQLite = "sqlite"
	BackendYAML   = "yaml"
)

// Default locations, expanded with ExpandPath before use.
const (
	DefaultDatabasePath = "$HOME/.local/share/catalogo/catalogo.db"
	DefaultRulesDir     = "$HOME/.local/share/catalogo/rules"
)

// Config holds the settings the CLI needs to build a classifier.
type Config struct {
	Logging    LoggingConfig
	Store      StoreConfig
	Classifier ClassifierConfig
}

// LoggingConfig selects log verbosity and output format.
type LoggingConfig struct {
	Level  string
	Format string
}

// StoreConfig selects where rule collections are read from.
type StoreConfig struct {
	Backend      string
	DatabasePath string
	RulesDir     string
}

// ClassifierConfig controls rule loading.
//
// CacheTTL and SingleFlight configure the Loader's cache. The catalogo CLI
// builds a new Loader on every invocation, so they only change behavior for
// long-lived processes that embed one Loader and call it repeatedly.
type ClassifierConfig struct {
	Rubro        string
	TenantID     string
	CacheTTL     time.Duration
	SingleFlight bool
	FoldAccents  bool
}

// LoadOptions returns the rule selection configured for the classifier.
func (c ClassifierConfig) LoadOptions() model.LoadOptions {
	return model.LoadOptions{Rubro: c.Rubro, TenantID: c.TenantID}.WithDefaults()
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("store.backend", BackendSQLite)
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("store.rules_dir", DefaultRulesDir)
	v.SetDefault("classifier.rubro", model.DefaultRubro)
	v.SetDefault("classifier.tenant_id", "")
	v.SetDefault("classifier.cache_ttl", "5m")
	v.SetDefault("classifier.single_flight", true)
	v.SetDefault("classifier.fold_accents", false)
}

// Load reads and validates the configuration held by v.
// Paths are returned expanded.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Store: StoreConfig{
			Backend:      strings.ToLower(v.GetString("store.backend")),
			DatabasePath: ExpandPath(v.GetString("database.path")),
			RulesDir:     ExpandPath(v.GetString("store.rules_dir")),
		},
		Classifier: ClassifierConfig{
			Rubro:        strings.TrimSpace(v.GetString("classifier.rubro")),
			TenantID:     strings.TrimSpace(v.GetString("classifier.tenant_id")),
			CacheTTL:     v.GetDuration("classifier.cache_ttl"),
			SingleFlight: v.GetBool("classifier.single_flight"),
			FoldAccents:  v.GetBool("classifier.fold_accents"),
		},
	}

	if cfg.Classifier.Rubro == "" {
		cfg.Classifier.Rubro = model.DefaultRubro
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.DatabasePath == "" {
			return fmt.Errorf("%w: database.path is required for the sqlite backend", common.ErrMissingConfig)
		}
	case BackendYAML:
		if c.Store.RulesDir == "" {
			return fmt.Errorf("%w: store.rules_dir is required for the yaml backend", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store backend %q", common.ErrInvalidConfig, c.Store.Backend)
	}

	if c.Classifier.CacheTTL <= 0 {
		return fmt.Errorf("%w: classifier.cache_ttl must be positive", common.ErrInvalidConfig)
	}

	if _, ok := model.CollectionTier(model.RubroCollection(c.Classifier.Rubro)); !ok {
		return fmt.Errorf("%w: classifier.rubro %q cannot name a collection", common.ErrInvalidConfig, c.Classifier.Rubro)
	}
	if c.Classifier.TenantID != "" {
		if _, ok := model.CollectionTier(model.TenantCollection(c.Classifier.TenantID)); !ok {
			return fmt.Errorf("%w: classifier.tenant_id %q cannot name a collection", common.ErrInvalidConfig, c.Classifier.TenantID)
		}
	}

	return nil
}

// ExpandPath resolves a leading "~" and $VAR references in a configured path,
// so database.path and store.rules_dir can be written like shell paths.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + path[1:]
		}
	}
	return os.ExpandEnv(path)
}
