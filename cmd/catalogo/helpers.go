package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/catalogo/internal/classification"
	"github.com/Veraticus/catalogo/internal/common"
	"github.com/Veraticus/catalogo/internal/config"
	"github.com/Veraticus/catalogo/internal/filestore"
	"github.com/Veraticus/catalogo/internal/model"
	"github.com/Veraticus/catalogo/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ruleStore is the part of a backend the CLI reads and appends rules through.
type ruleStore interface {
	classification.DocumentStore
	AddRules(ctx context.Context, path string, docs []model.RuleDocument) ([]string, error)
}

var (
	_ ruleStore = (*storage.SQLiteStorage)(nil)
	_ ruleStore = (*filestore.Store)(nil)
)

// loadConfig returns the validated configuration held by the global viper instance.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, common.NewUserError("invalid configuration", err)
	}
	return cfg, nil
}

// getDatabase returns a database connection and a cleanup function.
func getDatabase(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, func(), error) {
	db, err := storage.NewSQLiteStorage(cfg.Store.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Run migrations
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}

	return db, cleanup, nil
}

// requireDatabase opens the SQLite database, failing for other backends.
func requireDatabase(ctx context.Context, cfg *config.Config, what string) (*storage.SQLiteStorage, func(), error) {
	if cfg.Store.Backend != config.BackendSQLite {
		return nil, nil, common.NewUserError(
			fmt.Sprintf("%s needs the sqlite backend (store.backend is %q)", what, cfg.Store.Backend), nil)
	}
	return getDatabase(ctx, cfg)
}

// openRuleStore opens the configured rule backend.
func openRuleStore(ctx context.Context, cfg *config.Config) (ruleStore, func(), error) {
	if cfg.Store.Backend == config.BackendYAML {
		return filestore.New(cfg.Store.RulesDir), func() {}, nil
	}

	db, cleanup, err := getDatabase(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return db, cleanup, nil
}

// newLoader builds a rule loader configured from cfg.
func newLoader(store classification.DocumentStore, cfg *config.Config) *classification.Loader {
	return classification.NewLoader(store,
		classification.WithTTL(cfg.Classifier.CacheTTL),
		classification.WithSingleFlight(cfg.Classifier.SingleFlight),
		classification.WithFoldAccents(cfg.Classifier.FoldAccents),
	)
}

// addSelectionFlags registers the --rubro and --tenant flags.
func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().String("rubro", "", "industry bucket (default: classifier.rubro)")
	cmd.Flags().String("tenant", "", "tenant ID (default: classifier.tenant_id)")
}

// loadOptions returns the configured rule selection, overridden by flags.
func loadOptions(cmd *cobra.Command, cfg *config.Config) model.LoadOptions {
	opts := cfg.Classifier.LoadOptions()
	if rubro, _ := cmd.Flags().GetString("rubro"); rubro != "" {
		opts.Rubro = rubro
	}
	if tenant, _ := cmd.Flags().GetString("tenant"); tenant != "" {
		opts.TenantID = tenant
	}
	return opts
}

// addCollectionFlags registers the flags that pick a single collection.
func addCollectionFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("global", false, "use the global collection")
	cmd.Flags().String("rubro", "", "use the collection of this rubro")
	cmd.Flags().String("tenant", "", "use the collection of this tenant")
}

// collectionFromFlags resolves the collection named by the flags from
// addCollectionFlags. With no flag set it picks the global collection.
func collectionFromFlags(cmd *cobra.Command) (string, error) {
	global, _ := cmd.Flags().GetBool("global")
	rubro, _ := cmd.Flags().GetString("rubro")
	tenant, _ := cmd.Flags().GetString("tenant")

	var paths []string
	if global {
		paths = append(paths, model.GlobalCollection)
	}
	if rubro != "" {
		paths = append(paths, model.RubroCollection(rubro))
	}
	if tenant != "" {
		paths = append(paths, model.TenantCollection(tenant))
	}

	switch len(paths) {
	case 0:
		return model.GlobalCollection, nil
	case 1:
		if _, ok := model.CollectionTier(paths[0]); !ok {
			return "", common.NewUserError("invalid rubro or tenant name", common.ErrInvalidCollection)
		}
		return paths[0], nil
	default:
		return "", common.NewUserError("use only one of --global, --rubro and --tenant", nil)
	}
}

// listCollectionPaths returns every collection that holds rules in store.
func listCollectionPaths(ctx context.Context, store ruleStore) ([]string, error) {
	switch s := store.(type) {
	case *storage.SQLiteStorage:
		summaries, err := s.ListCollections(ctx)
		if err != nil {
			return nil, err
		}
		paths := make([]string, 0, len(summaries))
		for _, summary := range summaries {
			paths = append(paths, summary.Path)
		}
		return paths, nil
	case *filestore.Store:
		return s.ListCollections(ctx)
	}
	return nil, fmt.Errorf("%w: unsupported rule store %T", common.ErrInvalidConfig, store)
}
