package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/catalogo/internal/classification"
	"github.com/Veraticus/catalogo/internal/cli"
	"github.com/Veraticus/catalogo/internal/common"
	"github.com/Veraticus/catalogo/internal/filestore"
	"github.com/Veraticus/catalogo/internal/model"
	"github.com/Veraticus/catalogo/internal/storage"
	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rules",
		Aliases: []string{"rule"},
		Short:   "Manage classification rules",
		Long: `Manage the rule collections the classifier merges: the global
collection, one collection per rubro and one per tenant.`,
	}

	// Subcommands
	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesDeleteCmd())
	cmd.AddCommand(rulesImportCmd())
	cmd.AddCommand(rulesExportCmd())
	cmd.AddCommand(rulesSeedCmd())
	cmd.AddCommand(rulesStatsCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored rules",
		Long:  `List the rules of one collection, or of every collection with --all.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, cleanup, err := openRuleStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			all, _ := cmd.Flags().GetBool("all")
			var paths []string
			if all {
				paths, err = listCollectionPaths(ctx, store)
				if err != nil {
					return fmt.Errorf("failed to list collections: %w", err)
				}
			} else {
				path, pathErr := collectionFromFlags(cmd)
				if pathErr != nil {
					return pathErr
				}
				paths = []string{path}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tCOLLECTION\tCATEGORIA\tSUBCATEGORIA\tPATTERNS\tSUCCESS")
			_, _ = fmt.Fprintln(w, "──\t──────────\t─────────\t────────────\t────────\t───────")

			count := 0
			for _, path := range paths {
				rows, listErr := collectionRows(cmd, store, path)
				if listErr != nil {
					return listErr
				}
				for _, row := range rows {
					_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
				}
				count += len(rows)
			}

			if count == 0 {
				slog.Info("No rules found", "collections", paths)
				return nil
			}
			return w.Flush()
		},
	}

	addCollectionFlags(cmd)
	cmd.Flags().Bool("all", false, "list every collection")
	return cmd
}

// collectionRows renders the rules of one collection as table rows.
// Feedback stats are only available from the SQLite backend.
func collectionRows(cmd *cobra.Command, store ruleStore, path string) ([][]string, error) {
	ctx := cmd.Context()

	if db, ok := store.(*storage.SQLiteStorage); ok {
		records, err := db.ListRules(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to list rules: %w", err)
		}
		rows := make([][]string, 0, len(records))
		for _, record := range records {
			success := "-"
			if record.Stats != nil {
				success = fmt.Sprintf("%.0f%% (%d)", record.Stats.SuccessRate*100, record.Stats.Total)
			}
			rows = append(rows, documentRow(record.Document, path, success))
		}
		return rows, nil
	}

	docs, err := store.ReadCollection(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection: %w", err)
	}
	rows := make([][]string, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, documentRow(doc, path, "-"))
	}
	return rows, nil
}

func documentRow(doc model.RuleDocument, path, success string) []string {
	categoria, _ := doc[model.FieldCategoria].(string)
	subcategoria, _ := doc[model.FieldSubcategoria].(string)
	return []string{
		doc.ID(),
		path,
		categoria,
		subcategoria,
		truncateString(formatPatterns(doc[model.FieldPatterns]), 40),
		success,
	}
}

// formatPatterns joins a document's patterns for display.
func formatPatterns(v any) string {
	var parts []string
	switch ps := v.(type) {
	case []string:
		parts = ps
	case []any:
		for _, p := range ps {
			parts = append(parts, fmt.Sprint(p))
		}
	default:
		return "?"
	}
	return strings.Join(parts, ", ")
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func rulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a rule",
		Long: `Append a rule to a collection. Patterns are case-insensitive
regular expressions; the rule is rejected if any of them fails to compile.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			categoria, _ := cmd.Flags().GetString("categoria")
			subcategoria, _ := cmd.Flags().GetString("subcategoria")
			patterns, _ := cmd.Flags().GetStringArray("pattern")
			id, _ := cmd.Flags().GetString("id")

			if strings.TrimSpace(categoria) == "" || strings.TrimSpace(subcategoria) == "" {
				return common.NewUserError("--categoria and --subcategoria are required", nil)
			}
			if len(patterns) == 0 {
				return common.NewUserError("at least one --pattern is required", nil)
			}
			for _, p := range patterns {
				if _, err := classification.CompilePattern(p, false); err != nil {
					return common.NewUserError(fmt.Sprintf("invalid pattern %q", p), err)
				}
			}

			path, err := collectionFromFlags(cmd)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, cleanup, err := openRuleStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			doc := model.NewRuleDocument(categoria, subcategoria, patterns...)
			if id != "" {
				doc[model.FieldID] = id
			}

			ids, err := store.AddRules(ctx, path, []model.RuleDocument{doc})
			if err != nil {
				if errors.Is(err, common.ErrDuplicateEntry) {
					return common.NewUserError(fmt.Sprintf("a rule with ID %q already exists", id), err)
				}
				return fmt.Errorf("failed to add rule: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added rule %s to %s", ids[0], path)))
			return nil
		},
	}

	addCollectionFlags(cmd)
	cmd.Flags().String("categoria", "", "category assigned by the rule")
	cmd.Flags().String("subcategoria", "", "subcategory assigned by the rule")
	cmd.Flags().StringArrayP("pattern", "p", nil, "regular expression (repeatable)")
	cmd.Flags().String("id", "", "rule ID (generated when empty)")
	return cmd
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule",
		Long:  `Delete a rule and its feedback history from the SQLite store.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, cleanup, err := requireDatabase(ctx, cfg, "rules delete")
			if err != nil {
				return err
			}
			defer cleanup()

			if err := db.DeleteRule(ctx, args[0]); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("rule %s not found", args[0]), err)
				}
				return fmt.Errorf("failed to delete rule: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted rule "+args[0]))
			return nil
		},
	}
}

func rulesImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import rules from a YAML file",
		Long: `Import rules from a YAML file. The file is either a list of rule
documents, imported into the global collection, or a mapping of
collection paths to document lists as written by "rules export".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return common.NewUserError("cannot read "+args[0], err)
			}

			export, err := filestore.DecodeExport(data)
			if err != nil {
				return common.NewUserError("cannot parse "+args[0], err)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, cleanup, err := openRuleStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			paths := make([]string, 0, len(export.Collections))
			total := 0
			for path, docs := range export.Collections {
				paths = append(paths, path)
				total += len(docs)
			}
			sort.Strings(paths)

			if total == 0 {
				slog.Info("No rules to import", "file", args[0])
				return nil
			}

			bar := cli.NewProgressBar(cmd.ErrOrStderr(), total, "Importing rules...")
			for _, path := range paths {
				docs := export.Collections[path]
				if len(docs) == 0 {
					continue
				}
				if _, err := store.AddRules(ctx, path, docs); err != nil {
					return fmt.Errorf("failed to import %s: %w", path, err)
				}
				_ = bar.Add(len(docs))
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(),
				cli.FormatSuccess(fmt.Sprintf("Imported %d rules into %d collections", total, len(paths))))
			return nil
		},
	}
	return cmd
}

func rulesExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export rules as YAML",
		Long:  `Write one collection, or every collection with --all, to stdout as YAML.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, cleanup, err := openRuleStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			all, _ := cmd.Flags().GetBool("all")
			var paths []string
			if all {
				paths, err = listCollectionPaths(ctx, store)
				if err != nil {
					return fmt.Errorf("failed to list collections: %w", err)
				}
			} else {
				path, pathErr := collectionFromFlags(cmd)
				if pathErr != nil {
					return pathErr
				}
				paths = []string{path}
			}

			export := &filestore.Export{Collections: make(map[string][]model.RuleDocument, len(paths))}
			for _, path := range paths {
				docs, readErr := store.ReadCollection(ctx, path)
				if readErr != nil {
					return fmt.Errorf("failed to read %s: %w", path, readErr)
				}
				export.Collections[path] = docs
			}

			data, err := filestore.EncodeExport(export)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	addCollectionFlags(cmd)
	cmd.Flags().Bool("all", false, "export every collection")
	return cmd
}

func rulesSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Show or install the built-in rules",
		Long: `Show the built-in global rules used when the global collection is
empty. With --install they are copied into the global collection.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			seed := classification.SeedDocuments()

			install, _ := cmd.Flags().GetBool("install")
			if !install {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "ID\tCATEGORIA\tSUBCATEGORIA\tPATTERNS")
				for _, doc := range seed {
					row := documentRow(doc, model.GlobalCollection, "")
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row[0], row[2], row[3], row[4])
				}
				return w.Flush()
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, cleanup, err := openRuleStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			existing, err := store.ReadCollection(ctx, model.GlobalCollection)
			if err != nil {
				return fmt.Errorf("failed to read global rules: %w", err)
			}
			if len(existing) > 0 {
				return common.NewUserError(
					fmt.Sprintf("the global collection already holds %d rules", len(existing)), nil)
			}

			if _, err := store.AddRules(ctx, model.GlobalCollection, seed); err != nil {
				return fmt.Errorf("failed to install seed rules: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(),
				cli.FormatSuccess(fmt.Sprintf("Installed %d seed rules", len(seed))))
			return nil
		},
	}

	cmd.Flags().Bool("install", false, "copy the built-in rules into an empty global collection")
	return cmd
}

func rulesStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <id>",
		Short: "Show feedback stats for a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, cleanup, err := requireDatabase(ctx, cfg, "rules stats")
			if err != nil {
				return err
			}
			defer cleanup()

			record, err := db.GetRule(ctx, args[0])
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("rule %s not found", args[0]), err)
				}
				return err
			}

			stats := record.Stats
			if stats == nil {
				stats = &model.RuleStats{RuleID: record.ID}
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), formatStats(record, stats))
			return nil
		},
	}
}

func formatStats(record *storage.RuleRecord, stats *model.RuleStats) string {
	categoria, _ := record.Document[model.FieldCategoria].(string)
	subcategoria, _ := record.Document[model.FieldSubcategoria].(string)

	lines := []string{
		fmt.Sprintf("%s %s / %s", cli.BoldStyle.Render("Rule:"), categoria, subcategoria),
		fmt.Sprintf("%s %s", cli.BoldStyle.Render("Collection:"), record.Collection),
		fmt.Sprintf("%s %s", cli.BoldStyle.Render("Patterns:"), formatPatterns(record.Document[model.FieldPatterns])),
		fmt.Sprintf("%s %d (%d accepted)", cli.BoldStyle.Render("Feedback:"), stats.Total, stats.Successes),
	}
	if stats.Total > 0 {
		lines = append(lines, fmt.Sprintf("%s %.1f%%", cli.BoldStyle.Render("Success rate:"), stats.SuccessRate*100))
	}
	return cli.RenderBox(cli.ChartIcon+" "+record.ID, strings.Join(lines, "\n"))
}
