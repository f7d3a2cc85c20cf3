package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// setupSQLite points the global config at a fresh database.
func setupSQLite(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "catalogo.db")
	viper.Reset()
	viper.Set("database.path", dbPath)
	t.Cleanup(viper.Reset)
	return dbPath
}

// setupYAML points the global config at a fresh rule directory.
func setupYAML(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	viper.Reset()
	viper.Set("store.backend", "yaml")
	viper.Set("store.rules_dir", dir)
	t.Cleanup(viper.Reset)
	return dir
}

// execute runs cmd with args and stdin, returning what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}
