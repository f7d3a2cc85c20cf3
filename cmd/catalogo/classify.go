package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Veraticus/catalogo/internal/classification"
	"github.com/Veraticus/catalogo/internal/cli"
	"github.com/Veraticus/catalogo/internal/model"
	"github.com/spf13/cobra"
)

// noMatchLabel is printed for texts no rule matched.
const noMatchLabel = "sin categoría"

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [text...]",
		Short: "Classify product descriptions",
		Long: `Classify product descriptions against the merged rule set.

Texts are taken from the arguments, or one per line from stdin when no
arguments are given. The first matching rule wins.`,
		RunE: runClassify,
	}

	addSelectionFlags(cmd)
	cmd.Flags().Bool("json", false, "print one JSON object per text")

	return cmd
}

// classifyOutput is the JSON shape of one classified text.
type classifyOutput struct {
	*model.ClassificationResult
	Text    string `json:"text"`
	Matched bool   `json:"matched"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	texts := args
	if len(texts) == 0 {
		texts, err = readTexts(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read texts: %w", err)
		}
	}
	if len(texts) == 0 {
		return fmt.Errorf("no texts to classify")
	}

	store, cleanup, err := openRuleStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := loadOptions(cmd, cfg)
	rules := newLoader(store, cfg).LoadRules(ctx, opts)
	slog.Debug("Loaded rules",
		"rubro", opts.Rubro,
		"tenant", opts.TenantID,
		"rules", rules.Len())

	asJSON, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)

	for _, text := range texts {
		result, ok := classification.Classify(text, rules)
		if asJSON {
			o := classifyOutput{Text: text, Matched: ok}
			if ok {
				o.ClassificationResult = &result
			}
			if err := enc.Encode(o); err != nil {
				return fmt.Errorf("failed to write result: %w", err)
			}
			continue
		}
		if _, err := fmt.Fprintln(out, formatResult(text, result, ok)); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
	}

	return nil
}

// readTexts returns the non-blank lines of r, trimmed.
func readTexts(r io.Reader) ([]string, error) {
	var texts []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			texts = append(texts, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return texts, nil
}

func formatResult(text string, result model.ClassificationResult, ok bool) string {
	if !ok {
		return fmt.Sprintf("%s  %s", cli.BoldStyle.Render(text), cli.FormatWarning(noMatchLabel))
	}
	return fmt.Sprintf("%s  %s %s",
		cli.BoldStyle.Render(text),
		cli.FormatSuccess(result.Categoria+" / "+result.Subcategoria),
		cli.SubtleStyle.Render(fmt.Sprintf("(%s %s, /%s/)", result.Tier, result.RuleID, result.Pattern)))
}
