package main

import (
	"errors"
	"fmt"

	"github.com/Veraticus/catalogo/internal/cli"
	"github.com/Veraticus/catalogo/internal/common"
	"github.com/Veraticus/catalogo/internal/model"
	"github.com/Veraticus/catalogo/internal/storage"
	"github.com/spf13/cobra"
)

func feedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback <rule-id>",
		Short: "Record feedback on a rule's classification",
		Long: `Record whether a rule classified a text correctly. Pass --accepted
when it did, or the right --categoria and --subcategoria when it did not.
The rule's success rate is updated in the same transaction.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			accepted, _ := cmd.Flags().GetBool("accepted")
			categoria, _ := cmd.Flags().GetString("categoria")
			subcategoria, _ := cmd.Flags().GetString("subcategoria")
			text, _ := cmd.Flags().GetString("text")

			if accepted && (categoria != "" || subcategoria != "") {
				return common.NewUserError("--accepted cannot be combined with a correction", nil)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, cleanup, err := requireDatabase(ctx, cfg, "feedback")
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := db.RecordFeedback(ctx, model.Feedback{
				RuleID:       args[0],
				Text:         text,
				Categoria:    categoria,
				Subcategoria: subcategoria,
				Accepted:     accepted,
			})
			if err != nil {
				switch {
				case errors.Is(err, common.ErrNotFound):
					return common.NewUserError(fmt.Sprintf("rule %s not found", args[0]), err)
				case errors.Is(err, storage.ErrInvalidFeedback):
					return common.NewUserError("pass --accepted, or both --categoria and --subcategoria", err)
				}
				return fmt.Errorf("failed to record feedback: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
				"Recorded feedback for %s: %.1f%% success over %d classifications",
				stats.RuleID, stats.SuccessRate*100, stats.Total)))
			return nil
		},
	}

	cmd.Flags().Bool("accepted", false, "the rule's classification was correct")
	cmd.Flags().String("categoria", "", "correct category")
	cmd.Flags().String("subcategoria", "", "correct subcategory")
	cmd.Flags().String("text", "", "the classified text")
	return cmd
}
