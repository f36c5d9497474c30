package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/solswan/cadence/internal/cli"
	"github.com/solswan/cadence/internal/service"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "patterns",
		Aliases: []string{"pattern"},
		Short:   "Detect and manage recurring transaction patterns",
	}

	// Subcommands
	cmd.AddCommand(patternsListCmd())
	cmd.AddCommand(patternsDetectCmd())
	cmd.AddCommand(patternsDisableCmd())

	return cmd
}

func patternsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known recurring patterns",
		Long: `List the user's recurring patterns without triggering a fresh AI
analysis. Falls back to quick heuristics when nothing is cached yet.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			userID := currentUser()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			eng, err := initEngine(store)
			if err != nil {
				return err
			}

			views, err := eng.GetCachedPatterns(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to list patterns: %w", err)
			}

			return printPatterns(cmd, views)
		},
	}

	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}

func patternsDetectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run pattern detection",
		Long: `Run the full detection flow: serve cached patterns when present,
otherwise analyze the transaction history (AI analysis when stale,
quick heuristics when fresh) and persist confident results.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			userID := currentUser()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			eng, err := initEngine(store)
			if err != nil {
				return err
			}

			views, err := eng.GetPatterns(ctx, userID)
			if err != nil {
				// Analysis failed entirely; the empty result is still valid output.
				fmt.Fprintln(os.Stderr, cli.FormatWarning(fmt.Sprintf("analysis unavailable: %v", err)))
			}

			return printPatterns(cmd, views)
		},
	}

	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}

func patternsDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <id>",
		Short: "Disable a recurring pattern",
		Long: `Mark a pattern inactive. Disabled patterns no longer absorb new
transactions and are excluded from reports.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID := currentUser()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid pattern id %q: %w", args[0], err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeactivatePattern(ctx, userID, id); err != nil {
				return fmt.Errorf("failed to disable pattern: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("pattern %d disabled", id)))
			return nil
		},
	}
}

func printPatterns(cmd *cobra.Command, views []service.PatternView) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(views)
	}

	fmt.Println(cli.FormatTitle("Recurring patterns"))
	fmt.Println(cli.RenderPatternTable(views))
	return nil
}
