package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/solswan/cadence/internal/cli"
	"github.com/solswan/cadence/internal/model"
	"github.com/solswan/cadence/internal/service"
)

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction manually",
		Long: `Record a single transaction and run the incremental pattern update:
a matching pattern absorbs the transaction as a new occurrence, and a
repeated title with no pattern yet produces a suggestion.`,
		RunE: runAdd,
	}

	cmd.Flags().StringP("title", "t", "", "transaction title (required)")
	cmd.Flags().Float64P("amount", "a", 0, "transaction amount (required, positive)")
	cmd.Flags().String("type", "expense", "transaction type (income, expense)")
	cmd.Flags().StringP("category", "c", "", "expense category")
	cmd.Flags().String("date", "", "transaction date (YYYY-MM-DD, default today)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	userID := currentUser()

	title, _ := cmd.Flags().GetString("title")
	amount, _ := cmd.Flags().GetFloat64("amount")
	kindFlag, _ := cmd.Flags().GetString("type")
	category, _ := cmd.Flags().GetString("category")
	dateFlag, _ := cmd.Flags().GetString("date")

	kind := model.EntryKind(kindFlag)
	if !kind.Valid() {
		return fmt.Errorf("invalid type %q: must be income or expense", kindFlag)
	}
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	date := time.Now()
	if dateFlag != "" {
		parsed, err := time.Parse("2006-01-02", dateFlag)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", dateFlag, err)
		}
		date = parsed
	}

	entry := model.Entry{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Amount:    amount,
		Kind:      kind,
		Category:  category,
		Date:      date,
		CreatedAt: time.Now(),
	}
	entry.Hash = entry.GenerateHash()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveEntries(ctx, []model.Entry{entry}); err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	eng, err := initEngine(store)
	if err != nil {
		return err
	}

	result, err := eng.RecordTransaction(ctx, userID, entry)
	if err != nil {
		return fmt.Errorf("failed to update patterns: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("recorded %s %.2f (%s)", kind, amount, title)))

	switch result.Outcome {
	case service.OutcomeUpdated:
		fmt.Println(cli.FormatSuccess(fmt.Sprintf(
			"matched pattern %q — next expected %s",
			result.Pattern.Title,
			result.Pattern.NextExpected.Format("2006-01-02"))))
	case service.OutcomeCreated:
		fmt.Println(cli.FormatWarning(fmt.Sprintf(
			"looks like a new %s pattern for %q — run 'cadence patterns detect' to confirm",
			string(result.Draft.Frequency), result.Draft.Title)))
	case service.OutcomeNone:
		// Nothing to report.
	}

	return nil
}
