package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/solswan/cadence/internal/cli"
	"github.com/solswan/cadence/internal/common"
	"github.com/solswan/cadence/internal/sheets"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export patterns to Google Sheets",
		Long: `Export the user's recurring patterns to a Google Sheets spreadsheet:
one row per pattern plus a per-frequency spend summary.

Authentication uses either a service account key
(GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH) or OAuth2 credentials
(GOOGLE_SHEETS_CLIENT_ID, GOOGLE_SHEETS_CLIENT_SECRET,
GOOGLE_SHEETS_REFRESH_TOKEN).`,
		RunE: runExport,
	}

	cmd.Flags().String("spreadsheet-id", "", "Existing spreadsheet to write to (default: create a new one)")

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
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
		return fmt.Errorf("failed to load patterns: %w", err)
	}

	if len(views) == 0 {
		fmt.Println(cli.FormatWarning("no patterns to export"))
		return nil
	}

	sheetsConfig := sheets.DefaultConfig()
	if err := sheetsConfig.LoadFromEnv(); err != nil {
		return common.NewUserError("Google Sheets is not configured", err)
	}
	if id, _ := cmd.Flags().GetString("spreadsheet-id"); id != "" {
		sheetsConfig.SpreadsheetID = id
	} else if id := viper.GetString("sheets.spreadsheet_id"); id != "" {
		sheetsConfig.SpreadsheetID = id
	}

	writer, err := sheets.NewWriter(ctx, sheetsConfig)
	if err != nil {
		return err
	}

	if err := writer.Write(ctx, userID, views); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("exported %d patterns", len(views))))

	return nil
}
