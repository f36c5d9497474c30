package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/solswan/cadence/internal/service"
)

const reportSheetName = "Patterns"

// Writer exports pattern reports to a Google Sheets spreadsheet.
type Writer struct {
	service *sheetsapi.Service
	config  Config
}

// NewWriter creates a new Google Sheets report writer.
func NewWriter(ctx context.Context, config Config) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	svc, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: svc,
	}, nil
}

// Write replaces the report sheet contents with the given pattern views.
func (w *Writer) Write(ctx context.Context, userID string, views []service.PatternView) error {
	slog.Info("Starting pattern report export",
		"user_id", userID, "patterns", len(views))

	spreadsheetID, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	if err := w.clearSheet(ctx, spreadsheetID); err != nil {
		return fmt.Errorf("failed to clear sheet: %w", err)
	}

	values := prepareReportData(userID, views)

	_, err = w.service.Spreadsheets.Values.Update(
		spreadsheetID,
		fmt.Sprintf("%s!A1", reportSheetName),
		&sheetsapi.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	slog.Info("Pattern report export completed",
		"spreadsheet_id", spreadsheetID, "rows_written", len(values))

	return nil
}

// prepareReportData lays out the report: one header, one row per
// pattern, then a per-frequency summary block.
func prepareReportData(userID string, views []service.PatternView) [][]any {
	values := [][]any{
		{"Recurring patterns for " + userID},
		{},
		{"ID", "Title", "Type", "Category", "Frequency", "Amount", "Confidence", "Last Occurrence", "Next Expected", "Reason"},
	}

	totals := make(map[string]float64)
	counts := make(map[string]int)

	for _, v := range views {
		values = append(values, []any{
			v.ID, v.Title, v.Type, v.Category, v.Frequency,
			v.Amount, v.Confidence, v.LastOccurrence, v.NextExpected, v.Reason,
		})
		totals[v.Frequency] += v.Amount
		counts[v.Frequency]++
	}

	values = append(values, []any{}, []any{"Frequency", "Patterns", "Total Amount"})
	for _, freq := range []string{"daily", "weekly", "monthly", "quarterly", "yearly"} {
		if counts[freq] == 0 {
			continue
		}
		values = append(values, []any{freq, counts[freq], totals[freq]})
	}

	return values
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheetsapi.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath) // #nosec G304
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheetsapi.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		oauthConfig := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheetsapi.SpreadsheetsScope},
		}

		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}

		tokenSource = oauthConfig.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheetsapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet gets an existing spreadsheet or creates a new one.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if w.config.SpreadsheetID != "" {
		_, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		return w.config.SpreadsheetID, nil
	}

	spreadsheet := &sheetsapi.Spreadsheet{
		Properties: &sheetsapi.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheetsapi.Sheet{
			{
				Properties: &sheetsapi.SheetProperties{
					Title: reportSheetName,
				},
			},
		},
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	slog.Info("Created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	return created.SpreadsheetId, nil
}

// clearSheet clears the report sheet before writing fresh data.
func (w *Writer) clearSheet(ctx context.Context, spreadsheetID string) error {
	_, err := w.service.Spreadsheets.Values.Clear(
		spreadsheetID,
		reportSheetName,
		&sheetsapi.ClearValuesRequest{},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to clear sheet: %w", err)
	}
	return nil
}
