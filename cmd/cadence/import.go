package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/solswan/cadence/internal/cli"
	"github.com/solswan/cadence/internal/model"
	"github.com/solswan/cadence/internal/ofx"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import financial transactions from OFX or QFX (Quicken) files exported from your bank.

Examples:
  # Import single file
  cadence import ~/Downloads/chase_jan_2024.qfx

  # Import all QFX files in a directory
  cadence import ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	ctx := cmd.Context()
	userID := currentUser()

	// Expand globs and collect all files
	var allFiles []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			// If no glob matches, check if it's a direct file
			if _, err := os.Stat(pattern); err == nil {
				allFiles = append(allFiles, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
		} else {
			allFiles = append(allFiles, matches...)
		}
	}

	if len(allFiles) == 0 {
		return fmt.Errorf("no files found to import")
	}

	slog.Info("🔁 Importing OFX files...",
		"file_count", len(allFiles),
		"user", userID,
		"dry_run", dryRun)

	parser := ofx.NewParser()
	seen := make(map[string]bool)
	var allEntries []model.Entry

	bar := progressbar.NewOptions(len(allFiles),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Parsing files..."),
	)

	for _, filePath := range allFiles {
		f, err := os.Open(filePath) // #nosec G304
		if err != nil {
			slog.Error("Failed to open file", "file", filePath, "error", err)
			_ = bar.Add(1)
			continue
		}

		entries, err := parser.ParseFile(ctx, f, userID)
		_ = f.Close()
		if err != nil {
			slog.Error("Failed to parse OFX file", "file", filePath, "error", err)
			_ = bar.Add(1)
			continue
		}

		added := 0
		for _, entry := range entries {
			if !seen[entry.Hash] {
				seen[entry.Hash] = true
				allEntries = append(allEntries, entry)
				added++
			}
		}

		slog.Info("Processed file",
			"file", filepath.Base(filePath),
			"entries_found", len(entries),
			"added", added,
			"duplicates", len(entries)-added)
		_ = bar.Add(1)
	}
	fmt.Fprintln(os.Stderr)

	if len(allEntries) == 0 {
		slog.Warn("No transactions found in any file")
		return nil
	}

	if dryRun {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("dry run: %d transactions parsed, nothing saved", len(allEntries))))
		return nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveEntries(ctx, allEntries); err != nil {
		return fmt.Errorf("failed to save transactions: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("imported %d transactions for %s", len(allEntries), userID)))

	return nil
}
