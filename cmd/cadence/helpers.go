package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/solswan/cadence/internal/config"
	"github.com/solswan/cadence/internal/engine"
	"github.com/solswan/cadence/internal/llm"
	"github.com/solswan/cadence/internal/pattern"
	"github.com/solswan/cadence/internal/service"
	"github.com/solswan/cadence/internal/storage"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	// Get database path from config
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initEngine wires storage and the configured LLM analyzer into a
// pattern engine.
func initEngine(store service.Storage) (*engine.PatternEngine, error) {
	client, err := llm.NewClient(llm.Config{
		Provider:    viper.GetString("llm.provider"),
		APIKey:      viper.GetString("llm.api_key"),
		Model:       viper.GetString("llm.model"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	return engine.New(store, pattern.NewAIAnalyzer(client)), nil
}

// currentUser returns the user every command operates on.
func currentUser() string {
	user := viper.GetString("user")
	if user == "" {
		user = "default"
	}
	return user
}
