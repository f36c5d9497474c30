// Package storage provides the data persistence layer for the cadence application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/solswan/cadence/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrEmptySlice   = errors.New("slice cannot be empty")
	ErrInvalidEntry = errors.New("invalid entry")
	ErrInvalidDraft = errors.New("invalid draft")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateEntries validates a slice of entries.
func validateEntries(entries []model.Entry) error {
	if entries == nil {
		return fmt.Errorf("%w: entries", ErrNilParameter)
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: entries", ErrEmptySlice)
	}

	for i, entry := range entries {
		if err := validateEntry(&entry); err != nil {
			return fmt.Errorf("entry at index %d: %w", i, err)
		}
	}
	return nil
}

// validateEntry validates a single entry.
func validateEntry(entry *model.Entry) error {
	if entry.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidEntry)
	}
	if entry.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidEntry)
	}
	if entry.Title == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidEntry)
	}
	if !entry.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEntry, entry.Kind)
	}
	if entry.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidEntry)
	}
	if entry.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidEntry)
	}
	return nil
}

// validateDraft validates a pattern draft before upsert.
func validateDraft(draft *model.Draft) error {
	if draft.Title == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidDraft)
	}
	if !draft.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidDraft, draft.Type)
	}
	if !draft.Frequency.Valid() {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidDraft, draft.Frequency)
	}
	if draft.Confidence < 0 || draft.Confidence > 1 {
		return fmt.Errorf("%w: confidence out of range", ErrInvalidDraft)
	}
	return nil
}
