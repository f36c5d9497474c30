package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// EntryKind discriminates the two leaf record types a transaction can
// point at.
type EntryKind string

// Supported entry kinds.
const (
	KindIncome  EntryKind = "income"
	KindExpense EntryKind = "expense"
)

// Valid reports whether the kind is one of the supported values.
func (k EntryKind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// DefaultCategory is assigned when a leaf record carries no category of
// its own (pure income entries, for example).
const DefaultCategory = "others"

// Entry is the unifying transaction record: exactly one income or expense
// leaf, identified by Kind. Matching and analysis switch on Kind rather
// than testing nullable leaf references.
type Entry struct {
	Date      time.Time
	CreatedAt time.Time
	ID        string
	UserID    string
	Title     string
	Category  string
	Hash      string
	Kind      EntryKind
	Amount    float64
}

// CategoryOrDefault returns the entry's category, substituting the
// default bucket when none was recorded.
func (e Entry) CategoryOrDefault() string {
	if e.Category == "" {
		return DefaultCategory
	}
	return e.Category
}

// GenerateHash creates a stable hash for duplicate detection on import.
func (e *Entry) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%.2f:%s:%s",
		e.UserID,
		e.Date.Format("2006-01-02"),
		e.Amount,
		e.Title,
		e.Kind)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
