// Package testutil provides shared fixtures for tests that need a migrated
// ledger database.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/Veraticus/spice-ledger/internal/storage"
)

// BasicCategories is the category forest most tests start from.
var BasicCategories = model.CategoryDefinitions{
	"Food":      {"Groceries", "Dining"},
	"Transport": {"Fuel"},
	"Income":    {"Salary"},
}

// TestDB is a migrated in-memory ledger with its seeded categories indexed
// by name. Child categories are indexed as "Parent/Child".
type TestDB struct {
	Storage    *storage.SQLiteStorage
	t          *testing.T
	categories map[string]int64
}

// SetupTestDB creates a migrated in-memory database seeded with defs.
// The database is closed when the test finishes.
func SetupTestDB(t *testing.T, defs model.CategoryDefinitions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	if len(defs) > 0 {
		if _, err := store.SeedCategories(ctx, defs, false); err != nil {
			t.Fatalf("failed to seed categories: %v", err)
		}
	}

	db := &TestDB{Storage: store, t: t, categories: map[string]int64{}}
	db.indexCategories()
	return db
}

func (db *TestDB) indexCategories() {
	db.t.Helper()

	cats, err := db.Storage.ListCategories(context.Background())
	if err != nil {
		db.t.Fatalf("failed to list categories: %v", err)
	}

	names := make(map[int64]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	for _, c := range cats {
		key := c.Name
		if c.ParentID != nil {
			key = names[*c.ParentID] + "/" + c.Name
		}
		db.categories[key] = c.ID
	}
}

// MustCategoryID returns the id of a seeded category or fails the test.
func (db *TestDB) MustCategoryID(name string) int64 {
	db.t.Helper()
	id, ok := db.categories[name]
	if !ok {
		db.t.Fatalf("category %q was not seeded", name)
	}
	return id
}

// MustTransaction creates a transaction, optionally as one split in
// categoryID, and returns its id. Enabled rules still apply.
func (db *TestDB) MustTransaction(date, amount string, txType model.TransactionType, categoryID *int64) int64 {
	db.t.Helper()

	in := service.TransactionInput{
		Date:   date,
		Amount: ledger.RawAmount(amount),
		Type:   string(txType),
	}
	if categoryID != nil {
		in.Splits = []service.SplitInput{{CategoryID: categoryID, Amount: ledger.RawAmount(amount)}}
	}

	id, err := db.Storage.CreateTransaction(context.Background(), in)
	if err != nil {
		db.t.Fatalf("failed to create transaction: %v", err)
	}
	return id
}
