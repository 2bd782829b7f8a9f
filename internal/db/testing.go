package db

import (
	"context"
	"testing"
)

// NewTestDB creates a migrated in-memory database for testing.
// The database is automatically closed when the test completes.
//
// Usage:
//
//	func TestSomething(t *testing.T) {
//	    t.Parallel()
//	    d := db.NewTestDB(t)
//	    // use d...
//	}
func NewTestDB(t testing.TB) *DB {
	t.Helper()

	d, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := d.Migrate(context.Background()); err != nil {
		_ = d.Close()
		t.Fatalf("migrate test db: %v", err)
	}

	t.Cleanup(func() {
		_ = d.Close()
	})

	return d
}
