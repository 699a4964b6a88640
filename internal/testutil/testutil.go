// Package testutil provides shared test helpers for setting up the
// in-memory index and workspace registry.
package testutil

import (
	"testing"

	"github.com/halvorsen/skald/internal/index"
	"github.com/halvorsen/skald/internal/session"
)

// TestDB creates a private in-memory SQLite index that is automatically
// closed when the test ends.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestRegistry creates a workspace registry backed by a test index, with
// sweeping disabled.
func TestRegistry(t *testing.T) *session.Registry {
	t.Helper()
	return session.NewRegistry(0, 0, TestDB(t), nil)
}
