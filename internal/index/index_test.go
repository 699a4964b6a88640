package index

import (
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM refs`).Scan(&count); err != nil {
		t.Fatalf("refs table missing: %v", err)
	}
}

func TestUpsertAndSearch(t *testing.T) {
	db := testDB(t)
	row := DocRow{
		Workspace: "ws1",
		Name:      "trip.md",
		Title:     "Trip report",
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertDocument(row, "We hiked across the glacier.", []string{"cover.jpg"}); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}

	results, err := db.Search("ws1", "glacier", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Name != "trip.md" {
		t.Errorf("results = %v", results)
	}

	// Other workspaces must not see the document.
	other, err := db.Search("ws2", "glacier", 10)
	if err != nil {
		t.Fatalf("Search ws2: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("cross-workspace leak: %v", other)
	}
}

func TestReferencing(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocRow{Workspace: "ws", Name: "a.md", UpdatedAt: time.Now()}, "body", []string{"pic.png"})
	_ = db.UpsertDocument(DocRow{Workspace: "ws", Name: "b.md", UpdatedAt: time.Now()}, "body", []string{"pic.png", "other.bin"})

	sources, err := db.Referencing("ws", "pic.png")
	if err != nil {
		t.Fatalf("Referencing: %v", err)
	}
	if len(sources) != 2 {
		t.Errorf("sources = %v, want a.md and b.md", sources)
	}
}

func TestUpsertReplacesRefs(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocRow{Workspace: "ws", Name: "a.md", UpdatedAt: time.Now()}, "v1", []string{"x.png"})
	_ = db.UpsertDocument(DocRow{Workspace: "ws", Name: "a.md", UpdatedAt: time.Now()}, "v2", []string{"y.png"})

	if sources, _ := db.Referencing("ws", "x.png"); len(sources) != 0 {
		t.Errorf("stale ref survived: %v", sources)
	}
	if sources, _ := db.Referencing("ws", "y.png"); len(sources) != 1 {
		t.Errorf("new ref missing: %v", sources)
	}
}

func TestRenameDocument(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocRow{Workspace: "ws", Name: "old.md", Title: "T", UpdatedAt: time.Now()}, "searchable body", []string{"pic.png"})

	if err := db.RenameDocument("ws", "old.md", "new.md"); err != nil {
		t.Fatalf("RenameDocument: %v", err)
	}
	results, _ := db.Search("ws", "searchable", 10)
	if len(results) != 1 || results[0].Name != "new.md" {
		t.Errorf("results = %v, want new.md", results)
	}
	sources, _ := db.Referencing("ws", "pic.png")
	if len(sources) != 1 || sources[0] != "new.md" {
		t.Errorf("ref source = %v, want new.md", sources)
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocRow{Workspace: "ws", Name: "a.md", UpdatedAt: time.Now()}, "body text", []string{"pic.png"})

	if err := db.DeleteDocument("ws", "a.md"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if results, _ := db.Search("ws", "body", 10); len(results) != 0 {
		t.Errorf("document survived delete: %v", results)
	}
	if sources, _ := db.Referencing("ws", "pic.png"); len(sources) != 0 {
		t.Errorf("refs survived delete: %v", sources)
	}
}

func TestDeleteWorkspace(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocRow{Workspace: "ws1", Name: "a.md", UpdatedAt: time.Now()}, "alpha", nil)
	_ = db.UpsertDocument(DocRow{Workspace: "ws2", Name: "a.md", UpdatedAt: time.Now()}, "alpha", nil)

	if err := db.DeleteWorkspace("ws1"); err != nil {
		t.Fatalf("DeleteWorkspace: %v", err)
	}
	if results, _ := db.Search("ws1", "alpha", 10); len(results) != 0 {
		t.Errorf("ws1 survived: %v", results)
	}
	if results, _ := db.Search("ws2", "alpha", 10); len(results) != 1 {
		t.Errorf("ws2 affected: %v", results)
	}
}
