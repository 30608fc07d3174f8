package database

import "testing"

func TestOpenEnforcesForeignKeys(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	var on int
	if err := db.QueryRow(`PRAGMA foreign_keys`).Scan(&on); err != nil {
		t.Fatalf("query pragma: %v", err)
	}
	if on != 1 {
		t.Fatalf("foreign_keys = %d, want 1", on)
	}

	// A row pointing at a missing chore must be rejected, not silently kept.
	_, err = db.Exec(
		`INSERT INTO chore_images (chore_id, url, object_key, type) VALUES (9999, 'https://example.com/x.jpg', 'x', 'after')`,
	)
	if err == nil {
		t.Fatal("insert with dangling chore_id succeeded")
	}
}
