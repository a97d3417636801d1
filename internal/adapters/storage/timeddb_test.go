package storage

import (
	"context"
	"testing"

	_ "modernc.org/sqlite"

	"ctbadmin/internal/adapters/http/perf"
)

// TestTimedDB_RecordsEachStatement verifies every call reaches the collector.
func TestTimedDB_RecordsEachStatement(t *testing.T) {
	db := openTestDB(t)
	if err := InitDB(db); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(db, collector)
	ctx := context.Background()

	if _, err := tdb.ExecContext(ctx, "INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)", "k", "v", "now"); err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
	var v string
	if err := tdb.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", "k").Scan(&v); err != nil {
		t.Fatalf("QueryRowContext: %v", err)
	}
	rows, err := tdb.QueryContext(ctx, "SELECT key FROM kv")
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	rows.Close()

	if collector.TotalRecorded() != 3 {
		t.Errorf("TotalRecorded = %d, want 3", collector.TotalRecorded())
	}
}

// TestVerb tests statement labelling.
func TestVerb(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{query: "SELECT 1", want: "kv.SELECT"},
		{query: "\n\tinsert into kv", want: "kv.INSERT"},
		{query: "", want: "kv.?"},
	}
	for _, tt := range tests {
		if got := verb(tt.query); got != tt.want {
			t.Errorf("verb(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

// TestTimedDB_NilCollector verifies timing works without a collector.
func TestTimedDB_NilCollector(t *testing.T) {
	db := openTestDB(t)
	tdb := NewTimedDB(db, nil)
	if _, err := tdb.ExecContext(context.Background(), "CREATE TABLE t (id INTEGER)"); err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
}
