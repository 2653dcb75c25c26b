package database

import (
	"context"
	"path/filepath"
	"testing"
)

func TestConnectEnablesForeignKeys(t *testing.T) {
	db, err := Connect(context.Background(), filepath.Join(t.TempDir(), "nested", "farmacia.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	var enabled int
	if err := db.Get(&enabled, `PRAGMA foreign_keys`); err != nil {
		t.Fatalf("read pragma: %v", err)
	}
	if enabled != 1 {
		t.Fatalf("expected foreign keys on, got %d", enabled)
	}
}

func TestDSNKeepsExplicitPragmas(t *testing.T) {
	if got := dsn("file.db?_pragma=journal_mode(wal)"); got != "file.db?_pragma=journal_mode(wal)" {
		t.Fatalf("unexpected dsn %q", got)
	}
	if got := dsn("file.db?cache=shared"); got != "file.db?cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)" {
		t.Fatalf("unexpected dsn %q", got)
	}
}
