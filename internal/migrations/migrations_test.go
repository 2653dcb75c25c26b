package migrations

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"farmacia/m/internal/database"
)

func TestRunCreatesSchemaAndStampsVersion(t *testing.T) {
	ctx := context.Background()
	db, err := database.Connect(ctx, filepath.Join(t.TempDir(), "farmacia.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := Run(ctx, db); err != nil {
		t.Fatalf("run: %v", err)
	}

	v, err := CurrentVersion(ctx, db)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v != Version {
		t.Fatalf("expected version %d, got %d", Version, v)
	}

	for _, name := range []string{
		"medications", "sales", "sale_lines",
		"idx_medications_name", "idx_medications_status", "idx_sales_sold_at",
		"idx_sale_lines_sale", "idx_sale_lines_medication",
	} {
		var found string
		if err := db.GetContext(ctx, &found, `SELECT name FROM sqlite_master WHERE name = ?`, name); err != nil {
			t.Fatalf("lookup %s: %v", name, err)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := database.Connect(ctx, filepath.Join(t.TempDir(), "farmacia.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := Run(ctx, db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO medications (code, name, image, price) VALUES ('AX1', 'PARACETAMOL', 'img', '5.5')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := Run(ctx, db); err != nil {
		t.Fatalf("second run: %v", err)
	}

	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM medications`); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected existing rows to survive, got %d", count)
	}
}

func TestRunRejectsNewerSchema(t *testing.T) {
	ctx := context.Background()
	db, err := database.Connect(ctx, filepath.Join(t.TempDir(), "farmacia.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, Version+1)); err != nil {
		t.Fatalf("stamp: %v", err)
	}
	if err := Run(ctx, db); !errors.Is(err, ErrSchemaTooNew) {
		t.Fatalf("expected ErrSchemaTooNew, got %v", err)
	}

	var tables int
	if err := db.GetContext(ctx, &tables, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'medications'`); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if tables != 0 {
		t.Fatalf("expected no schema changes on a newer file")
	}
}
