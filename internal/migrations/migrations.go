package migrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrSchemaTooNew means the database file was written by a newer binary.
var ErrSchemaTooNew = errors.New("schema version newer than supported")

// Version is the schema version written to PRAGMA user_version once every
// step has been applied.
var Version = len(steps)

// steps[i] upgrades the schema from version i to i+1.
var steps = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS medications (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            code TEXT NOT NULL,
            name TEXT NOT NULL,
            image TEXT NOT NULL,
            price TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive'))
        );`,
		`CREATE INDEX IF NOT EXISTS idx_medications_name ON medications(name);`,
		`CREATE INDEX IF NOT EXISTS idx_medications_status ON medications(status);`,
		`CREATE TABLE IF NOT EXISTS sales (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            sold_at INTEGER NOT NULL,
            total TEXT NOT NULL,
            document_number TEXT NOT NULL,
            document_complement TEXT NOT NULL DEFAULT '',
            customer_name TEXT NOT NULL,
            payment_method TEXT NOT NULL DEFAULT 'CASH',
            status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive'))
        );`,
		`CREATE INDEX IF NOT EXISTS idx_sales_sold_at ON sales(sold_at);`,
		`CREATE TABLE IF NOT EXISTS sale_lines (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            sale_id INTEGER NOT NULL,
            medication_id INTEGER NOT NULL,
            quantity INTEGER NOT NULL CHECK (quantity > 0),
            unit_price TEXT NOT NULL,
            line_total TEXT NOT NULL,
            FOREIGN KEY(sale_id) REFERENCES sales(id),
            FOREIGN KEY(medication_id) REFERENCES medications(id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_sale_lines_sale ON sale_lines(sale_id);`,
		`CREATE INDEX IF NOT EXISTS idx_sale_lines_medication ON sale_lines(medication_id);`,
	},
}

// Run brings the schema up to Version. Steps at or below the stored
// user_version are skipped, so running it again is a no-op.
func Run(ctx context.Context, db *sqlx.DB) error {
	current, err := CurrentVersion(ctx, db)
	if err != nil {
		return err
	}
	if current > len(steps) {
		return fmt.Errorf("%w: file is at version %d, this build knows %d", ErrSchemaTooNew, current, len(steps))
	}

	for v := current; v < len(steps); v++ {
		if err := apply(ctx, db, v+1, steps[v]); err != nil {
			return err
		}
	}
	return nil
}

// CurrentVersion reads the schema version stamped in the database file.
func CurrentVersion(ctx context.Context, db *sqlx.DB) (int, error) {
	var v int
	if err := db.GetContext(ctx, &v, `PRAGMA user_version`); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func apply(ctx context.Context, db *sqlx.DB, version int, stmts []string) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", version, err)
	}
	defer tx.Rollback()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", version, err)
		}
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, version)); err != nil {
		return fmt.Errorf("stamp schema version %d: %w", version, err)
	}
	return tx.Commit()
}
