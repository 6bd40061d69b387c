// Package export writes a loaded trace table to external formats:
// a SQLite database for ad-hoc SQL, or CSV for spreadsheet tools.
package export

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/coffersTech/nanotrace/internal/frame"
)

// DefaultTable is the table name used when none is configured.
const DefaultTable = "events"

// ToSQLite writes the table to a SQLite database file. Every column is
// TEXT and missing cells become NULL, so the on-disk rows distinguish
// "attribute absent" from "attribute empty". All rows are inserted in a
// single transaction.
func ToSQLite(path, table string, f *frame.Frame) error {
	if table == "" {
		table = DefaultTable
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("opening database at %s: %w", path, err)
	}
	defer db.Close()

	names := f.Columns()
	if len(names) == 0 {
		// An empty trace exports as an empty database.
		return db.Ping()
	}

	quoted := make([]string, len(names))
	cols := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
		cols[i] = quoted[i] + " TEXT"
	}

	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(cols, ", "))
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("creating table %s: %w", table, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning export transaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(quoted, ", "), placeholders))
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(names))
	for row := 0; row < f.Len(); row++ {
		for i, name := range names {
			if v, ok := f.Value(row, name); ok {
				args[i] = v
			} else {
				args[i] = nil
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("inserting row %d: %w", row, err)
		}
	}

	return tx.Commit()
}

// quoteIdent quotes a column or table name so arbitrary trace attribute
// names survive as SQL identifiers.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
