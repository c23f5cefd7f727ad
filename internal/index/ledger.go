package index

import (
	"fmt"
	"strings"
	"time"
)

// RecordTrash remembers the original location of a trashed item.
func (db *DB) RecordTrash(name, originalPath string, deletedAt time.Time) error {
	_, err := db.conn.Exec(`
		INSERT INTO trash_ledger (name, original_path, deleted_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			original_path = excluded.original_path,
			deleted_at    = excluded.deleted_at
	`, name, originalPath, deletedAt)
	if err != nil {
		return fmt.Errorf("index: record trash: %w", err)
	}
	return nil
}

// LookupTrash returns the original paths known for names. Names without a
// ledger entry are absent from the result.
func (db *DB) LookupTrash(names []string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	if len(names) == 0 {
		return out, nil
	}
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = n
	}
	rows, err := db.conn.Query(
		`SELECT name, original_path FROM trash_ledger WHERE name IN (?`+strings.Repeat(", ?", len(names)-1)+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("index: lookup trash: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name, orig string
		if err := rows.Scan(&name, &orig); err != nil {
			return nil, err
		}
		out[name] = orig
	}
	return out, rows.Err()
}

// ForgetTrash removes the ledger entry of name.
func (db *DB) ForgetTrash(name string) error {
	if _, err := db.conn.Exec(`DELETE FROM trash_ledger WHERE name = ?`, name); err != nil {
		return fmt.Errorf("index: forget trash: %w", err)
	}
	return nil
}

// TrashNames returns every name in the ledger.
func (db *DB) TrashNames() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT name FROM trash_ledger`)
	if err != nil {
		return nil, fmt.Errorf("index: trash names: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out[n] = struct{}{}
	}
	return out, rows.Err()
}
