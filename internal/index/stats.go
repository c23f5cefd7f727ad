package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/filedeck/internal/models"
)

// GetStats returns cached statistics for rel.
func (db *DB) GetStats(rel string) (models.Stats, bool, error) {
	var s models.Stats
	err := db.conn.QueryRow(`SELECT files, folders, bytes FROM dir_stats WHERE path = ?`, rel).
		Scan(&s.Files, &s.Folders, &s.Bytes)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Stats{}, false, nil
	}
	if err != nil {
		return models.Stats{}, false, fmt.Errorf("index: get stats: %w", err)
	}
	return s, true, nil
}

// PutStats stores statistics for rel.
func (db *DB) PutStats(rel string, s models.Stats) error {
	_, err := db.conn.Exec(`
		INSERT INTO dir_stats (path, files, folders, bytes, computed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			files       = excluded.files,
			folders     = excluded.folders,
			bytes       = excluded.bytes,
			computed_at = excluded.computed_at
	`, rel, s.Files, s.Folders, int64(s.Bytes), time.Now())
	if err != nil {
		return fmt.Errorf("index: put stats: %w", err)
	}
	return nil
}

// InvalidateStats drops the entry for rel, every ancestor of rel and every
// descendant of rel.
func (db *DB) InvalidateStats(rel string) error {
	if rel == "" {
		return db.ClearStats()
	}
	paths := ancestors(rel)
	args := make([]any, 0, len(paths)+1)
	for _, p := range paths {
		args = append(args, p)
	}
	args = append(args, escapeLike(rel)+"/%")
	query := `DELETE FROM dir_stats WHERE path IN (?` + strings.Repeat(", ?", len(paths)-1) + `) OR path LIKE ? ESCAPE '\'`
	if _, err := db.conn.Exec(query, args...); err != nil {
		return fmt.Errorf("index: invalidate stats: %w", err)
	}
	return nil
}

// ClearStats empties the statistics cache.
func (db *DB) ClearStats() error {
	if _, err := db.conn.Exec(`DELETE FROM dir_stats`); err != nil {
		return fmt.Errorf("index: clear stats: %w", err)
	}
	return nil
}

// ancestors returns rel and all of its parents up to and including the root
// ("").
func ancestors(rel string) []string {
	out := []string{rel}
	for {
		i := strings.LastIndex(rel, "/")
		if i < 0 {
			break
		}
		rel = rel[:i]
		out = append(out, rel)
	}
	return append(out, "")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
