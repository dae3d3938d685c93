//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS routes_fts USING fts5(
			path UNINDEXED,
			name,
			description,
			source,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path, name, description, source string) error {
	_, _ = tx.Exec(`DELETE FROM routes_fts WHERE path = ?`, path)
	_, err := tx.Exec(`INSERT INTO routes_fts (path, name, description, source) VALUES (?, ?, ?, ?)`,
		path, name, description, source)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM routes_fts WHERE path = ?`, path)
}

// Search performs an FTS5 full-text search over route names and descriptions.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT f.path,
		       f.name,
		       r.distance_km,
		       snippet(routes_fts, 2, '<b>', '</b>', '...', 32)
		FROM routes_fts f
		JOIN routes r ON r.path = f.path
		WHERE routes_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Name, &r.DistanceKm, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
