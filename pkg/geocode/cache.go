package geocode

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// cacheKey returns SHA-256 hex of the normalized address.
func cacheKey(address string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(address), " "))
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

// sqliteCache stores geocode results, matches and non-matches alike, keyed by
// address hash.
type sqliteCache struct {
	db *sql.DB
}

const cacheMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address_hash TEXT PRIMARY KEY,
	latitude     REAL NOT NULL,
	longitude    REAL NOT NULL,
	source       TEXT NOT NULL,
	display_name TEXT NOT NULL,
	matched      INTEGER NOT NULL,
	cached_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func newSQLiteCache(path string) (*sqliteCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: open cache")
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "geocode: cache pragma")
	}
	if _, err := db.Exec(cacheMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "geocode: cache migrate")
	}
	return &sqliteCache{db: db}, nil
}

func (c *sqliteCache) get(ctx context.Context, key string) (*Result, error) {
	var r Result
	var matched int
	row := c.db.QueryRowContext(ctx,
		`SELECT latitude, longitude, source, display_name, matched
		 FROM geocode_cache WHERE address_hash = ?`, key)
	if err := row.Scan(&r.Latitude, &r.Longitude, &r.Source, &r.DisplayName, &matched); err != nil {
		return nil, err // no row or scan error, caller handles
	}
	r.Matched = matched != 0
	return &r, nil
}

func (c *sqliteCache) put(ctx context.Context, key string, result *Result) error {
	matched := 0
	if result.Matched {
		matched = 1
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO geocode_cache (address_hash, latitude, longitude, source, display_name, matched, cached_at)
		 VALUES (?, ?, ?, ?, ?, ?, datetime('now'))
		 ON CONFLICT (address_hash) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			source = excluded.source,
			display_name = excluded.display_name,
			matched = excluded.matched,
			cached_at = datetime('now')`,
		key, result.Latitude, result.Longitude, result.Source, result.DisplayName, matched,
	)
	if err != nil {
		return eris.Wrap(err, "geocode: store cache")
	}
	return nil
}
