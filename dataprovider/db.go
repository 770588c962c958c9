// File: dataprovider/db.go
package dataprovider

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Marianu08/trading-alg-rama01/utilities"
)

// SQLiteCache stores the historical daily close-price/volume series per
// asset so a run does not re-download history the exchange already served.
type SQLiteCache struct {
	db *sql.DB
}

func NewSQLiteCache(cfg utilities.DatabaseConfig) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, err
	}
	schema := `
	CREATE TABLE IF NOT EXISTS close_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		asset TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		close REAL NOT NULL,
		volume REAL NOT NULL,
		UNIQUE(asset, timestamp)
	);
	CREATE INDEX IF NOT EXISTS idx_asset_timestamp ON close_sessions (asset, timestamp);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}
	return &SQLiteCache{db: db}, nil
}

// SaveSession upserts one daily session for an asset.
func (s *SQLiteCache) SaveSession(asset string, timestamp int64, closePrice, closeVolume float64) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO close_sessions (asset, timestamp, close, volume) VALUES (?, ?, ?, ?)`,
		asset, timestamp, closePrice, closeVolume)
	return err
}

// GetCloseSeries returns the cached close-price and close-volume series for
// an asset, oldest first. Both are empty when nothing is cached.
func (s *SQLiteCache) GetCloseSeries(asset string) ([]utilities.SessionPoint, []utilities.SessionPoint, error) {
	rows, err := s.db.Query(`SELECT timestamp, close, volume FROM close_sessions WHERE asset=? ORDER BY timestamp ASC`, asset)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query close sessions for %s: %w", asset, err)
	}
	defer rows.Close()

	var prices, volumes []utilities.SessionPoint
	for rows.Next() {
		var ts int64
		var closePrice, closeVolume float64
		if err := rows.Scan(&ts, &closePrice, &closeVolume); err != nil {
			return nil, nil, fmt.Errorf("failed to scan close session row: %w", err)
		}
		prices = append(prices, utilities.SessionPoint{Timestamp: ts, Value: closePrice})
		volumes = append(volumes, utilities.SessionPoint{Timestamp: ts, Value: closeVolume})
	}
	return prices, volumes, rows.Err()
}

// LatestSessionTimestamp returns the newest cached session timestamp for an
// asset, zero when nothing is cached.
func (s *SQLiteCache) LatestSessionTimestamp(asset string) (int64, error) {
	var ts sql.NullInt64
	err := s.db.QueryRow(`SELECT MAX(timestamp) FROM close_sessions WHERE asset=?`, asset).Scan(&ts)
	if err != nil {
		return 0, err
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// CleanupOldSessions removes sessions older than the cutoff.
func (s *SQLiteCache) CleanupOldSessions(olderThan time.Time) error {
	_, err := s.db.Exec(`DELETE FROM close_sessions WHERE timestamp < ?`, olderThan.Unix())
	return err
}

func (s *SQLiteCache) Close() error {
	return s.db.Close()
}
