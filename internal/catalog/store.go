// Package catalog is the SQLite-backed persistence layer for discovered match
// metadata. The catalog is keyed by match id; rediscovery of the same file
// supersedes the stored row.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jyothsnakarra/cricket-productivity-dashboard/internal/match"
)

// Store persists match metadata between runs so repeated invocations can list
// known matches without rescanning the data directory.
//
// WAL is enabled to support concurrent reads while a discovery pass writes.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	p := filepath.Clean(strings.TrimSpace(path))
	if p == "" {
		return nil, errors.New("missing db path")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Upsert stores one match, replacing any previous row with the same id.
// discovered_at is preserved across rediscovery; updated_at moves forward.
func (s *Store) Upsert(ctx context.Context, info match.Info) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return upsertOne(ctx, s.db, info)
}

func upsertOne(ctx context.Context, db execer, info match.Info) error {
	id := strings.TrimSpace(info.MatchID)
	if id == "" {
		return errors.New("missing match_id")
	}

	teamsJSON, err := json.Marshal(info.Teams)
	if err != nil {
		return err
	}
	outcomeJSON := []byte("{}")
	if len(info.Outcome) > 0 {
		outcomeJSON, err = json.Marshal(info.Outcome)
		if err != nil {
			return err
		}
	}

	now := time.Now().UnixMilli()
	_, err = db.ExecContext(ctx, `
INSERT INTO matches(
  match_id, display_name, teams, venue, match_date, match_type,
  event_name, significance, outcome, file_path,
  discovered_at_unix_ms, updated_at_unix_ms
) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(match_id) DO UPDATE SET
  display_name = excluded.display_name,
  teams = excluded.teams,
  venue = excluded.venue,
  match_date = excluded.match_date,
  match_type = excluded.match_type,
  event_name = excluded.event_name,
  significance = excluded.significance,
  outcome = excluded.outcome,
  file_path = excluded.file_path,
  updated_at_unix_ms = excluded.updated_at_unix_ms
`,
		id,
		info.DisplayName,
		string(teamsJSON),
		info.Venue,
		info.Date,
		info.MatchType,
		info.EventName,
		string(info.Significance),
		string(outcomeJSON),
		info.FilePath,
		now,
		now,
	)
	return err
}

// UpsertAll stores a discovery pass's results in one transaction: either the
// whole pass lands, or the catalog is left untouched.
func (s *Store) UpsertAll(ctx context.Context, infos []match.Info) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if len(infos) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, info := range infos {
		if err := upsertOne(ctx, tx, info); err != nil {
			return fmt.Errorf("upsert %s: %w", info.MatchID, err)
		}
	}
	return tx.Commit()
}

// Get returns one match by id, or nil when unknown.
func (s *Store) Get(ctx context.Context, matchID string) (*match.Info, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, errors.New("missing match_id")
	}

	row := s.db.QueryRowContext(ctx, `
SELECT match_id, display_name, teams, venue, match_date, match_type,
       event_name, significance, outcome, file_path
FROM matches
WHERE match_id = ?
`, matchID)

	info, err := scanInfo(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return info, nil
}

// List returns known matches ordered by most recently updated.
func (s *Store) List(ctx context.Context, limit int) ([]match.Info, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT match_id, display_name, teams, venue, match_date, match_type,
       event_name, significance, outcome, file_path
FROM matches
ORDER BY updated_at_unix_ms DESC, match_id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]match.Info, 0, limit)
	for rows.Next() {
		info, err := scanInfo(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of cataloged matches.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM matches`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Delete removes one match from the catalog.
func (s *Store) Delete(ctx context.Context, matchID string) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return errors.New("missing match_id")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM matches WHERE match_id = ?`, matchID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanInfo(scan func(dest ...any) error) (*match.Info, error) {
	var info match.Info
	var teamsJSON, outcomeJSON, significance string
	if err := scan(
		&info.MatchID,
		&info.DisplayName,
		&teamsJSON,
		&info.Venue,
		&info.Date,
		&info.MatchType,
		&info.EventName,
		&significance,
		&outcomeJSON,
		&info.FilePath,
	); err != nil {
		return nil, err
	}
	info.Significance = match.Significance(significance)
	if err := json.Unmarshal([]byte(teamsJSON), &info.Teams); err != nil {
		return nil, fmt.Errorf("decode teams for %s: %w", info.MatchID, err)
	}
	if outcomeJSON != "" && outcomeJSON != "{}" {
		if err := json.Unmarshal([]byte(outcomeJSON), &info.Outcome); err != nil {
			return nil, fmt.Errorf("decode outcome for %s: %w", info.MatchID, err)
		}
	}
	return &info, nil
}

func initSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("nil db")
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=3000;`); err != nil {
		return fmt.Errorf("pragma busy_timeout: %w", err)
	}
	return migrateSchema(db)
}

func migrateSchema(db *sql.DB) error {
	const targetVersion = 1

	var v int
	if err := db.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return fmt.Errorf("pragma user_version: %w", err)
	}
	if v >= targetVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS matches (
  match_id TEXT PRIMARY KEY,
  display_name TEXT NOT NULL DEFAULT '',
  teams TEXT NOT NULL DEFAULT '[]',
  venue TEXT NOT NULL DEFAULT '',
  match_date TEXT NOT NULL DEFAULT '',
  match_type TEXT NOT NULL DEFAULT '',
  event_name TEXT NOT NULL DEFAULT '',
  significance TEXT NOT NULL DEFAULT '',
  outcome TEXT NOT NULL DEFAULT '{}',
  file_path TEXT NOT NULL DEFAULT '',
  discovered_at_unix_ms INTEGER NOT NULL,
  updated_at_unix_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_matches_updated ON matches(updated_at_unix_ms DESC, match_id DESC);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version=%d;`, targetVersion)); err != nil {
		return err
	}
	return tx.Commit()
}
