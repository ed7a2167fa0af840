// Package store persists episode results and learned policy tables.
//
// Parquet batches hold the per-turn archive for offline analysis; SQLite
// holds the episode result log and the Q-table between sessions.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/brensch/autosnake/agent"
)

// DB wraps the SQLite connection with thread-safe operations.
type DB struct {
	conn *sql.DB
	mu   sync.Mutex
}

// Episode is one recorded episode result.
type Episode struct {
	ID       string
	Strategy string
	Score    int
	Steps    int
	Cause    string
	Won      bool
	PlayedAt time.Time
}

// Open creates the database connection and initializes the schema.
func Open(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS episodes (
		id TEXT PRIMARY KEY,
		strategy TEXT,
		score INTEGER,
		steps INTEGER,
		cause TEXT,            -- "wall", "self", or "" when the episode was won or truncated
		won BOOLEAN DEFAULT 0,
		played_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Learned action values, one row per discretized state.
	CREATE TABLE IF NOT EXISTS policy (
		dx INTEGER,
		dy INTEGER,
		dir INTEGER,
		q_up REAL,
		q_down REAL,
		q_left REAL,
		q_right REAL,
		PRIMARY KEY (dx, dy, dir)
	);

	CREATE INDEX IF NOT EXISTS idx_episodes_strategy ON episodes(strategy);
	`

	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// InsertEpisode records one finished episode.
func (db *DB) InsertEpisode(ep Episode) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(
		"INSERT OR IGNORE INTO episodes (id, strategy, score, steps, cause, won) VALUES (?, ?, ?, ?, ?, ?)",
		ep.ID, ep.Strategy, ep.Score, ep.Steps, ep.Cause, ep.Won,
	)
	if err != nil {
		return fmt.Errorf("failed to insert episode: %w", err)
	}
	return nil
}

// RecentEpisodes returns the most recent episodes, newest first.
func (db *DB) RecentEpisodes(limit int) ([]Episode, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.Query(
		"SELECT id, strategy, score, steps, cause, won, played_at FROM episodes ORDER BY played_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Episode
	for rows.Next() {
		var ep Episode
		if err := rows.Scan(&ep.ID, &ep.Strategy, &ep.Score, &ep.Steps, &ep.Cause, &ep.Won, &ep.PlayedAt); err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

// SaveTable replaces the persisted policy with the exported table, in a
// single transaction.
func (db *DB) SaveTable(table map[agent.LearnState]agent.ActionValues) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM policy"); err != nil {
		return fmt.Errorf("failed to clear policy: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO policy (dx, dy, dir, q_up, q_down, q_left, q_right) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare policy statement: %w", err)
	}
	defer stmt.Close()

	for state, values := range table {
		_, err := stmt.Exec(state.DX, state.DY, state.Dir, values[0], values[1], values[2], values[3])
		if err != nil {
			return fmt.Errorf("failed to insert policy row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadTable reads the persisted policy. An empty database yields an empty
// table, not an error.
func (db *DB) LoadTable() (map[agent.LearnState]agent.ActionValues, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.Query("SELECT dx, dy, dir, q_up, q_down, q_left, q_right FROM policy")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	table := make(map[agent.LearnState]agent.ActionValues)
	for rows.Next() {
		var state agent.LearnState
		var values agent.ActionValues
		if err := rows.Scan(&state.DX, &state.DY, &state.Dir, &values[0], &values[1], &values[2], &values[3]); err != nil {
			return nil, err
		}
		table[state] = values
	}
	return table, rows.Err()
}

// Stats returns aggregate episode counts.
func (db *DB) Stats() (total, won int64, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	err = db.conn.QueryRow("SELECT COUNT(*) FROM episodes").Scan(&total)
	if err != nil {
		return
	}
	err = db.conn.QueryRow("SELECT COUNT(*) FROM episodes WHERE won = 1").Scan(&won)
	return
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
