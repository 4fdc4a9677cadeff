// Package persistence provides the SQLite-backed station state store.
// All engine-visible mutations go through conditional updates (zero rows
// affected means another process won the race) or through the clamp-on-write
// ledger primitives in ledger.go; nothing does read-then-write across
// round trips.
package persistence

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Sentinel errors surfaced by store operations. Engines treat ErrRaceLost as
// log-and-skip inside sweeps and as a transaction abort in user actions.
var (
	ErrRaceLost              = errors.New("conditional update affected no rows")
	ErrNotFound              = errors.New("row not found")
	ErrInsufficientResources = errors.New("insufficient resources")
)

// Store wraps the SQLite connection.
type Store struct {
	db *sqlx.DB
}

// Open opens or creates the station database at path. Use ":memory:" in tests.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite serializes writers; a single connection keeps the engine
	// tickers and API-driven transactions from tripping over SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	s := &Store{db: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside a transaction, rolling back on error or panic.
func (s *Store) WithTx(fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// DB exposes the underlying connection for read-only queries.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS players (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	credits INTEGER NOT NULL DEFAULT 0,
	metal INTEGER NOT NULL DEFAULT 0,
	crystals INTEGER NOT NULL DEFAULT 0,
	max_credits INTEGER NOT NULL,
	max_metal INTEGER NOT NULL,
	max_crystals INTEGER NOT NULL,
	last_credited INTEGER NOT NULL DEFAULT 0,
	max_drones INTEGER NOT NULL,
	max_arrays INTEGER NOT NULL,
	hub_level INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS drones (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	player_id INTEGER NOT NULL REFERENCES players(id) ON DELETE CASCADE,
	tier INTEGER NOT NULL,
	status TEXT NOT NULL DEFAULT 'idle',
	speed_level INTEGER NOT NULL DEFAULT 0,
	cargo_level INTEGER NOT NULL DEFAULT 0,
	harvest_level INTEGER NOT NULL DEFAULT 0,
	upgrading_kind TEXT,
	upgrade_started_at INTEGER,
	upgrade_completes_at INTEGER
);

CREATE TABLE IF NOT EXISTS missions (
	id TEXT PRIMARY KEY,
	player_id INTEGER NOT NULL REFERENCES players(id) ON DELETE CASCADE,
	drone_id INTEGER NOT NULL REFERENCES drones(id) ON DELETE CASCADE,
	node_id INTEGER NOT NULL,
	status TEXT NOT NULL DEFAULT 'traveling',
	cargo INTEGER NOT NULL,
	arrival_at INTEGER NOT NULL,
	completes_at INTEGER NOT NULL,
	return_at INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	completed_at INTEGER
);

CREATE TABLE IF NOT EXISTS resource_nodes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	player_id INTEGER NOT NULL REFERENCES players(id) ON DELETE CASCADE,
	kind TEXT NOT NULL,
	sector_x INTEGER NOT NULL,
	sector_y INTEGER NOT NULL,
	distance REAL NOT NULL,
	is_discovered INTEGER NOT NULL DEFAULT 0,
	total_amount REAL NOT NULL DEFAULT 0,
	remaining_amount REAL NOT NULL DEFAULT 0,
	last_extracted REAL NOT NULL DEFAULT 0,
	stability REAL NOT NULL DEFAULT 0,
	max_stability REAL NOT NULL DEFAULT 0,
	volatility_modifier REAL NOT NULL DEFAULT 1,
	collapsed INTEGER NOT NULL DEFAULT 0,
	collapsed_at INTEGER
);

CREATE TABLE IF NOT EXISTS extraction_arrays (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	player_id INTEGER NOT NULL REFERENCES players(id) ON DELETE CASCADE,
	tier INTEGER NOT NULL,
	status TEXT NOT NULL DEFAULT 'idle',
	uplink_level INTEGER NOT NULL DEFAULT 0,
	beam_level INTEGER NOT NULL DEFAULT 0,
	telemetry_level INTEGER NOT NULL DEFAULT 0,
	target_node_id INTEGER,
	lifetime_extracted REAL NOT NULL DEFAULT 0,
	upgrading_kind TEXT,
	upgrade_started_at INTEGER,
	upgrade_completes_at INTEGER
);

CREATE TABLE IF NOT EXISTS research_projects (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	player_id INTEGER NOT NULL REFERENCES players(id) ON DELETE CASCADE,
	tech_id TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'in_progress',
	started_at INTEGER NOT NULL,
	completes_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tech_unlocks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	player_id INTEGER NOT NULL REFERENCES players(id) ON DELETE CASCADE,
	tech_id TEXT NOT NULL,
	unlocked_at INTEGER NOT NULL,
	UNIQUE(player_id, tech_id)
);

CREATE TABLE IF NOT EXISTS facilities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	player_id INTEGER NOT NULL REFERENCES players(id) ON DELETE CASCADE,
	type TEXT NOT NULL,
	is_built INTEGER NOT NULL DEFAULT 1,
	is_powered INTEGER NOT NULL DEFAULT 1,
	built_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS ships (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	player_id INTEGER NOT NULL REFERENCES players(id) ON DELETE CASCADE,
	chassis_id TEXT NOT NULL,
	hull INTEGER NOT NULL,
	shields INTEGER NOT NULL,
	role TEXT NOT NULL DEFAULT 'reserve',
	destroyed INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS battles (
	id TEXT PRIMARY KEY,
	attacker_id INTEGER NOT NULL REFERENCES players(id) ON DELETE CASCADE,
	opponent TEXT NOT NULL,
	attacker_fleet TEXT NOT NULL,
	defender_fleet TEXT NOT NULL,
	turn_log BLOB NOT NULL,
	rounds INTEGER NOT NULL,
	victory INTEGER NOT NULL,
	reward_credits INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_missions_status ON missions(status);
CREATE INDEX IF NOT EXISTS idx_drones_player ON drones(player_id);
CREATE INDEX IF NOT EXISTS idx_nodes_player ON resource_nodes(player_id);
CREATE INDEX IF NOT EXISTS idx_arrays_status ON extraction_arrays(status);
CREATE INDEX IF NOT EXISTS idx_arrays_target ON extraction_arrays(target_node_id);
CREATE INDEX IF NOT EXISTS idx_research_status ON research_projects(status);
CREATE INDEX IF NOT EXISTS idx_facilities_player ON facilities(player_id);
CREATE INDEX IF NOT EXISTS idx_ships_player ON ships(player_id);
`
