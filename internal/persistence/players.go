package persistence

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Starting balances and caps for a fresh commander.
const (
	startCredits     = 500
	startMaxCredits  = 10000
	startMaxMetal    = 5000
	startMaxCrystals = 2000
	startMaxDrones   = 4
	startMaxArrays   = 2
)

// CreatePlayer inserts a new player with starting balances and caps.
func (s *Store) CreatePlayer(name string, now int64) (*Player, error) {
	res, err := s.db.Exec(`
		INSERT INTO players
			(name, credits, max_credits, max_metal, max_crystals,
			 max_drones, max_arrays, hub_level, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		name, startCredits, startMaxCredits, startMaxMetal, startMaxCrystals,
		startMaxDrones, startMaxArrays, now)
	if err != nil {
		return nil, fmt.Errorf("create player %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetPlayer(id)
}

// GetPlayer loads one player row.
func (s *Store) GetPlayer(id int64) (*Player, error) {
	return GetPlayer(s.db, id)
}

// GetPlayer loads one player row using the given executor (tx or db).
func GetPlayer(q sqlx.Queryer, id int64) (*Player, error) {
	var p Player
	err := sqlx.Get(q, &p, `SELECT * FROM players WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get player %d: %w", id, err)
	}
	return &p, nil
}

// AllPlayerIDs returns every player id, for per-player sweeps.
func (s *Store) AllPlayerIDs() ([]int64, error) {
	var ids []int64
	err := s.db.Select(&ids, `SELECT id FROM players ORDER BY id`)
	return ids, err
}

// AdvanceHubLevel bumps the hub one level and doubles storage and unit caps.
// Conditional on the current level so two concurrent upgrades cannot both
// apply.
func AdvanceHubLevel(q sqlx.Ext, playerID int64, fromLevel int) error {
	res, err := q.Exec(`
		UPDATE players
		   SET hub_level = hub_level + 1,
		       max_credits = max_credits * 2,
		       max_metal = max_metal * 2,
		       max_crystals = max_crystals * 2,
		       max_drones = max_drones + 2,
		       max_arrays = max_arrays + 1
		 WHERE id = ? AND hub_level = ?`,
		playerID, fromLevel)
	if err != nil {
		return fmt.Errorf("advance hub for player %d: %w", playerID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("advance hub for player %d: %w", playerID, ErrRaceLost)
	}
	return nil
}
