package persistence

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// BuildFacility inserts a built facility row.
func BuildFacility(q sqlx.Ext, playerID int64, facType string, now int64) (int64, error) {
	res, err := q.Exec(`
		INSERT INTO facilities (player_id, type, is_built, is_powered, built_at)
		VALUES (?, ?, 1, 1, ?)`,
		playerID, facType, now)
	if err != nil {
		return 0, fmt.Errorf("build %s for player %d: %w", facType, playerID, err)
	}
	return res.LastInsertId()
}

// FacilitiesOf returns a player's built facilities.
func FacilitiesOf(q sqlx.Queryer, playerID int64) ([]Facility, error) {
	var out []Facility
	err := sqlx.Select(q, &out, `
		SELECT * FROM facilities
		 WHERE player_id = ? AND is_built = 1 ORDER BY id`, playerID)
	return out, err
}

// FacilityPowered reports whether a player has a built facility of the given
// type and whether it is powered. exists=false means the player has none;
// the engines treat that as unmetered operation.
func FacilityPowered(q sqlx.Queryer, playerID int64, facType string) (exists, powered bool, err error) {
	var isPowered bool
	err = sqlx.Get(q, &isPowered, `
		SELECT is_powered FROM facilities
		 WHERE player_id = ? AND type = ? AND is_built = 1
		 ORDER BY id LIMIT 1`, playerID, facType)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("facility %s for player %d: %w", facType, playerID, err)
	}
	return true, isPowered, nil
}

// CountFacilities counts a player's built facilities of one type.
func CountFacilities(q sqlx.Queryer, playerID int64, facType string) (int64, error) {
	var n int64
	err := sqlx.Get(q, &n, `
		SELECT COUNT(*) FROM facilities
		 WHERE player_id = ? AND type = ? AND is_built = 1`, playerID, facType)
	return n, err
}

// SetPoweredForTypes sets is_powered on every built facility of the listed
// types. Used by the power budget's full recomputation.
func SetPoweredForTypes(q sqlx.Ext, playerID int64, powered bool, types []string) error {
	if len(types) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`
		UPDATE facilities SET is_powered = ?
		 WHERE player_id = ? AND is_built = 1 AND type IN (?)`,
		powered, playerID, types)
	if err != nil {
		return fmt.Errorf("build powered update: %w", err)
	}
	if _, err := q.Exec(q.Rebind(query), args...); err != nil {
		return fmt.Errorf("set powered for player %d: %w", playerID, err)
	}
	return nil
}

// SetAllPowered sets is_powered on every built facility of a player.
func SetAllPowered(q sqlx.Ext, playerID int64, powered bool) error {
	_, err := q.Exec(
		`UPDATE facilities SET is_powered = ? WHERE player_id = ? AND is_built = 1`,
		powered, playerID)
	if err != nil {
		return fmt.Errorf("set all powered for player %d: %w", playerID, err)
	}
	return nil
}
