package persistence

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/talgya/rift-station/internal/content"
)

// droneLevelColumn maps an upgrade kind to the level column it advances.
// Dispatch is a fixed whitelist, never a caller-supplied column name.
var droneLevelColumn = map[content.UpgradeKind]string{
	content.UpgradeSpeed:   "speed_level",
	content.UpgradeCargo:   "cargo_level",
	content.UpgradeHarvest: "harvest_level",
}

// CreateDrone inserts an idle drone of the given tier.
func CreateDrone(q sqlx.Ext, playerID int64, tier int) (int64, error) {
	res, err := q.Exec(
		`INSERT INTO drones (player_id, tier, status) VALUES (?, ?, ?)`,
		playerID, tier, DroneIdle)
	if err != nil {
		return 0, fmt.Errorf("create drone for player %d: %w", playerID, err)
	}
	return res.LastInsertId()
}

// GetDrone loads one drone row.
func GetDrone(q sqlx.Queryer, id int64) (*Drone, error) {
	var d Drone
	err := sqlx.Get(q, &d, `SELECT * FROM drones WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("drone %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get drone %d: %w", id, err)
	}
	return &d, nil
}

// DronesOf returns all drones owned by a player.
func (s *Store) DronesOf(playerID int64) ([]Drone, error) {
	var out []Drone
	err := s.db.Select(&out,
		`SELECT * FROM drones WHERE player_id = ? ORDER BY id`, playerID)
	return out, err
}

// CountDrones counts a player's drones, for the max-drones cap.
func CountDrones(q sqlx.Queryer, playerID int64) (int64, error) {
	var n int64
	err := sqlx.Get(q, &n, `SELECT COUNT(*) FROM drones WHERE player_id = ?`, playerID)
	return n, err
}

// SetDroneStatus transitions a drone's status, conditional on the expected
// current status.
func SetDroneStatus(q sqlx.Ext, id int64, from, to string) error {
	res, err := q.Exec(
		`UPDATE drones SET status = ? WHERE id = ? AND status = ?`,
		to, id, from)
	if err != nil {
		return fmt.Errorf("drone %d %s→%s: %w", id, from, to, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("drone %d %s→%s: %w", id, from, to, ErrRaceLost)
	}
	return nil
}

// ForceDroneIdle unconditionally parks a drone. Used after the caller has
// already won the guarding mission transition.
func ForceDroneIdle(q sqlx.Ext, id int64) error {
	if _, err := q.Exec(`UPDATE drones SET status = ? WHERE id = ?`, DroneIdle, id); err != nil {
		return fmt.Errorf("idle drone %d: %w", id, err)
	}
	return nil
}

// StartDroneUpgrade stamps the upgrade-tracking fields, conditional on the
// drone being idle with no upgrade already in flight.
func StartDroneUpgrade(q sqlx.Ext, id int64, kind content.UpgradeKind, startedAt, completesAt int64) error {
	if _, ok := droneLevelColumn[kind]; !ok {
		return fmt.Errorf("drone %d: unknown upgrade kind %q", id, kind)
	}
	res, err := q.Exec(`
		UPDATE drones
		   SET upgrading_kind = ?, upgrade_started_at = ?, upgrade_completes_at = ?
		 WHERE id = ? AND status = ? AND upgrading_kind IS NULL`,
		string(kind), startedAt, completesAt, id, DroneIdle)
	if err != nil {
		return fmt.Errorf("start upgrade on drone %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("start upgrade on drone %d: %w", id, ErrRaceLost)
	}
	return nil
}

// DueDroneUpgrades returns drones whose in-flight upgrade has matured.
func (s *Store) DueDroneUpgrades(now int64) ([]Drone, error) {
	var out []Drone
	err := s.db.Select(&out, `
		SELECT * FROM drones
		 WHERE upgrading_kind IS NOT NULL AND upgrade_completes_at <= ?
		 ORDER BY upgrade_completes_at`, now)
	return out, err
}

// CompleteDroneUpgrade bumps the upgraded track's level and clears the
// upgrade-tracking fields, conditional on the recorded kind so a raced
// completion is a no-op for the loser.
func CompleteDroneUpgrade(q sqlx.Ext, id int64, kind content.UpgradeKind) error {
	col, ok := droneLevelColumn[kind]
	if !ok {
		return fmt.Errorf("drone %d: unknown upgrade kind %q", id, kind)
	}
	res, err := q.Exec(`
		UPDATE drones
		   SET `+col+` = `+col+` + 1,
		       upgrading_kind = NULL, upgrade_started_at = NULL, upgrade_completes_at = NULL
		 WHERE id = ? AND upgrading_kind = ?`,
		id, string(kind))
	if err != nil {
		return fmt.Errorf("complete upgrade on drone %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("complete upgrade on drone %d: %w", id, ErrRaceLost)
	}
	return nil
}
