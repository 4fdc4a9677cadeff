package persistence

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/talgya/rift-station/internal/content"
)

var arrayLevelColumn = map[content.UpgradeKind]string{
	content.UpgradeUplink:    "uplink_level",
	content.UpgradeBeam:      "beam_level",
	content.UpgradeTelemetry: "telemetry_level",
}

// CreateArray inserts an idle extraction array of the given tier.
func CreateArray(q sqlx.Ext, playerID int64, tier int) (int64, error) {
	res, err := q.Exec(
		`INSERT INTO extraction_arrays (player_id, tier, status) VALUES (?, ?, ?)`,
		playerID, tier, ArrayIdle)
	if err != nil {
		return 0, fmt.Errorf("create array for player %d: %w", playerID, err)
	}
	return res.LastInsertId()
}

// GetArray loads one array row.
func GetArray(q sqlx.Queryer, id int64) (*ExtractionArray, error) {
	var a ExtractionArray
	err := sqlx.Get(q, &a, `SELECT * FROM extraction_arrays WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("array %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get array %d: %w", id, err)
	}
	return &a, nil
}

// ArraysOf returns all arrays owned by a player.
func (s *Store) ArraysOf(playerID int64) ([]ExtractionArray, error) {
	var out []ExtractionArray
	err := s.db.Select(&out,
		`SELECT * FROM extraction_arrays WHERE player_id = ? ORDER BY id`, playerID)
	return out, err
}

// CountArrays counts a player's arrays, for the max-arrays cap.
func CountArrays(q sqlx.Queryer, playerID int64) (int64, error) {
	var n int64
	err := sqlx.Get(q, &n, `SELECT COUNT(*) FROM extraction_arrays WHERE player_id = ?`, playerID)
	return n, err
}

// DeployedArrays returns every deployed array across all players.
func (s *Store) DeployedArrays() ([]ExtractionArray, error) {
	var out []ExtractionArray
	err := s.db.Select(&out,
		`SELECT * FROM extraction_arrays WHERE status = ? ORDER BY id`, ArrayDeployed)
	return out, err
}

// ArraysTargeting returns the deployed arrays pointed at one rift, so decay
// can account for extraction pressure.
func ArraysTargeting(q sqlx.Queryer, nodeID int64) ([]ExtractionArray, error) {
	var out []ExtractionArray
	err := sqlx.Select(q, &out, `
		SELECT * FROM extraction_arrays
		 WHERE status = ? AND target_node_id = ? ORDER BY id`,
		ArrayDeployed, nodeID)
	return out, err
}

// DeployArray points an idle array at a rift.
func DeployArray(q sqlx.Ext, id, nodeID int64) error {
	res, err := q.Exec(`
		UPDATE extraction_arrays SET status = ?, target_node_id = ?
		 WHERE id = ? AND status = ? AND upgrading_kind IS NULL`,
		ArrayDeployed, nodeID, id, ArrayIdle)
	if err != nil {
		return fmt.Errorf("deploy array %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("deploy array %d: %w", id, ErrRaceLost)
	}
	return nil
}

// RecallArray returns a deployed array to idle and clears its target.
func RecallArray(q sqlx.Ext, id int64) error {
	res, err := q.Exec(`
		UPDATE extraction_arrays SET status = ?, target_node_id = NULL
		 WHERE id = ? AND status = ?`,
		ArrayIdle, id, ArrayDeployed)
	if err != nil {
		return fmt.Errorf("recall array %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("recall array %d: %w", id, ErrRaceLost)
	}
	return nil
}

// DecommissionArray terminally retires one deployed array and clears its
// target.
func DecommissionArray(q sqlx.Ext, id int64) error {
	res, err := q.Exec(`
		UPDATE extraction_arrays SET status = ?, target_node_id = NULL
		 WHERE id = ? AND status = ?`,
		ArrayDecommissioned, id, ArrayDeployed)
	if err != nil {
		return fmt.Errorf("decommission array %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("decommission array %d: %w", id, ErrRaceLost)
	}
	return nil
}

// DecommissionArraysTargeting force-retires every array pointed at a
// collapsed rift. A collapse cannot leave an array referencing a dead node.
// Returns how many arrays were cascaded.
func DecommissionArraysTargeting(q sqlx.Ext, nodeID int64) (int64, error) {
	res, err := q.Exec(`
		UPDATE extraction_arrays SET status = ?, target_node_id = NULL
		 WHERE target_node_id = ?`,
		ArrayDecommissioned, nodeID)
	if err != nil {
		return 0, fmt.Errorf("cascade decommission for node %d: %w", nodeID, err)
	}
	return res.RowsAffected()
}

// AddLifetimeExtracted bumps an array's cumulative extraction counter.
func AddLifetimeExtracted(q sqlx.Ext, id int64, amount float64) error {
	_, err := q.Exec(
		`UPDATE extraction_arrays SET lifetime_extracted = lifetime_extracted + ? WHERE id = ?`,
		amount, id)
	if err != nil {
		return fmt.Errorf("bump lifetime extracted for array %d: %w", id, err)
	}
	return nil
}

// StartArrayUpgrade stamps the upgrade-tracking fields, conditional on the
// array being idle with no upgrade already in flight.
func StartArrayUpgrade(q sqlx.Ext, id int64, kind content.UpgradeKind, startedAt, completesAt int64) error {
	if _, ok := arrayLevelColumn[kind]; !ok {
		return fmt.Errorf("array %d: unknown upgrade kind %q", id, kind)
	}
	res, err := q.Exec(`
		UPDATE extraction_arrays
		   SET upgrading_kind = ?, upgrade_started_at = ?, upgrade_completes_at = ?
		 WHERE id = ? AND status = ? AND upgrading_kind IS NULL`,
		string(kind), startedAt, completesAt, id, ArrayIdle)
	if err != nil {
		return fmt.Errorf("start upgrade on array %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("start upgrade on array %d: %w", id, ErrRaceLost)
	}
	return nil
}

// DueArrayUpgrades returns arrays whose in-flight upgrade has matured.
func (s *Store) DueArrayUpgrades(now int64) ([]ExtractionArray, error) {
	var out []ExtractionArray
	err := s.db.Select(&out, `
		SELECT * FROM extraction_arrays
		 WHERE upgrading_kind IS NOT NULL AND upgrade_completes_at <= ?
		 ORDER BY upgrade_completes_at`, now)
	return out, err
}

// CompleteArrayUpgrade bumps the upgraded track's level and clears the
// upgrade-tracking fields.
func CompleteArrayUpgrade(q sqlx.Ext, id int64, kind content.UpgradeKind) error {
	col, ok := arrayLevelColumn[kind]
	if !ok {
		return fmt.Errorf("array %d: unknown upgrade kind %q", id, kind)
	}
	res, err := q.Exec(`
		UPDATE extraction_arrays
		   SET `+col+` = `+col+` + 1,
		       upgrading_kind = NULL, upgrade_started_at = NULL, upgrade_completes_at = NULL
		 WHERE id = ? AND upgrading_kind = ?`,
		id, string(kind))
	if err != nil {
		return fmt.Errorf("complete upgrade on array %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("complete upgrade on array %d: %w", id, ErrRaceLost)
	}
	return nil
}
