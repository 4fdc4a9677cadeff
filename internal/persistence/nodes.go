package persistence

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CreateNode inserts a resource node and returns its id.
func CreateNode(q sqlx.Ext, n *ResourceNode) (int64, error) {
	res, err := q.Exec(`
		INSERT INTO resource_nodes
			(player_id, kind, sector_x, sector_y, distance, is_discovered,
			 total_amount, remaining_amount, stability, max_stability,
			 volatility_modifier)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.PlayerID, n.Kind, n.SectorX, n.SectorY, n.Distance, n.IsDiscovered,
		n.TotalAmount, n.RemainingAmount, n.Stability, n.MaxStability,
		n.VolatilityModifier)
	if err != nil {
		return 0, fmt.Errorf("create node: %w", err)
	}
	return res.LastInsertId()
}

// GetNode loads one node row.
func GetNode(q sqlx.Queryer, id int64) (*ResourceNode, error) {
	var n ResourceNode
	err := sqlx.Get(q, &n, `SELECT * FROM resource_nodes WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("node %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get node %d: %w", id, err)
	}
	return &n, nil
}

// NodesOf returns a player's discovered nodes.
func (s *Store) NodesOf(playerID int64) ([]ResourceNode, error) {
	var out []ResourceNode
	err := s.db.Select(&out, `
		SELECT * FROM resource_nodes
		 WHERE player_id = ? AND is_discovered = 1 ORDER BY id`, playerID)
	return out, err
}

// DiscoverNode flips the one-way discovery flag. ErrRaceLost means it was
// already discovered.
func DiscoverNode(q sqlx.Ext, id int64) error {
	res, err := q.Exec(
		`UPDATE resource_nodes SET is_discovered = 1 WHERE id = ? AND is_discovered = 0`, id)
	if err != nil {
		return fmt.Errorf("discover node %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("discover node %d: %w", id, ErrRaceLost)
	}
	return nil
}

// NodeAtSector reports whether a player already has a node recorded at the
// given sector.
func NodeAtSector(q sqlx.Queryer, playerID, x, y int64) (bool, error) {
	var n int64
	err := sqlx.Get(q, &n, `
		SELECT COUNT(*) FROM resource_nodes
		 WHERE player_id = ? AND sector_x = ? AND sector_y = ?`, playerID, x, y)
	return n > 0, err
}

// CountDiscovered counts a player's discovered nodes, for the scanner cap.
func CountDiscovered(q sqlx.Queryer, playerID int64) (int64, error) {
	var n int64
	err := sqlx.Get(q, &n, `
		SELECT COUNT(*) FROM resource_nodes
		 WHERE player_id = ? AND is_discovered = 1`, playerID)
	return n, err
}

// ActiveRifts returns every discovered, non-collapsed rift across all
// players, for the decay sweep.
func (s *Store) ActiveRifts() ([]ResourceNode, error) {
	var out []ResourceNode
	err := s.db.Select(&out, `
		SELECT * FROM resource_nodes
		 WHERE kind = ? AND is_discovered = 1 AND collapsed = 0 ORDER BY id`,
		NodeRift)
	return out, err
}

// MarkCollapsed flips a rift into its terminal collapsed state, conditional
// on stability having reached zero and the flag not already being set.
func MarkCollapsed(q sqlx.Ext, id int64, now int64) error {
	res, err := q.Exec(`
		UPDATE resource_nodes SET collapsed = 1, collapsed_at = ?
		 WHERE id = ? AND collapsed = 0 AND stability <= 0`,
		now, id)
	if err != nil {
		return fmt.Errorf("collapse node %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("collapse node %d: %w", id, ErrRaceLost)
	}
	return nil
}
