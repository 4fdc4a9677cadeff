package persistence

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CreateShip inserts a ship at full hull and shields.
func CreateShip(q sqlx.Ext, playerID int64, chassisID string, hull, shields int64, role string) (int64, error) {
	res, err := q.Exec(`
		INSERT INTO ships (player_id, chassis_id, hull, shields, role)
		VALUES (?, ?, ?, ?, ?)`,
		playerID, chassisID, hull, shields, role)
	if err != nil {
		return 0, fmt.Errorf("create ship for player %d: %w", playerID, err)
	}
	return res.LastInsertId()
}

// FleetOf returns a player's living ships in the given role.
func FleetOf(q sqlx.Queryer, playerID int64, role string) ([]Ship, error) {
	var out []Ship
	err := sqlx.Select(q, &out, `
		SELECT * FROM ships
		 WHERE player_id = ? AND role = ? AND destroyed = 0 ORDER BY id`,
		playerID, role)
	return out, err
}

// ApplyShipDelta writes post-battle hull, shields, and destruction state.
// Hull and shields are already clamped by the resolver; destroyed is
// terminal so the update never resurrects a ship.
func ApplyShipDelta(q sqlx.Ext, shipID, hull, shields int64, destroyed bool) error {
	_, err := q.Exec(`
		UPDATE ships SET hull = ?, shields = ?, destroyed = MAX(destroyed, ?)
		 WHERE id = ?`,
		hull, shields, boolToInt(destroyed), shipID)
	if err != nil {
		return fmt.Errorf("apply delta to ship %d: %w", shipID, err)
	}
	return nil
}

// SaveBattle inserts the immutable battle record.
func SaveBattle(q sqlx.Ext, b *Battle) error {
	_, err := q.Exec(`
		INSERT INTO battles
			(id, attacker_id, opponent, attacker_fleet, defender_fleet,
			 turn_log, rounds, victory, reward_credits, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.AttackerID, b.Opponent, b.AttackerFleet, b.DefenderFleet,
		b.TurnLog, b.Rounds, b.Victory, b.RewardCredits, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("save battle %s: %w", b.ID, err)
	}
	return nil
}

// GetBattle loads one battle record.
func (s *Store) GetBattle(id string) (*Battle, error) {
	var b Battle
	if err := s.db.Get(&b, `SELECT * FROM battles WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("get battle %s: %w", id, err)
	}
	return &b, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
