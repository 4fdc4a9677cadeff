package persistence

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CreateMission inserts a mission row. Callers pair this with a conditional
// drone transition inside the same transaction.
func CreateMission(q sqlx.Ext, m *Mission) error {
	_, err := q.Exec(`
		INSERT INTO missions
			(id, player_id, drone_id, node_id, status, cargo,
			 arrival_at, completes_at, return_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.PlayerID, m.DroneID, m.NodeID, m.Status, m.Cargo,
		m.ArrivalAt, m.CompletesAt, m.ReturnAt, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create mission %s: %w", m.ID, err)
	}
	return nil
}

// GetMission loads one mission row.
func (s *Store) GetMission(id string) (*Mission, error) {
	var m Mission
	if err := s.db.Get(&m, `SELECT * FROM missions WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("get mission %s: %w", id, err)
	}
	return &m, nil
}

// DueMissions returns missions sitting in status whose deadline column has
// passed. The deadline column depends on the state being left:
// traveling→arrival_at, mining→completes_at, returning→return_at.
func (s *Store) DueMissions(status string, now int64) ([]Mission, error) {
	var col string
	switch status {
	case MissionTraveling:
		col = "arrival_at"
	case MissionMining:
		col = "completes_at"
	case MissionReturning:
		col = "return_at"
	default:
		return nil, fmt.Errorf("no deadline column for mission status %q", status)
	}
	var out []Mission
	err := s.db.Select(&out,
		`SELECT * FROM missions WHERE status = ? AND `+col+` <= ? ORDER BY `+col,
		status, now)
	if err != nil {
		return nil, fmt.Errorf("due missions %s: %w", status, err)
	}
	return out, nil
}

// TransitionMission moves a mission from one status to another, conditional
// on the expected current status. Zero rows affected means another process
// already moved it.
func TransitionMission(q sqlx.Ext, id, from, to string) error {
	res, err := q.Exec(
		`UPDATE missions SET status = ? WHERE id = ? AND status = ?`,
		to, id, from)
	if err != nil {
		return fmt.Errorf("transition mission %s %s→%s: %w", id, from, to, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transition mission %s %s→%s: %w", id, from, to, ErrRaceLost)
	}
	return nil
}

// CompleteMission flips returning→completed and stamps completed_at, in one
// conditional statement. Exactly one racing completer can succeed.
func CompleteMission(q sqlx.Ext, id string, now int64) error {
	res, err := q.Exec(`
		UPDATE missions SET status = ?, completed_at = ?
		 WHERE id = ? AND status = ?`,
		MissionCompleted, now, id, MissionReturning)
	if err != nil {
		return fmt.Errorf("complete mission %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("complete mission %s: %w", id, ErrRaceLost)
	}
	return nil
}

// CancelMission cancels a mission from any non-terminal state. A cancel
// racing a tick-driven completion loses cleanly: only one write succeeds.
func CancelMission(q sqlx.Ext, id string) error {
	res, err := q.Exec(`
		UPDATE missions SET status = ?
		 WHERE id = ? AND status NOT IN (?, ?)`,
		MissionCancelled, id, MissionCompleted, MissionCancelled)
	if err != nil {
		return fmt.Errorf("cancel mission %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("cancel mission %s: %w", id, ErrRaceLost)
	}
	return nil
}
