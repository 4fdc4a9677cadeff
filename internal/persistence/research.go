package persistence

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ActiveProject returns a player's in-progress research project, or nil.
func ActiveProject(q sqlx.Queryer, playerID int64) (*ResearchProject, error) {
	var p ResearchProject
	err := sqlx.Get(q, &p, `
		SELECT * FROM research_projects
		 WHERE player_id = ? AND status = ?`, playerID, ResearchInProgress)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active project for player %d: %w", playerID, err)
	}
	return &p, nil
}

// CreateProject inserts an in-progress research project.
func CreateProject(q sqlx.Ext, p *ResearchProject) (int64, error) {
	res, err := q.Exec(`
		INSERT INTO research_projects (player_id, tech_id, status, started_at, completes_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.PlayerID, p.TechID, ResearchInProgress, p.StartedAt, p.CompletesAt)
	if err != nil {
		return 0, fmt.Errorf("create project %s for player %d: %w", p.TechID, p.PlayerID, err)
	}
	return res.LastInsertId()
}

// DueProjects returns in-progress projects whose completion time has passed.
func (s *Store) DueProjects(now int64) ([]ResearchProject, error) {
	var out []ResearchProject
	err := s.db.Select(&out, `
		SELECT * FROM research_projects
		 WHERE status = ? AND completes_at <= ? ORDER BY completes_at`,
		ResearchInProgress, now)
	return out, err
}

// CompleteProject flips in_progress→completed, conditional so a racing
// cancel or duplicate sweep loses cleanly.
func CompleteProject(q sqlx.Ext, id int64) error {
	res, err := q.Exec(
		`UPDATE research_projects SET status = ? WHERE id = ? AND status = ?`,
		ResearchCompleted, id, ResearchInProgress)
	if err != nil {
		return fmt.Errorf("complete project %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("complete project %d: %w", id, ErrRaceLost)
	}
	return nil
}

// CancelProject flips in_progress→cancelled.
func CancelProject(q sqlx.Ext, id int64) error {
	res, err := q.Exec(
		`UPDATE research_projects SET status = ? WHERE id = ? AND status = ?`,
		ResearchCancelled, id, ResearchInProgress)
	if err != nil {
		return fmt.Errorf("cancel project %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("cancel project %d: %w", id, ErrRaceLost)
	}
	return nil
}

// InsertUnlock records an immutable tech unlock.
func InsertUnlock(q sqlx.Ext, playerID int64, techID string, now int64) error {
	_, err := q.Exec(
		`INSERT INTO tech_unlocks (player_id, tech_id, unlocked_at) VALUES (?, ?, ?)`,
		playerID, techID, now)
	if err != nil {
		return fmt.Errorf("insert unlock %s for player %d: %w", techID, playerID, err)
	}
	return nil
}

// UnlockedTechs returns the set of tech ids a player has unlocked.
func UnlockedTechs(q sqlx.Queryer, playerID int64) (map[string]bool, error) {
	var ids []string
	err := sqlx.Select(q, &ids,
		`SELECT tech_id FROM tech_unlocks WHERE player_id = ?`, playerID)
	if err != nil {
		return nil, fmt.Errorf("unlocks for player %d: %w", playerID, err)
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
