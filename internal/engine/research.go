package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/talgya/rift-station/internal/clock"
	"github.com/talgya/rift-station/internal/content"
	"github.com/talgya/rift-station/internal/persistence"
)

// Validation errors surfaced by research actions.
var (
	ErrUnknownTech     = errors.New("tech not in the catalog")
	ErrProjectActive   = errors.New("another research project is in progress")
	ErrPrereqsUnmet    = errors.New("prerequisite techs not unlocked")
	ErrAlreadyUnlocked = errors.New("tech already unlocked")
)

// ResearchEngine starts projects synchronously and completes matured ones on
// tick. An unpowered science lab pauses completion; the project just waits.
type ResearchEngine struct {
	Store   *persistence.Store
	Catalog *content.Catalog
	Clock   clock.Clock
	Bonuses *BonusCache
}

func (e *ResearchEngine) Name() string { return "research" }

// Start validates and begins a research project: known tech, no concurrent
// project, prerequisites unlocked, bonus-adjusted cost affordable.
func (e *ResearchEngine) Start(playerID int64, techID string) (*persistence.ResearchProject, error) {
	tech, ok := e.Catalog.Techs[techID]
	if !ok {
		return nil, fmt.Errorf("tech %q: %w", techID, ErrUnknownTech)
	}
	now := e.Clock.Now().Unix()

	costMult, err := e.Bonuses.For(e.Store.DB(), playerID, content.BonusResearchCost)
	if err != nil {
		return nil, err
	}
	speedMult, err := e.Bonuses.For(e.Store.DB(), playerID, content.BonusResearchSpeed)
	if err != nil {
		return nil, err
	}
	cost := int64(float64(tech.CostCredits) * costMult)
	duration := int64(tech.Duration().Seconds() / speedMult)
	if duration < 1 {
		duration = 1
	}

	var project *persistence.ResearchProject
	err = e.Store.WithTx(func(tx *sqlx.Tx) error {
		active, err := persistence.ActiveProject(tx, playerID)
		if err != nil {
			return err
		}
		if active != nil {
			return fmt.Errorf("player %d already researching %s: %w",
				playerID, active.TechID, ErrProjectActive)
		}

		unlocked, err := persistence.UnlockedTechs(tx, playerID)
		if err != nil {
			return err
		}
		if unlocked[techID] {
			return fmt.Errorf("tech %q: %w", techID, ErrAlreadyUnlocked)
		}
		if !e.Catalog.PrereqsMet(techID, unlocked) {
			return fmt.Errorf("tech %q: %w", techID, ErrPrereqsUnmet)
		}

		if err := persistence.DebitCredits(tx, playerID, cost); err != nil {
			return err
		}
		p := &persistence.ResearchProject{
			PlayerID:    playerID,
			TechID:      techID,
			Status:      persistence.ResearchInProgress,
			StartedAt:   now,
			CompletesAt: now + duration,
		}
		id, err := persistence.CreateProject(tx, p)
		if err != nil {
			return err
		}
		p.ID = id
		project = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("research started",
		"engine", e.Name(), "player", playerID, "tech", techID,
		"cost", cost, "completes_at", project.CompletesAt)
	return project, nil
}

// Cancel aborts an in-progress project. Spent credits are forfeit.
func (e *ResearchEngine) Cancel(playerID int64, projectID int64) error {
	return e.Store.WithTx(func(tx *sqlx.Tx) error {
		var p persistence.ResearchProject
		if err := tx.Get(&p, `SELECT * FROM research_projects WHERE id = ?`, projectID); err != nil {
			return fmt.Errorf("get project %d: %w", projectID, err)
		}
		if p.PlayerID != playerID {
			return fmt.Errorf("project %d: %w", projectID, ErrNotYourEntity)
		}
		return persistence.CancelProject(tx, projectID)
	})
}

// Sweep completes every matured project whose science lab is powered,
// inserting the immutable unlock in the same transaction.
func (e *ResearchEngine) Sweep(ctx context.Context) error {
	now := e.Clock.Now().Unix()
	due, err := e.Store.DueProjects(now)
	if err != nil {
		return fmt.Errorf("load due projects: %w", err)
	}

	labGate := map[int64]bool{}
	for _, p := range due {
		open, ok := labGate[p.PlayerID]
		if !ok {
			open, err = gateOpen(e.Store.DB(), p.PlayerID, content.FacilityLab)
			if err != nil {
				slog.Error("lab gate check failed",
					"engine", e.Name(), "player", p.PlayerID, "error", err)
				open = false
			}
			labGate[p.PlayerID] = open
		}
		if !open {
			continue // paused, not failed; picked up when power returns
		}

		err := e.Store.WithTx(func(tx *sqlx.Tx) error {
			if err := persistence.CompleteProject(tx, p.ID); err != nil {
				return err
			}
			return persistence.InsertUnlock(tx, p.PlayerID, p.TechID, now)
		})
		if err != nil {
			if errors.Is(err, persistence.ErrRaceLost) {
				slog.Debug("research completion raced", "engine", e.Name(), "project", p.ID)
				continue
			}
			slog.Error("research completion failed",
				"engine", e.Name(), "project", p.ID, "error", err)
			continue
		}

		e.Bonuses.Invalidate(p.PlayerID)
		slog.Info("research completed",
			"engine", e.Name(), "player", p.PlayerID, "tech", p.TechID)
	}
	return nil
}
