package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/talgya/rift-station/internal/clock"
	"github.com/talgya/rift-station/internal/persistence"
)

// ExpeditionEngine is the long-horizon sweep: it repairs referential drift
// the faster engines only handle opportunistically. A mission whose node row
// has vanished, or an array targeting a node that no longer exists, can
// never make progress again; this sweep terminally cancels or retires them
// instead of letting them be retried forever.
type ExpeditionEngine struct {
	Store *persistence.Store
	Clock clock.Clock
}

func (e *ExpeditionEngine) Name() string { return "expedition" }

func (e *ExpeditionEngine) Sweep(ctx context.Context) error {
	if err := e.cancelOrphanedMissions(); err != nil {
		slog.Error("orphaned mission sweep failed", "engine", e.Name(), "error", err)
	}
	if err := e.retireOrphanedArrays(); err != nil {
		slog.Error("orphaned array sweep failed", "engine", e.Name(), "error", err)
	}
	return nil
}

func (e *ExpeditionEngine) cancelOrphanedMissions() error {
	var orphans []persistence.Mission
	err := e.Store.DB().Select(&orphans, `
		SELECT m.* FROM missions m
		 LEFT JOIN resource_nodes n ON n.id = m.node_id
		 WHERE m.status NOT IN (?, ?) AND n.id IS NULL`,
		persistence.MissionCompleted, persistence.MissionCancelled)
	if err != nil {
		return fmt.Errorf("find orphaned missions: %w", err)
	}

	for _, m := range orphans {
		err := e.Store.WithTx(func(tx *sqlx.Tx) error {
			if err := persistence.CancelMission(tx, m.ID); err != nil {
				return err
			}
			return persistence.ForceDroneIdle(tx, m.DroneID)
		})
		if err != nil {
			if errors.Is(err, persistence.ErrRaceLost) {
				continue
			}
			slog.Error("orphaned mission cancel failed",
				"engine", e.Name(), "mission", m.ID, "error", err)
			continue
		}
		slog.Warn("cancelled mission with missing node",
			"engine", e.Name(), "mission", m.ID, "node", m.NodeID)
	}
	return nil
}

func (e *ExpeditionEngine) retireOrphanedArrays() error {
	var orphans []persistence.ExtractionArray
	err := e.Store.DB().Select(&orphans, `
		SELECT a.* FROM extraction_arrays a
		 LEFT JOIN resource_nodes n ON n.id = a.target_node_id
		 WHERE a.status = ? AND a.target_node_id IS NOT NULL AND n.id IS NULL`,
		persistence.ArrayDeployed)
	if err != nil {
		return fmt.Errorf("find orphaned arrays: %w", err)
	}

	for _, a := range orphans {
		if err := persistence.DecommissionArray(e.Store.DB(), a.ID); err != nil {
			if errors.Is(err, persistence.ErrRaceLost) {
				continue
			}
			slog.Error("orphaned array decommission failed",
				"engine", e.Name(), "array", a.ID, "error", err)
			continue
		}
		slog.Warn("decommissioned array with missing node",
			"engine", e.Name(), "array", a.ID)
	}
	return nil
}
