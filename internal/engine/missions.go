package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/talgya/rift-station/internal/clock"
	"github.com/talgya/rift-station/internal/content"
	"github.com/talgya/rift-station/internal/persistence"
)

// Validation errors surfaced by mission actions.
var (
	ErrDroneBusy     = errors.New("drone is not idle")
	ErrNodeUnusable  = errors.New("node is not a minable target")
	ErrNotYourEntity = errors.New("entity belongs to another player")
)

// MissionEngine drives the drone round-trip state machine:
// traveling → mining → returning → completed, each edge a wall-clock
// predicate re-evaluated every sweep.
type MissionEngine struct {
	Store   *persistence.Store
	Catalog *content.Catalog
	Clock   clock.Clock
	Bonuses *BonusCache
}

func (e *MissionEngine) Name() string { return "missions" }

// Dispatch sends an idle drone on a mission to a discovered asteroid node.
// All timestamps are fixed at creation from the drone's effective stats.
func (e *MissionEngine) Dispatch(playerID, droneID, nodeID int64) (*persistence.Mission, error) {
	now := e.Clock.Now().Unix()
	var mission *persistence.Mission

	err := e.Store.WithTx(func(tx *sqlx.Tx) error {
		drone, err := persistence.GetDrone(tx, droneID)
		if err != nil {
			return err
		}
		if drone.PlayerID != playerID {
			return fmt.Errorf("drone %d: %w", droneID, ErrNotYourEntity)
		}
		if drone.Status != persistence.DroneIdle || drone.UpgradingKind != nil {
			return fmt.Errorf("drone %d: %w", droneID, ErrDroneBusy)
		}

		node, err := persistence.GetNode(tx, nodeID)
		if err != nil {
			return err
		}
		if node.PlayerID != playerID {
			return fmt.Errorf("node %d: %w", nodeID, ErrNotYourEntity)
		}
		if node.Kind != persistence.NodeAsteroid || !node.IsDiscovered || node.RemainingAmount <= 0 {
			return fmt.Errorf("node %d: %w", nodeID, ErrNodeUnusable)
		}

		stats, err := e.droneStats(tx, drone, playerID)
		if err != nil {
			return err
		}

		travel := int64(math.Ceil(node.Distance / stats.Speed))
		mine := int64(math.Ceil(float64(stats.Cargo) / stats.Harvest))
		m := &persistence.Mission{
			ID:          uuid.NewString(),
			PlayerID:    playerID,
			DroneID:     droneID,
			NodeID:      nodeID,
			Status:      persistence.MissionTraveling,
			Cargo:       stats.Cargo,
			ArrivalAt:   now + travel,
			CompletesAt: now + travel + mine,
			ReturnAt:    now + travel + mine + travel,
			CreatedAt:   now,
		}
		if err := persistence.CreateMission(tx, m); err != nil {
			return err
		}
		if err := persistence.SetDroneStatus(tx, droneID, persistence.DroneIdle, persistence.DroneTraveling); err != nil {
			return err
		}
		mission = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("mission dispatched",
		"engine", e.Name(), "mission", mission.ID, "drone", droneID,
		"node", nodeID, "cargo", mission.Cargo, "return_at", mission.ReturnAt)
	return mission, nil
}

// Cancel aborts a mission from any non-terminal state and recalls the drone.
// A cancel racing a tick-driven completion loses cleanly: exactly one of the
// two conditional writes succeeds.
func (e *MissionEngine) Cancel(playerID int64, missionID string) error {
	return e.Store.WithTx(func(tx *sqlx.Tx) error {
		var m persistence.Mission
		if err := tx.Get(&m, `SELECT * FROM missions WHERE id = ?`, missionID); err != nil {
			return fmt.Errorf("get mission %s: %w", missionID, err)
		}
		if m.PlayerID != playerID {
			return fmt.Errorf("mission %s: %w", missionID, ErrNotYourEntity)
		}
		if err := persistence.CancelMission(tx, missionID); err != nil {
			return err
		}
		return persistence.ForceDroneIdle(tx, m.DroneID)
	})
}

// Sweep advances every mission whose predicate has matured. Failures on one
// mission are logged and skipped so a broken row never starves the rest.
func (e *MissionEngine) Sweep(ctx context.Context) error {
	now := e.Clock.Now().Unix()
	hangarGate := map[int64]bool{}

	frozen := func(playerID int64) bool {
		open, ok := hangarGate[playerID]
		if !ok {
			var err error
			open, err = gateOpen(e.Store.DB(), playerID, content.FacilityHangar)
			if err != nil {
				slog.Error("hangar gate check failed", "engine", e.Name(), "player", playerID, "error", err)
				open = false
			}
			hangarGate[playerID] = open
		}
		return !open
	}

	// traveling → mining
	e.advanceDue(persistence.MissionTraveling, persistence.MissionMining,
		persistence.DroneTraveling, persistence.DroneMining, now, frozen)
	// mining → returning
	e.advanceDue(persistence.MissionMining, persistence.MissionReturning,
		persistence.DroneMining, persistence.DroneReturning, now, frozen)

	// returning → completed, the hazardous edge.
	due, err := e.Store.DueMissions(persistence.MissionReturning, now)
	if err != nil {
		return fmt.Errorf("load returning missions: %w", err)
	}
	for _, m := range due {
		if frozen(m.PlayerID) {
			continue
		}
		if err := e.complete(&m, now); err != nil {
			if errors.Is(err, persistence.ErrRaceLost) {
				slog.Debug("mission completion raced", "engine", e.Name(), "mission", m.ID)
				continue
			}
			slog.Error("mission completion failed",
				"engine", e.Name(), "mission", m.ID, "error", err)
		}
	}
	return nil
}

// advanceDue moves all due missions across one non-final edge, each in its
// own transaction.
func (e *MissionEngine) advanceDue(from, to, droneFrom, droneTo string, now int64, frozen func(int64) bool) {
	due, err := e.Store.DueMissions(from, now)
	if err != nil {
		slog.Error("load due missions failed", "engine", e.Name(), "from", from, "error", err)
		return
	}
	for _, m := range due {
		if frozen(m.PlayerID) {
			continue
		}
		err := e.Store.WithTx(func(tx *sqlx.Tx) error {
			if err := persistence.TransitionMission(tx, m.ID, from, to); err != nil {
				return err
			}
			return persistence.SetDroneStatus(tx, m.DroneID, droneFrom, droneTo)
		})
		if err != nil {
			if errors.Is(err, persistence.ErrRaceLost) {
				slog.Debug("mission transition raced", "engine", e.Name(), "mission", m.ID, "from", from)
				continue
			}
			slog.Error("mission transition failed",
				"engine", e.Name(), "mission", m.ID, "from", from, "error", err)
		}
	}
}

// complete settles one mission: flip to completed (the guarding conditional),
// draw down the node through the ledger, credit the player with what the
// node actually yielded, and park the drone, all in one transaction. A
// mission whose node row vanished is cancelled instead, through the same
// conditional, so exactly one of the racing writers wins either way.
func (e *MissionEngine) complete(m *persistence.Mission, now int64) error {
	var hauled float64
	var orphaned bool
	err := e.Store.WithTx(func(tx *sqlx.Tx) error {
		_, err := persistence.GetNode(tx, m.NodeID)
		if errors.Is(err, persistence.ErrNotFound) {
			// The target is gone and cannot reappear. Cancel rather than
			// complete, so completed always means settled and credited.
			orphaned = true
			if err := persistence.CancelMission(tx, m.ID); err != nil {
				return err
			}
			return persistence.ForceDroneIdle(tx, m.DroneID)
		}
		if err != nil {
			return err
		}

		if err := persistence.CompleteMission(tx, m.ID, now); err != nil {
			return err
		}
		hauled, err = persistence.DecrementNodeClamped(tx, m.NodeID, float64(m.Cargo))
		if err != nil {
			return err
		}
		if err := persistence.CreditPlayer(tx, m.PlayerID, 0, int64(hauled), 0); err != nil {
			return err
		}
		return persistence.ForceDroneIdle(tx, m.DroneID)
	})
	if err != nil {
		return err
	}

	if orphaned {
		slog.Warn("mission target vanished, cancelled",
			"engine", e.Name(), "mission", m.ID, "drone", m.DroneID)
		return nil
	}
	slog.Info("mission completed",
		"engine", e.Name(), "mission", m.ID, "drone", m.DroneID,
		"metal", humanize.Comma(int64(hauled)))
	return nil
}
