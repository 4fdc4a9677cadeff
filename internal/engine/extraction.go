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

// Validation errors surfaced by array actions.
var (
	ErrArrayBusy     = errors.New("array is not idle")
	ErrTargetNotRift = errors.New("target is not an active rift")
)

// ExtractionEngine credits crystal income for every deployed array each
// tick. Extraction needs a powered uplink tower; decay does not, so an
// unpowered array skips extraction while its rift keeps decaying.
type ExtractionEngine struct {
	Store   *persistence.Store
	Catalog *content.Catalog
	Clock   clock.Clock
	Bonuses *BonusCache
}

func (e *ExtractionEngine) Name() string { return "array-extraction" }

// Deploy points an idle array at an active rift.
func (e *ExtractionEngine) Deploy(playerID, arrayID, nodeID int64) error {
	return e.Store.WithTx(func(tx *sqlx.Tx) error {
		arr, err := persistence.GetArray(tx, arrayID)
		if err != nil {
			return err
		}
		if arr.PlayerID != playerID {
			return fmt.Errorf("array %d: %w", arrayID, ErrNotYourEntity)
		}
		node, err := persistence.GetNode(tx, nodeID)
		if err != nil {
			return err
		}
		if node.PlayerID != playerID {
			return fmt.Errorf("node %d: %w", nodeID, ErrNotYourEntity)
		}
		if node.Kind != persistence.NodeRift || !node.IsDiscovered || node.Collapsed {
			return fmt.Errorf("node %d: %w", nodeID, ErrTargetNotRift)
		}
		return persistence.DeployArray(tx, arrayID, nodeID)
	})
}

// Recall returns a deployed array to idle.
func (e *ExtractionEngine) Recall(playerID, arrayID int64) error {
	return e.Store.WithTx(func(tx *sqlx.Tx) error {
		arr, err := persistence.GetArray(tx, arrayID)
		if err != nil {
			return err
		}
		if arr.PlayerID != playerID {
			return fmt.Errorf("array %d: %w", arrayID, ErrNotYourEntity)
		}
		return persistence.RecallArray(tx, arrayID)
	})
}

// Sweep processes every deployed array, isolating per-array failures.
func (e *ExtractionEngine) Sweep(ctx context.Context) error {
	arrays, err := e.Store.DeployedArrays()
	if err != nil {
		return fmt.Errorf("load deployed arrays: %w", err)
	}

	uplinkGate := map[int64]bool{}
	for i := range arrays {
		arr := &arrays[i]

		open, ok := uplinkGate[arr.PlayerID]
		if !ok {
			open, err = gateOpen(e.Store.DB(), arr.PlayerID, content.FacilityUplinkTower)
			if err != nil {
				slog.Error("uplink gate check failed",
					"engine", e.Name(), "player", arr.PlayerID, "error", err)
				open = false
			}
			uplinkGate[arr.PlayerID] = open
		}
		if !open {
			continue // no extraction; rift decay still applies elsewhere
		}

		if err := e.extractOne(arr); err != nil {
			if errors.Is(err, persistence.ErrRaceLost) {
				slog.Debug("array extraction raced", "engine", e.Name(), "array", arr.ID)
				continue
			}
			slog.Error("array extraction failed",
				"engine", e.Name(), "array", arr.ID, "error", err)
		}
	}
	return nil
}

func (e *ExtractionEngine) extractOne(arr *persistence.ExtractionArray) error {
	return e.Store.WithTx(func(tx *sqlx.Tx) error {
		if arr.TargetNodeID == nil {
			// Deployed with no target should not happen; retire it rather
			// than retrying every sweep.
			return persistence.DecommissionArray(tx, arr.ID)
		}

		node, err := persistence.GetNode(tx, *arr.TargetNodeID)
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.DecommissionArray(tx, arr.ID)
		}
		if err != nil {
			return err
		}
		// Defensive re-check: the decay engine may have collapsed this rift
		// in the same cycle.
		if node.Collapsed || node.Stability <= 0 {
			return persistence.DecommissionArray(tx, arr.ID)
		}

		rate, err := arrayRate(tx, e.Catalog, e.Bonuses, arr)
		if err != nil {
			return err
		}
		yield := int64(rate)
		if yield <= 0 {
			return nil
		}
		// The lifetime counter tracks what actually banked, not what the
		// beam asked for, so a full crystal store adds nothing.
		actual, err := persistence.CreditCrystalsClamped(tx, arr.PlayerID, yield)
		if err != nil {
			return err
		}
		if actual <= 0 {
			return nil
		}
		return persistence.AddLifetimeExtracted(tx, arr.ID, float64(actual))
	})
}
