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

// RiftDecayEngine erodes every active rift's stability each tick, whether or
// not anything is extracting. Deployed arrays add extraction pressure, so
// heavily worked rifts collapse sooner.
type RiftDecayEngine struct {
	Store   *persistence.Store
	Catalog *content.Catalog
	Clock   clock.Clock
	Bonuses *BonusCache
}

func (e *RiftDecayEngine) Name() string { return "rift-decay" }

// Sweep decays each active rift in its own transaction; one broken rift
// never stops the rest from decaying.
func (e *RiftDecayEngine) Sweep(ctx context.Context) error {
	rifts, err := e.Store.ActiveRifts()
	if err != nil {
		return fmt.Errorf("load active rifts: %w", err)
	}
	now := e.Clock.Now().Unix()

	for _, rift := range rifts {
		if err := e.decayOne(&rift, now); err != nil {
			if errors.Is(err, persistence.ErrRaceLost) {
				slog.Debug("rift decay raced", "engine", e.Name(), "rift", rift.ID)
				continue
			}
			slog.Error("rift decay failed", "engine", e.Name(), "rift", rift.ID, "error", err)
		}
	}
	return nil
}

func (e *RiftDecayEngine) decayOne(rift *persistence.ResourceNode, now int64) error {
	return e.Store.WithTx(func(tx *sqlx.Tx) error {
		// Extraction pressure must come from the arrays deployed right now,
		// read before computing decay.
		arrays, err := persistence.ArraysTargeting(tx, rift.ID)
		if err != nil {
			return err
		}
		pressure := 0.0
		for i := range arrays {
			rate, err := arrayRate(tx, e.Catalog, e.Bonuses, &arrays[i])
			if err != nil {
				return err
			}
			pressure += rate * e.Catalog.ExtractionDecayMultiplier
		}
		decay := (e.Catalog.PassiveDecayPerTick + pressure) * rift.VolatilityModifier

		stability, err := persistence.DecayRiftClamped(tx, rift.ID, decay)
		if err != nil {
			return err
		}
		if stability > 0 {
			return nil
		}

		// Terminal collapse: stamp it and cascade-decommission every array
		// still pointed here, so no array is left referencing a dead node.
		if err := persistence.MarkCollapsed(tx, rift.ID, now); err != nil {
			return err
		}
		cascaded, err := persistence.DecommissionArraysTargeting(tx, rift.ID)
		if err != nil {
			return err
		}
		slog.Info("rift collapsed",
			"engine", e.Name(), "rift", rift.ID,
			"decay", decay, "arrays_decommissioned", cascaded)
		return nil
	})
}
