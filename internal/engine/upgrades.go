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

// Validation errors surfaced by upgrade starts.
var (
	ErrMaxLevel        = errors.New("track is at its tier's max level")
	ErrUpgradeInFlight = errors.New("an upgrade is already in flight")
	ErrUnknownTrack    = errors.New("unknown upgrade track")
)

// UpgradeEngine completes matured upgrades for drones and extraction arrays.
// Starting an upgrade is a synchronous, fully validated user action; by the
// time the tick sees it, completion only bumps the level and clears the
// in-flight fields.
type UpgradeEngine struct {
	Store   *persistence.Store
	Catalog *content.Catalog
	Clock   clock.Clock
}

func (e *UpgradeEngine) Name() string { return "upgrades" }

// StartDroneUpgrade validates and starts an upgrade on an idle drone:
// ceiling check before any debit, debit and stamp in one transaction.
func (e *UpgradeEngine) StartDroneUpgrade(playerID, droneID int64, kind content.UpgradeKind) error {
	now := e.Clock.Now().Unix()
	return e.Store.WithTx(func(tx *sqlx.Tx) error {
		d, err := persistence.GetDrone(tx, droneID)
		if err != nil {
			return err
		}
		if d.PlayerID != playerID {
			return fmt.Errorf("drone %d: %w", droneID, ErrNotYourEntity)
		}
		if d.Status != persistence.DroneIdle {
			return fmt.Errorf("drone %d: %w", droneID, ErrDroneBusy)
		}
		if d.UpgradingKind != nil {
			return fmt.Errorf("drone %d: %w", droneID, ErrUpgradeInFlight)
		}

		level := droneTrackLevel(d, kind)
		spec, maxLevel, ok := e.Catalog.TrackFor("drone", d.Tier, kind)
		if !ok {
			return fmt.Errorf("drone %d kind %q: %w", droneID, kind, ErrUnknownTrack)
		}
		if level >= maxLevel {
			return fmt.Errorf("drone %d %s level %d: %w", droneID, kind, level, ErrMaxLevel)
		}

		if err := persistence.DebitCredits(tx, playerID, spec.CostAt(level)); err != nil {
			return err
		}
		return persistence.StartDroneUpgrade(tx, droneID, kind, now, now+int64(spec.Duration().Seconds()))
	})
}

// StartArrayUpgrade is the array-family counterpart of StartDroneUpgrade.
func (e *UpgradeEngine) StartArrayUpgrade(playerID, arrayID int64, kind content.UpgradeKind) error {
	now := e.Clock.Now().Unix()
	return e.Store.WithTx(func(tx *sqlx.Tx) error {
		a, err := persistence.GetArray(tx, arrayID)
		if err != nil {
			return err
		}
		if a.PlayerID != playerID {
			return fmt.Errorf("array %d: %w", arrayID, ErrNotYourEntity)
		}
		if a.Status != persistence.ArrayIdle {
			return fmt.Errorf("array %d: %w", arrayID, ErrArrayBusy)
		}
		if a.UpgradingKind != nil {
			return fmt.Errorf("array %d: %w", arrayID, ErrUpgradeInFlight)
		}

		level := arrayTrackLevel(a, kind)
		spec, maxLevel, ok := e.Catalog.TrackFor("array", a.Tier, kind)
		if !ok {
			return fmt.Errorf("array %d kind %q: %w", arrayID, kind, ErrUnknownTrack)
		}
		if level >= maxLevel {
			return fmt.Errorf("array %d %s level %d: %w", arrayID, kind, level, ErrMaxLevel)
		}

		if err := persistence.DebitCredits(tx, playerID, spec.CostAt(level)); err != nil {
			return err
		}
		return persistence.StartArrayUpgrade(tx, arrayID, kind, now, now+int64(spec.Duration().Seconds()))
	})
}

// Sweep completes every matured upgrade, each in its own conditional update.
func (e *UpgradeEngine) Sweep(ctx context.Context) error {
	now := e.Clock.Now().Unix()

	drones, err := e.Store.DueDroneUpgrades(now)
	if err != nil {
		return fmt.Errorf("load due drone upgrades: %w", err)
	}
	for _, d := range drones {
		kind := content.UpgradeKind(*d.UpgradingKind)
		if err := persistence.CompleteDroneUpgrade(e.Store.DB(), d.ID, kind); err != nil {
			if errors.Is(err, persistence.ErrRaceLost) {
				continue
			}
			slog.Error("drone upgrade completion failed",
				"engine", e.Name(), "drone", d.ID, "error", err)
			continue
		}
		slog.Info("drone upgrade completed", "engine", e.Name(), "drone", d.ID, "track", kind)
	}

	arrays, err := e.Store.DueArrayUpgrades(now)
	if err != nil {
		return fmt.Errorf("load due array upgrades: %w", err)
	}
	for _, a := range arrays {
		kind := content.UpgradeKind(*a.UpgradingKind)
		if err := persistence.CompleteArrayUpgrade(e.Store.DB(), a.ID, kind); err != nil {
			if errors.Is(err, persistence.ErrRaceLost) {
				continue
			}
			slog.Error("array upgrade completion failed",
				"engine", e.Name(), "array", a.ID, "error", err)
			continue
		}
		slog.Info("array upgrade completed", "engine", e.Name(), "array", a.ID, "track", kind)
	}
	return nil
}

func droneTrackLevel(d *persistence.Drone, kind content.UpgradeKind) int {
	switch kind {
	case content.UpgradeSpeed:
		return d.SpeedLevel
	case content.UpgradeCargo:
		return d.CargoLevel
	case content.UpgradeHarvest:
		return d.HarvestLevel
	}
	return 0
}

func arrayTrackLevel(a *persistence.ExtractionArray, kind content.UpgradeKind) int {
	switch kind {
	case content.UpgradeUplink:
		return a.UplinkLevel
	case content.UpgradeBeam:
		return a.BeamLevel
	case content.UpgradeTelemetry:
		return a.TelemetryLevel
	}
	return 0
}
