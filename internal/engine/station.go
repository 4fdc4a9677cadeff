package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/talgya/rift-station/internal/clock"
	"github.com/talgya/rift-station/internal/content"
	"github.com/talgya/rift-station/internal/persistence"
)

// Validation errors surfaced by build actions.
var (
	ErrUnknownFacility = errors.New("facility type not in the catalog")
	ErrHubLevelTooLow  = errors.New("hub level too low")
	ErrCapReached      = errors.New("unit cap reached")
	ErrUnknownTier     = errors.New("tier not in the catalog")
	ErrMaxHubLevel     = errors.New("hub is at its maximum level")
)

// Station handles the build-and-progress actions: facilities, drones,
// arrays, and hub upgrades. Every build that changes power state re-runs the
// power budget enforcement inside the same transaction.
type Station struct {
	Store   *persistence.Store
	Catalog *content.Catalog
	Clock   clock.Clock
	Power   *PowerService
}

// BuildFacility constructs one facility and recomputes the power budget.
func (s *Station) BuildFacility(playerID int64, facType string) (Budget, error) {
	spec, ok := s.Catalog.Facilities[facType]
	if !ok {
		return Budget{}, fmt.Errorf("facility %q: %w", facType, ErrUnknownFacility)
	}
	now := s.Clock.Now().Unix()

	var budget Budget
	err := s.Store.WithTx(func(tx *sqlx.Tx) error {
		player, err := persistence.GetPlayer(tx, playerID)
		if err != nil {
			return err
		}
		if player.HubLevel < spec.MinHubLevel {
			return fmt.Errorf("facility %q needs hub %d: %w",
				facType, spec.MinHubLevel, ErrHubLevelTooLow)
		}
		if err := persistence.DebitCredits(tx, playerID, spec.BuildCost); err != nil {
			return err
		}
		if _, err := persistence.BuildFacility(tx, playerID, facType, now); err != nil {
			return err
		}
		budget, err = s.Power.Enforce(tx, playerID)
		return err
	})
	if err != nil {
		return Budget{}, err
	}

	slog.Info("facility built",
		"player", playerID, "type", facType,
		"generation", budget.Generation, "consumption", budget.Consumption)
	return budget, nil
}

// BuildDrone constructs a drone of the given tier, subject to the player's
// drone cap.
func (s *Station) BuildDrone(playerID int64, tier int) (int64, error) {
	spec, ok := s.Catalog.DroneTiers[tier]
	if !ok {
		return 0, fmt.Errorf("drone tier %d: %w", tier, ErrUnknownTier)
	}
	var droneID int64
	err := s.Store.WithTx(func(tx *sqlx.Tx) error {
		player, err := persistence.GetPlayer(tx, playerID)
		if err != nil {
			return err
		}
		count, err := persistence.CountDrones(tx, playerID)
		if err != nil {
			return err
		}
		if count >= player.MaxDrones {
			return fmt.Errorf("player %d has %d drones: %w", playerID, count, ErrCapReached)
		}
		if err := persistence.DebitCredits(tx, playerID, spec.Cost); err != nil {
			return err
		}
		droneID, err = persistence.CreateDrone(tx, playerID, tier)
		return err
	})
	return droneID, err
}

// BuildArray constructs an extraction array of the given tier, subject to
// the player's array cap.
func (s *Station) BuildArray(playerID int64, tier int) (int64, error) {
	spec, ok := s.Catalog.ArrayTiers[tier]
	if !ok {
		return 0, fmt.Errorf("array tier %d: %w", tier, ErrUnknownTier)
	}
	var arrayID int64
	err := s.Store.WithTx(func(tx *sqlx.Tx) error {
		player, err := persistence.GetPlayer(tx, playerID)
		if err != nil {
			return err
		}
		count, err := persistence.CountArrays(tx, playerID)
		if err != nil {
			return err
		}
		if count >= player.MaxArrays {
			return fmt.Errorf("player %d has %d arrays: %w", playerID, count, ErrCapReached)
		}
		if err := persistence.DebitCredits(tx, playerID, spec.Cost); err != nil {
			return err
		}
		arrayID, err = persistence.CreateArray(tx, playerID, tier)
		return err
	})
	return arrayID, err
}

// UpgradeHub advances the hub one level against the threshold table and
// re-enforces the power budget (caps changed).
func (s *Station) UpgradeHub(playerID int64) error {
	return s.Store.WithTx(func(tx *sqlx.Tx) error {
		player, err := persistence.GetPlayer(tx, playerID)
		if err != nil {
			return err
		}
		cost, ok := s.Catalog.HubThresholds[player.HubLevel+1]
		if !ok {
			return fmt.Errorf("hub level %d: %w", player.HubLevel, ErrMaxHubLevel)
		}
		if err := persistence.DebitCredits(tx, playerID, cost); err != nil {
			return err
		}
		if err := persistence.AdvanceHubLevel(tx, playerID, player.HubLevel); err != nil {
			return err
		}
		_, err = s.Power.Enforce(tx, playerID)
		return err
	})
}
