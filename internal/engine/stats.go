package engine

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/talgya/rift-station/internal/content"
	"github.com/talgya/rift-station/internal/persistence"
)

// Effective stat resolution: tier base stats scaled by per-track upgrade
// levels, then by player-wide tech bonuses.

// DroneStats is a drone's resolved operating profile.
type DroneStats struct {
	Speed   float64 // distance units per second
	Cargo   int64   // units per trip
	Harvest float64 // units per second
}

func (e *MissionEngine) droneStats(q sqlx.Queryer, d *persistence.Drone, playerID int64) (DroneStats, error) {
	tier, ok := e.Catalog.DroneTiers[d.Tier]
	if !ok {
		return DroneStats{}, fmt.Errorf("drone %d: unknown tier %d", d.ID, d.Tier)
	}
	speedSpec := e.Catalog.DroneTracks[content.UpgradeSpeed]
	cargoSpec := e.Catalog.DroneTracks[content.UpgradeCargo]
	harvestSpec := e.Catalog.DroneTracks[content.UpgradeHarvest]

	cargoBonus, err := e.Bonuses.For(q, playerID, content.BonusCargo)
	if err != nil {
		return DroneStats{}, err
	}
	harvestBonus, err := e.Bonuses.For(q, playerID, content.BonusHarvest)
	if err != nil {
		return DroneStats{}, err
	}

	return DroneStats{
		Speed:   tier.BaseSpeed * (1 + float64(d.SpeedLevel)*speedSpec.BonusPerLevel),
		Cargo:   int64(float64(tier.BaseCargo) * (1 + float64(d.CargoLevel)*cargoSpec.BonusPerLevel) * cargoBonus),
		Harvest: tier.BaseHarvest * (1 + float64(d.HarvestLevel)*harvestSpec.BonusPerLevel) * harvestBonus,
	}, nil
}

// arrayRate resolves an array's effective extraction rate: tier base rate
// scaled by its uplink level and the player's extraction bonus.
func arrayRate(q sqlx.Queryer, cat *content.Catalog, bonuses *BonusCache, a *persistence.ExtractionArray) (float64, error) {
	tier, ok := cat.ArrayTiers[a.Tier]
	if !ok {
		return 0, fmt.Errorf("array %d: unknown tier %d", a.ID, a.Tier)
	}
	uplinkSpec := cat.ArrayTracks[content.UpgradeUplink]
	mult, err := bonuses.For(q, a.PlayerID, content.BonusExtraction)
	if err != nil {
		return 0, err
	}
	return tier.BaseRate * (1 + float64(a.UplinkLevel)*uplinkSpec.BonusPerLevel) * mult, nil
}
