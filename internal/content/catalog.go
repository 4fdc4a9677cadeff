// Package content holds the static game-content tables: tier stats, upgrade
// cost curves, the research tech tree, ship chassis, and facility power specs.
// The simulation core only ever reads these; they are loaded once at startup
// from YAML (falling back to the compiled-in defaults) and validated.
package content

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// UpgradeKind selects one of an entity's independent upgrade tracks.
// Track dispatch goes through the catalog's TrackSpec tables, never through
// field-name lookups.
type UpgradeKind string

const (
	// Drone tracks.
	UpgradeSpeed   UpgradeKind = "speed"
	UpgradeCargo   UpgradeKind = "cargo"
	UpgradeHarvest UpgradeKind = "harvest"

	// Extraction array tracks.
	UpgradeUplink    UpgradeKind = "uplink"
	UpgradeBeam      UpgradeKind = "beam"
	UpgradeTelemetry UpgradeKind = "telemetry"
)

// DroneKinds and ArrayKinds enumerate the valid tracks per entity family.
var (
	DroneKinds = []UpgradeKind{UpgradeSpeed, UpgradeCargo, UpgradeHarvest}
	ArrayKinds = []UpgradeKind{UpgradeUplink, UpgradeBeam, UpgradeTelemetry}
)

// TrackSpec is the cost curve and effect of one upgrade track.
// Cost at level L is BaseCost × CostMult^L; each level adds BonusPerLevel
// (fractional) to the stat the track governs.
type TrackSpec struct {
	BaseCost      int64   `yaml:"base_cost"`
	CostMult      float64 `yaml:"cost_mult"`
	DurationSecs  int64   `yaml:"duration_secs"`
	BonusPerLevel float64 `yaml:"bonus_per_level"`
}

// Duration returns the upgrade's in-flight duration.
func (t TrackSpec) Duration() time.Duration {
	return time.Duration(t.DurationSecs) * time.Second
}

// CostAt returns the cost to go from level → level+1.
func (t TrackSpec) CostAt(level int) int64 {
	cost := float64(t.BaseCost)
	for i := 0; i < level; i++ {
		cost *= t.CostMult
	}
	return int64(cost)
}

// DroneTier fixes a drone's base stats and per-track level ceilings.
type DroneTier struct {
	Tier        int                 `yaml:"tier"`
	Cost        int64               `yaml:"cost"`         // credits to construct
	BaseSpeed   float64             `yaml:"base_speed"`   // distance units per second
	BaseCargo   int64               `yaml:"base_cargo"`   // metal units per trip
	BaseHarvest float64             `yaml:"base_harvest"` // units mined per second
	MaxLevel    map[UpgradeKind]int `yaml:"max_level"`
}

// ArrayTier fixes an extraction array's base rate and level ceilings.
type ArrayTier struct {
	Tier     int                 `yaml:"tier"`
	Cost     int64               `yaml:"cost"`      // credits to construct
	BaseRate float64             `yaml:"base_rate"` // crystals per extraction tick
	MaxLevel map[UpgradeKind]int `yaml:"max_level"`
}

// BonusKind names a player-wide multiplicative bonus granted by tech unlocks.
type BonusKind string

const (
	BonusHarvest       BonusKind = "harvest"
	BonusExtraction    BonusKind = "extraction"
	BonusResearchSpeed BonusKind = "research_speed"
	BonusResearchCost  BonusKind = "research_cost"
	BonusCargo         BonusKind = "cargo"
)

// Tech is one node of the static research prerequisite DAG.
type Tech struct {
	ID            string                `yaml:"id"`
	Name          string                `yaml:"name"`
	Prerequisites []string              `yaml:"prerequisites"`
	CostCredits   int64                 `yaml:"cost_credits"`
	DurationSecs  int64                 `yaml:"duration_secs"`
	Bonuses       map[BonusKind]float64 `yaml:"bonuses"` // multiplier per kind, e.g. 1.10
}

// Duration returns the research duration before bonuses.
func (t Tech) Duration() time.Duration {
	return time.Duration(t.DurationSecs) * time.Second
}

// FacilitySpec is the static power profile and build cost of one facility
// type. A facility with PowerOutput > 0 is a generator; everything else
// draws PowerCost from the budget.
type FacilitySpec struct {
	Type        string `yaml:"type"`
	PowerOutput int64  `yaml:"power_output"`
	PowerCost   int64  `yaml:"power_cost"`
	BuildCost   int64  `yaml:"build_cost"` // credits
	MinHubLevel int    `yaml:"min_hub_level"`
}

// IsGenerator reports whether this facility feeds the power budget.
func (f FacilitySpec) IsGenerator() bool {
	return f.PowerOutput > 0
}

// Well-known facility types the engines gate on.
const (
	FacilityReactor     = "fusion_reactor"
	FacilityHangar      = "drone_hangar"
	FacilityLab         = "science_lab"
	FacilityUplinkTower = "uplink_tower" // gates extraction arrays
	FacilityScanner     = "deep_scanner"
)

// Chassis is a ship hull's fixed base stats.
type Chassis struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	MaxHull    int64  `yaml:"max_hull"`
	MaxShields int64  `yaml:"max_shields"`
	Damage     int64  `yaml:"damage"`
	Speed      int64  `yaml:"speed"`
	Cost       int64  `yaml:"cost"` // credits to construct
}

// Catalog is the full static content set.
type Catalog struct {
	DroneTiers  map[int]DroneTier         `yaml:"drone_tiers"`
	ArrayTiers  map[int]ArrayTier         `yaml:"array_tiers"`
	DroneTracks map[UpgradeKind]TrackSpec `yaml:"drone_tracks"`
	ArrayTracks map[UpgradeKind]TrackSpec `yaml:"array_tracks"`
	Techs       map[string]Tech           `yaml:"techs"`
	Facilities  map[string]FacilitySpec   `yaml:"facilities"`
	Chassis     map[string]Chassis        `yaml:"chassis"`

	// ScannerCapacity maps scanner tier (facility count stands in for tier)
	// to the number of nodes a player may have discovered.
	ScannerCapacity map[int]int `yaml:"scanner_capacity"`

	// HubThresholds: credits required to reach each hub level.
	HubThresholds map[int]int64 `yaml:"hub_thresholds"`

	// Rift decay tuning.
	PassiveDecayPerTick       float64 `yaml:"passive_decay_per_tick"`
	ExtractionDecayMultiplier float64 `yaml:"extraction_decay_multiplier"`
}

// Load reads a catalog from a YAML file, or returns the compiled-in default
// catalog when path is empty. The result is always validated.
func Load(path string) (*Catalog, error) {
	cat := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		if err := yaml.Unmarshal(raw, cat); err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
	}
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}
	return cat, nil
}

// Validate checks internal consistency: tech tree acyclic with known
// prerequisites, track tables complete, tiers contiguous from 1.
func (c *Catalog) Validate() error {
	if err := c.validateTechTree(); err != nil {
		return err
	}
	for _, kind := range DroneKinds {
		if _, ok := c.DroneTracks[kind]; !ok {
			return fmt.Errorf("missing drone track spec %q", kind)
		}
	}
	for _, kind := range ArrayKinds {
		if _, ok := c.ArrayTracks[kind]; !ok {
			return fmt.Errorf("missing array track spec %q", kind)
		}
	}
	for tier := 1; tier <= len(c.DroneTiers); tier++ {
		if _, ok := c.DroneTiers[tier]; !ok {
			return fmt.Errorf("drone tiers not contiguous: missing tier %d", tier)
		}
	}
	for tier := 1; tier <= len(c.ArrayTiers); tier++ {
		if _, ok := c.ArrayTiers[tier]; !ok {
			return fmt.Errorf("array tiers not contiguous: missing tier %d", tier)
		}
	}
	return nil
}

// TrackFor resolves the spec and tier ceiling for one upgrade track.
// ok is false for a kind the entity family does not have.
func (c *Catalog) TrackFor(family string, tier int, kind UpgradeKind) (TrackSpec, int, bool) {
	switch family {
	case "drone":
		spec, ok := c.DroneTracks[kind]
		if !ok {
			return TrackSpec{}, 0, false
		}
		dt, ok := c.DroneTiers[tier]
		if !ok {
			return TrackSpec{}, 0, false
		}
		return spec, dt.MaxLevel[kind], true
	case "array":
		spec, ok := c.ArrayTracks[kind]
		if !ok {
			return TrackSpec{}, 0, false
		}
		at, ok := c.ArrayTiers[tier]
		if !ok {
			return TrackSpec{}, 0, false
		}
		return spec, at.MaxLevel[kind], true
	}
	return TrackSpec{}, 0, false
}
