package persistence

// Row models for the station tables. Timestamps are unix seconds; SQLite
// booleans are stored as 0/1 integers.

// Drone status values.
const (
	DroneIdle      = "idle"
	DroneTraveling = "traveling"
	DroneMining    = "mining"
	DroneReturning = "returning"
)

// Mission status values. Terminal states are immutable.
const (
	MissionTraveling = "traveling"
	MissionMining    = "mining"
	MissionReturning = "returning"
	MissionCompleted = "completed"
	MissionCancelled = "cancelled"
)

// Extraction array status values.
const (
	ArrayIdle           = "idle"
	ArrayDeployed       = "deployed"
	ArrayDecommissioned = "decommissioned"
)

// Research project status values.
const (
	ResearchInProgress = "in_progress"
	ResearchCompleted  = "completed"
	ResearchCancelled  = "cancelled"
)

// Resource node kinds.
const (
	NodeAsteroid = "asteroid"
	NodeRift     = "rift"
)

// Fleet roles.
const (
	RoleOffense = "offense"
	RoleDefense = "defense"
	RoleReserve = "reserve"
)

type Player struct {
	ID           int64  `db:"id"`
	Name         string `db:"name"`
	Credits      int64  `db:"credits"`
	Metal        int64  `db:"metal"`
	Crystals     int64  `db:"crystals"`
	MaxCredits   int64  `db:"max_credits"`
	MaxMetal     int64  `db:"max_metal"`
	MaxCrystals  int64  `db:"max_crystals"`
	MaxDrones    int64  `db:"max_drones"`
	MaxArrays    int64  `db:"max_arrays"`
	LastCredited int64  `db:"last_credited"`
	HubLevel     int    `db:"hub_level"`
	CreatedAt    int64  `db:"created_at"`
}

type Drone struct {
	ID                 int64   `db:"id"`
	PlayerID           int64   `db:"player_id"`
	Tier               int     `db:"tier"`
	Status             string  `db:"status"`
	SpeedLevel         int     `db:"speed_level"`
	CargoLevel         int     `db:"cargo_level"`
	HarvestLevel       int     `db:"harvest_level"`
	UpgradingKind      *string `db:"upgrading_kind"`
	UpgradeStartedAt   *int64  `db:"upgrade_started_at"`
	UpgradeCompletesAt *int64  `db:"upgrade_completes_at"`
}

type Mission struct {
	ID          string `db:"id"`
	PlayerID    int64  `db:"player_id"`
	DroneID     int64  `db:"drone_id"`
	NodeID      int64  `db:"node_id"`
	Status      string `db:"status"`
	Cargo       int64  `db:"cargo"`
	ArrivalAt   int64  `db:"arrival_at"`
	CompletesAt int64  `db:"completes_at"`
	ReturnAt    int64  `db:"return_at"`
	CreatedAt   int64  `db:"created_at"`
	CompletedAt *int64 `db:"completed_at"`
}

type ResourceNode struct {
	ID                 int64   `db:"id"`
	PlayerID           int64   `db:"player_id"`
	Kind               string  `db:"kind"`
	SectorX            int64   `db:"sector_x"`
	SectorY            int64   `db:"sector_y"`
	Distance           float64 `db:"distance"`
	IsDiscovered       bool    `db:"is_discovered"`
	TotalAmount        float64 `db:"total_amount"`
	RemainingAmount    float64 `db:"remaining_amount"`
	LastExtracted      float64 `db:"last_extracted"`
	Stability          float64 `db:"stability"`
	MaxStability       float64 `db:"max_stability"`
	VolatilityModifier float64 `db:"volatility_modifier"`
	Collapsed          bool    `db:"collapsed"`
	CollapsedAt        *int64  `db:"collapsed_at"`
}

type ExtractionArray struct {
	ID                 int64   `db:"id"`
	PlayerID           int64   `db:"player_id"`
	Tier               int     `db:"tier"`
	Status             string  `db:"status"`
	UplinkLevel        int     `db:"uplink_level"`
	BeamLevel          int     `db:"beam_level"`
	TelemetryLevel     int     `db:"telemetry_level"`
	TargetNodeID       *int64  `db:"target_node_id"`
	LifetimeExtracted  float64 `db:"lifetime_extracted"`
	UpgradingKind      *string `db:"upgrading_kind"`
	UpgradeStartedAt   *int64  `db:"upgrade_started_at"`
	UpgradeCompletesAt *int64  `db:"upgrade_completes_at"`
}

type ResearchProject struct {
	ID          int64  `db:"id"`
	PlayerID    int64  `db:"player_id"`
	TechID      string `db:"tech_id"`
	Status      string `db:"status"`
	StartedAt   int64  `db:"started_at"`
	CompletesAt int64  `db:"completes_at"`
}

type TechUnlock struct {
	ID         int64  `db:"id"`
	PlayerID   int64  `db:"player_id"`
	TechID     string `db:"tech_id"`
	UnlockedAt int64  `db:"unlocked_at"`
}

type Facility struct {
	ID        int64  `db:"id"`
	PlayerID  int64  `db:"player_id"`
	Type      string `db:"type"`
	IsBuilt   bool   `db:"is_built"`
	IsPowered bool   `db:"is_powered"`
	BuiltAt   int64  `db:"built_at"`
}

type Ship struct {
	ID        int64  `db:"id"`
	PlayerID  int64  `db:"player_id"`
	ChassisID string `db:"chassis_id"`
	Hull      int64  `db:"hull"`
	Shields   int64  `db:"shields"`
	Role      string `db:"role"`
	Destroyed bool   `db:"destroyed"`
}

type Battle struct {
	ID            string `db:"id"`
	AttackerID    int64  `db:"attacker_id"`
	Opponent      string `db:"opponent"`
	AttackerFleet string `db:"attacker_fleet"`
	DefenderFleet string `db:"defender_fleet"`
	TurnLog       []byte `db:"turn_log"`
	Rounds        int    `db:"rounds"`
	Victory       bool   `db:"victory"`
	RewardCredits int64  `db:"reward_credits"`
	CreatedAt     int64  `db:"created_at"`
}
