package content

// Default returns the compiled-in content catalog. A YAML catalog file, when
// given, is unmarshalled over this, so partial overrides are fine.
func Default() *Catalog {
	return &Catalog{
		DroneTiers: map[int]DroneTier{
			1: {Tier: 1, Cost: 200, BaseSpeed: 10, BaseCargo: 100, BaseHarvest: 2,
				MaxLevel: map[UpgradeKind]int{UpgradeSpeed: 5, UpgradeCargo: 5, UpgradeHarvest: 5}},
			2: {Tier: 2, Cost: 650, BaseSpeed: 16, BaseCargo: 250, BaseHarvest: 4,
				MaxLevel: map[UpgradeKind]int{UpgradeSpeed: 8, UpgradeCargo: 8, UpgradeHarvest: 8}},
			3: {Tier: 3, Cost: 1800, BaseSpeed: 25, BaseCargo: 600, BaseHarvest: 8,
				MaxLevel: map[UpgradeKind]int{UpgradeSpeed: 12, UpgradeCargo: 12, UpgradeHarvest: 12}},
		},
		ArrayTiers: map[int]ArrayTier{
			1: {Tier: 1, Cost: 350, BaseRate: 3,
				MaxLevel: map[UpgradeKind]int{UpgradeUplink: 5, UpgradeBeam: 5, UpgradeTelemetry: 5}},
			2: {Tier: 2, Cost: 1000, BaseRate: 7,
				MaxLevel: map[UpgradeKind]int{UpgradeUplink: 8, UpgradeBeam: 8, UpgradeTelemetry: 8}},
			3: {Tier: 3, Cost: 2800, BaseRate: 15,
				MaxLevel: map[UpgradeKind]int{UpgradeUplink: 12, UpgradeBeam: 12, UpgradeTelemetry: 12}},
		},
		DroneTracks: map[UpgradeKind]TrackSpec{
			UpgradeSpeed:   {BaseCost: 50, CostMult: 1.5, DurationSecs: 60, BonusPerLevel: 0.10},
			UpgradeCargo:   {BaseCost: 75, CostMult: 1.5, DurationSecs: 90, BonusPerLevel: 0.15},
			UpgradeHarvest: {BaseCost: 100, CostMult: 1.6, DurationSecs: 120, BonusPerLevel: 0.12},
		},
		ArrayTracks: map[UpgradeKind]TrackSpec{
			UpgradeUplink:    {BaseCost: 120, CostMult: 1.6, DurationSecs: 120, BonusPerLevel: 0.12},
			UpgradeBeam:      {BaseCost: 90, CostMult: 1.5, DurationSecs: 90, BonusPerLevel: 0.10},
			UpgradeTelemetry: {BaseCost: 60, CostMult: 1.4, DurationSecs: 60, BonusPerLevel: 0.08},
		},
		Techs: map[string]Tech{
			"basic_mining": {ID: "basic_mining", Name: "Basic Mining Doctrine",
				CostCredits: 100, DurationSecs: 120,
				Bonuses: map[BonusKind]float64{BonusHarvest: 1.10}},
			"cargo_logistics": {ID: "cargo_logistics", Name: "Cargo Logistics",
				Prerequisites: []string{"basic_mining"},
				CostCredits:   250, DurationSecs: 300,
				Bonuses: map[BonusKind]float64{BonusCargo: 1.15}},
			"deep_extraction": {ID: "deep_extraction", Name: "Deep Extraction",
				Prerequisites: []string{"basic_mining"},
				CostCredits:   400, DurationSecs: 420,
				Bonuses: map[BonusKind]float64{BonusExtraction: 1.20}},
			"parallel_compute": {ID: "parallel_compute", Name: "Parallel Compute Cores",
				CostCredits: 300, DurationSecs: 240,
				Bonuses: map[BonusKind]float64{BonusResearchSpeed: 1.25}},
			"lab_automation": {ID: "lab_automation", Name: "Lab Automation",
				Prerequisites: []string{"parallel_compute"},
				CostCredits:   600, DurationSecs: 600,
				Bonuses: map[BonusKind]float64{BonusResearchCost: 0.85}},
			"rift_harmonics": {ID: "rift_harmonics", Name: "Rift Harmonics",
				Prerequisites: []string{"deep_extraction", "parallel_compute"},
				CostCredits:   1200, DurationSecs: 900,
				Bonuses: map[BonusKind]float64{BonusExtraction: 1.35}},
		},
		Facilities: map[string]FacilitySpec{
			FacilityReactor:     {Type: FacilityReactor, PowerOutput: 20, BuildCost: 500, MinHubLevel: 1},
			FacilityHangar:      {Type: FacilityHangar, PowerCost: 5, BuildCost: 300, MinHubLevel: 1},
			FacilityLab:         {Type: FacilityLab, PowerCost: 8, BuildCost: 600, MinHubLevel: 2},
			FacilityUplinkTower: {Type: FacilityUplinkTower, PowerCost: 6, BuildCost: 450, MinHubLevel: 2},
			FacilityScanner:     {Type: FacilityScanner, PowerCost: 4, BuildCost: 350, MinHubLevel: 1},
		},
		Chassis: map[string]Chassis{
			"corvette": {ID: "corvette", Name: "Corvette", MaxHull: 100, MaxShields: 50, Damage: 20, Speed: 8, Cost: 400},
			"frigate":  {ID: "frigate", Name: "Frigate", MaxHull: 220, MaxShields: 120, Damage: 35, Speed: 5, Cost: 900},
			"cruiser":  {ID: "cruiser", Name: "Cruiser", MaxHull: 500, MaxShields: 300, Damage: 70, Speed: 3, Cost: 2500},
			"raider":   {ID: "raider", Name: "Rift Raider", MaxHull: 80, MaxShields: 40, Damage: 28, Speed: 10, Cost: 350},
		},
		ScannerCapacity: map[int]int{0: 2, 1: 6, 2: 12, 3: 24},
		HubThresholds:   map[int]int64{2: 1000, 3: 5000, 4: 20000, 5: 80000},

		PassiveDecayPerTick:       1.0,
		ExtractionDecayMultiplier: 0.25,
	}
}
