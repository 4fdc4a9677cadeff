package engine

import (
	"errors"
	"testing"

	"github.com/talgya/rift-station/internal/content"
	"github.com/talgya/rift-station/internal/persistence"
)

func TestBuildFacilityDebitsAndEnforces(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)
	spec := env.catalog.Facilities[content.FacilityReactor]
	before := env.credits(t, p.ID)

	budget, err := env.station.BuildFacility(p.ID, content.FacilityReactor)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if budget.Generation != spec.PowerOutput {
		t.Fatalf("want generation %d got %d", spec.PowerOutput, budget.Generation)
	}
	if got := env.credits(t, p.ID); got != before-spec.BuildCost {
		t.Fatalf("want %d credits got %d", before-spec.BuildCost, got)
	}

	if _, err := env.station.BuildFacility(p.ID, "orbital_casino"); !errors.Is(err, ErrUnknownFacility) {
		t.Fatalf("want ErrUnknownFacility got %v", err)
	}
}

func TestBuildFacilityHubLevelGate(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)

	// Science lab needs hub 2; a fresh station is hub 1.
	if _, err := env.station.BuildFacility(p.ID, content.FacilityLab); !errors.Is(err, ErrHubLevelTooLow) {
		t.Fatalf("want ErrHubLevelTooLow got %v", err)
	}

	env.fund(t, p.ID, 2000)
	if err := env.station.UpgradeHub(p.ID); err != nil {
		t.Fatalf("hub upgrade: %v", err)
	}
	if _, err := env.station.BuildFacility(p.ID, content.FacilityLab); err != nil {
		t.Fatalf("build after hub upgrade: %v", err)
	}
}

func TestBuildDroneRespectsCap(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)
	env.fund(t, p.ID, 9000)

	for i := int64(0); i < p.MaxDrones; i++ {
		if _, err := env.station.BuildDrone(p.ID, 1); err != nil {
			t.Fatalf("build drone %d: %v", i, err)
		}
	}
	if _, err := env.station.BuildDrone(p.ID, 1); !errors.Is(err, ErrCapReached) {
		t.Fatalf("want ErrCapReached got %v", err)
	}
	if _, err := env.station.BuildDrone(p.ID, 9); !errors.Is(err, ErrUnknownTier) {
		t.Fatalf("want ErrUnknownTier got %v", err)
	}
}

func TestBuildArrayRespectsCapAndFunds(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)

	// One tier 1 array costs 350; the starting 500 covers exactly one.
	if _, err := env.station.BuildArray(p.ID, 1); err != nil {
		t.Fatalf("build array: %v", err)
	}
	if _, err := env.station.BuildArray(p.ID, 1); !errors.Is(err, persistence.ErrInsufficientResources) {
		t.Fatalf("want ErrInsufficientResources got %v", err)
	}

	env.fund(t, p.ID, 1000)
	if _, err := env.station.BuildArray(p.ID, 1); err != nil {
		t.Fatalf("build second array: %v", err)
	}
	if _, err := env.station.BuildArray(p.ID, 1); !errors.Is(err, ErrCapReached) {
		t.Fatalf("want ErrCapReached got %v", err)
	}
}

func TestUpgradeHubAdvancesCaps(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)
	env.fund(t, p.ID, 1000)

	if err := env.station.UpgradeHub(p.ID); err != nil {
		t.Fatalf("upgrade: %v", err)
	}

	got, _ := env.store.GetPlayer(p.ID)
	if got.HubLevel != 2 {
		t.Fatalf("want hub 2 got %d", got.HubLevel)
	}
	if got.MaxDrones != p.MaxDrones+2 || got.MaxArrays != p.MaxArrays+1 {
		t.Fatalf("caps not advanced: %+v", got)
	}
	if got.Credits != p.Credits+1000-env.catalog.HubThresholds[2] {
		t.Fatalf("unexpected balance %d", got.Credits)
	}
}

func TestUpgradeHubRequiresFunds(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)

	// Starting 500 is short of the 1000 threshold.
	err := env.station.UpgradeHub(p.ID)
	if !errors.Is(err, persistence.ErrInsufficientResources) {
		t.Fatalf("want ErrInsufficientResources got %v", err)
	}
	got, _ := env.store.GetPlayer(p.ID)
	if got.HubLevel != 1 || got.Credits != p.Credits {
		t.Fatalf("failed upgrade mutated player: %+v", got)
	}
}
