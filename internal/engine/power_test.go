package engine

import (
	"testing"

	"github.com/talgya/rift-station/internal/content"
	"github.com/talgya/rift-station/internal/persistence"
)

func buildFacility(t *testing.T, env *testEnv, playerID int64, facType string) {
	t.Helper()
	if _, err := persistence.BuildFacility(env.store.DB(), playerID, facType, 0); err != nil {
		t.Fatalf("build %s: %v", facType, err)
	}
}

func poweredState(t *testing.T, env *testEnv, playerID int64, facType string) bool {
	t.Helper()
	exists, powered, err := persistence.FacilityPowered(env.store.DB(), playerID, facType)
	if err != nil {
		t.Fatalf("facility state: %v", err)
	}
	if !exists {
		t.Fatalf("facility %s missing", facType)
	}
	return powered
}

func TestCalculateBudget(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)

	b, err := env.power.CalculateBudget(env.store.DB(), p.ID)
	if err != nil {
		t.Fatalf("budget: %v", err)
	}
	if b.Generation != 0 || b.Consumption != 0 || b.Available != 0 {
		t.Fatalf("empty station budget not zero: %+v", b)
	}

	buildFacility(t, env, p.ID, content.FacilityReactor) // +20
	buildFacility(t, env, p.ID, content.FacilityHangar)  // -5
	buildFacility(t, env, p.ID, content.FacilityLab)     // -8

	b, _ = env.power.CalculateBudget(env.store.DB(), p.ID)
	if b.Generation != 20 || b.Consumption != 13 || b.Available != 7 {
		t.Fatalf("unexpected budget %+v", b)
	}
}

func TestEnforceDeficitUnpowersConsumers(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)

	// 20 generation against 23 draw.
	buildFacility(t, env, p.ID, content.FacilityReactor)
	buildFacility(t, env, p.ID, content.FacilityHangar)
	buildFacility(t, env, p.ID, content.FacilityLab)
	buildFacility(t, env, p.ID, content.FacilityUplinkTower)
	buildFacility(t, env, p.ID, content.FacilityScanner)

	b, err := env.power.Enforce(env.store.DB(), p.ID)
	if err != nil {
		t.Fatalf("enforce: %v", err)
	}
	if b.Available >= 0 {
		t.Fatalf("expected deficit got %+v", b)
	}

	for _, facType := range []string{
		content.FacilityHangar, content.FacilityLab,
		content.FacilityUplinkTower, content.FacilityScanner,
	} {
		if poweredState(t, env, p.ID, facType) {
			t.Fatalf("consumer %s powered under deficit", facType)
		}
	}
	if !poweredState(t, env, p.ID, content.FacilityReactor) {
		t.Fatalf("generator unpowered under deficit")
	}

	// A second reactor clears the deficit; everything repowers.
	buildFacility(t, env, p.ID, content.FacilityReactor)
	b, _ = env.power.Enforce(env.store.DB(), p.ID)
	if b.Available < 0 {
		t.Fatalf("still in deficit: %+v", b)
	}
	for _, facType := range []string{
		content.FacilityHangar, content.FacilityLab,
		content.FacilityUplinkTower, content.FacilityScanner,
	} {
		if !poweredState(t, env, p.ID, facType) {
			t.Fatalf("consumer %s not repowered", facType)
		}
	}
}

func TestGateOpenDefaultPermissive(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)

	// No hangar at all: missions run unmetered.
	open, err := gateOpen(env.store.DB(), p.ID, content.FacilityHangar)
	if err != nil {
		t.Fatalf("gate: %v", err)
	}
	if !open {
		t.Fatalf("missing facility must not close the gate")
	}

	// An unpowered hangar closes it.
	buildFacility(t, env, p.ID, content.FacilityHangar)
	if _, err := env.power.Enforce(env.store.DB(), p.ID); err != nil {
		t.Fatalf("enforce: %v", err)
	}
	open, _ = gateOpen(env.store.DB(), p.ID, content.FacilityHangar)
	if open {
		t.Fatalf("unpowered hangar left the gate open")
	}
}

func TestBreakEvenBudgetPowersAll(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)

	// Four hangars draw exactly one reactor's output.
	buildFacility(t, env, p.ID, content.FacilityReactor)
	for i := 0; i < 4; i++ {
		buildFacility(t, env, p.ID, content.FacilityHangar)
	}

	b, err := env.power.Enforce(env.store.DB(), p.ID)
	if err != nil {
		t.Fatalf("enforce: %v", err)
	}
	if b.Available != 0 {
		t.Fatalf("want break-even budget got %+v", b)
	}
	if !poweredState(t, env, p.ID, content.FacilityHangar) {
		t.Fatalf("consumers unpowered at break-even")
	}
}
