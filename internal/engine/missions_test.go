package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/talgya/rift-station/internal/content"
	"github.com/talgya/rift-station/internal/persistence"
)

func TestDispatchFixesTimestampsFromStats(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)
	droneID := env.newDrone(t, p.ID)
	nodeID := env.newAsteroid(t, p.ID, 5000, 100)
	now := env.clk.Current.Unix()

	m, err := env.missions.Dispatch(p.ID, droneID, nodeID)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	// Tier 1: speed 10 over distance 100 is 10s travel; cargo 100 at
	// harvest 2 is 50s mining.
	if m.ArrivalAt != now+10 {
		t.Fatalf("arrival: want %d got %d", now+10, m.ArrivalAt)
	}
	if m.CompletesAt != now+60 {
		t.Fatalf("completes: want %d got %d", now+60, m.CompletesAt)
	}
	if m.ReturnAt != now+70 {
		t.Fatalf("return: want %d got %d", now+70, m.ReturnAt)
	}
	if m.Cargo != 100 {
		t.Fatalf("cargo: want 100 got %d", m.Cargo)
	}

	d, _ := persistence.GetDrone(env.store.DB(), droneID)
	if d.Status != persistence.DroneTraveling {
		t.Fatalf("drone status: want traveling got %q", d.Status)
	}
}

func TestDispatchValidation(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)
	other := env.newPlayer(t)
	droneID := env.newDrone(t, p.ID)
	nodeID := env.newAsteroid(t, p.ID, 5000, 100)
	riftID := env.newRift(t, p.ID, 100)

	if _, err := env.missions.Dispatch(other.ID, droneID, nodeID); !errors.Is(err, ErrNotYourEntity) {
		t.Fatalf("foreign drone: want ErrNotYourEntity got %v", err)
	}
	if _, err := env.missions.Dispatch(p.ID, droneID, riftID); !errors.Is(err, ErrNodeUnusable) {
		t.Fatalf("rift target: want ErrNodeUnusable got %v", err)
	}

	emptyID := env.newAsteroid(t, p.ID, 0, 100)
	if _, err := env.missions.Dispatch(p.ID, droneID, emptyID); !errors.Is(err, ErrNodeUnusable) {
		t.Fatalf("empty node: want ErrNodeUnusable got %v", err)
	}

	// First dispatch takes the drone; a second must see it busy.
	if _, err := env.missions.Dispatch(p.ID, droneID, nodeID); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if _, err := env.missions.Dispatch(p.ID, droneID, nodeID); !errors.Is(err, ErrDroneBusy) {
		t.Fatalf("busy drone: want ErrDroneBusy got %v", err)
	}
}

func TestMissionRoundTripSettlesClamped(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)
	droneID := env.newDrone(t, p.ID)
	// Only 80 units left against a 100-unit hold.
	nodeID := env.newAsteroid(t, p.ID, 80, 100)

	m, err := env.missions.Dispatch(p.ID, droneID, nodeID)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	ctx := context.Background()

	// Before arrival nothing moves.
	if err := env.missions.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	got, _ := env.store.GetMission(m.ID)
	if got.Status != persistence.MissionTraveling {
		t.Fatalf("premature transition to %q", got.Status)
	}

	env.clk.Advance(10 * time.Second)
	env.missions.Sweep(ctx)
	got, _ = env.store.GetMission(m.ID)
	if got.Status != persistence.MissionMining {
		t.Fatalf("want mining got %q", got.Status)
	}

	env.clk.Advance(50 * time.Second)
	env.missions.Sweep(ctx)
	got, _ = env.store.GetMission(m.ID)
	if got.Status != persistence.MissionReturning {
		t.Fatalf("want returning got %q", got.Status)
	}

	env.clk.Advance(10 * time.Second)
	env.missions.Sweep(ctx)
	got, _ = env.store.GetMission(m.ID)
	if got.Status != persistence.MissionCompleted {
		t.Fatalf("want completed got %q", got.Status)
	}

	// Settlement: the node had 80, so 80 lands regardless of the 100 hold.
	player, _ := env.store.GetPlayer(p.ID)
	if player.Metal != 80 {
		t.Fatalf("want 80 metal got %d", player.Metal)
	}
	node, _ := persistence.GetNode(env.store.DB(), nodeID)
	if node.RemainingAmount != 0 {
		t.Fatalf("want exhausted node got %f", node.RemainingAmount)
	}
	d, _ := persistence.GetDrone(env.store.DB(), droneID)
	if d.Status != persistence.DroneIdle {
		t.Fatalf("drone not parked: %q", d.Status)
	}

	// A later sweep must not settle the mission twice.
	env.missions.Sweep(ctx)
	player, _ = env.store.GetPlayer(p.ID)
	if player.Metal != 80 {
		t.Fatalf("double settlement: %d metal", player.Metal)
	}
}

func TestMissionSkipsDeadlines(t *testing.T) {
	// A long outage advances the clock past every deadline at once; one sweep
	// per edge still walks the mission through in order.
	env := newTestEnv(t)
	p := env.newPlayer(t)
	droneID := env.newDrone(t, p.ID)
	nodeID := env.newAsteroid(t, p.ID, 5000, 100)

	m, err := env.missions.Dispatch(p.ID, droneID, nodeID)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	env.clk.Advance(time.Hour)
	ctx := context.Background()

	env.missions.Sweep(ctx)
	got, _ := env.store.GetMission(m.ID)
	if got.Status != persistence.MissionCompleted {
		t.Fatalf("one sweep after outage: want completed got %q", got.Status)
	}
}

func TestCancelMissionRecallsDrone(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)
	droneID := env.newDrone(t, p.ID)
	nodeID := env.newAsteroid(t, p.ID, 5000, 100)

	m, err := env.missions.Dispatch(p.ID, droneID, nodeID)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	other := env.newPlayer(t)
	if err := env.missions.Cancel(other.ID, m.ID); !errors.Is(err, ErrNotYourEntity) {
		t.Fatalf("foreign cancel: want ErrNotYourEntity got %v", err)
	}

	if err := env.missions.Cancel(p.ID, m.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, _ := env.store.GetMission(m.ID)
	if got.Status != persistence.MissionCancelled {
		t.Fatalf("want cancelled got %q", got.Status)
	}
	d, _ := persistence.GetDrone(env.store.DB(), droneID)
	if d.Status != persistence.DroneIdle {
		t.Fatalf("drone not recalled: %q", d.Status)
	}

	// No credit for a cancelled run, even after its deadlines pass.
	env.clk.Advance(time.Hour)
	env.missions.Sweep(context.Background())
	player, _ := env.store.GetPlayer(p.ID)
	if player.Metal != 0 {
		t.Fatalf("cancelled mission yielded %d metal", player.Metal)
	}
}

func TestUnpoweredHangarFreezesMissions(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)
	droneID := env.newDrone(t, p.ID)
	nodeID := env.newAsteroid(t, p.ID, 5000, 100)

	m, err := env.missions.Dispatch(p.ID, droneID, nodeID)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	// A hangar with no generator goes dark once the budget is enforced.
	buildFacility(t, env, p.ID, content.FacilityHangar)
	if _, err := env.power.Enforce(env.store.DB(), p.ID); err != nil {
		t.Fatalf("enforce: %v", err)
	}

	ctx := context.Background()
	env.clk.Advance(time.Hour)
	env.missions.Sweep(ctx)
	got, _ := env.store.GetMission(m.ID)
	if got.Status != persistence.MissionTraveling {
		t.Fatalf("unpowered hangar let mission advance to %q", got.Status)
	}

	// Power restored: the same deadlines are still due, so one sweep walks
	// the mission all the way home.
	buildFacility(t, env, p.ID, content.FacilityReactor)
	if _, err := env.power.Enforce(env.store.DB(), p.ID); err != nil {
		t.Fatalf("enforce: %v", err)
	}
	env.missions.Sweep(ctx)
	got, _ = env.store.GetMission(m.ID)
	if got.Status != persistence.MissionCompleted {
		t.Fatalf("mission stuck at %q after power returned", got.Status)
	}
}

func TestVanishedNodeCancelsMission(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)
	droneID := env.newDrone(t, p.ID)
	nodeID := env.newAsteroid(t, p.ID, 5000, 100)

	m, err := env.missions.Dispatch(p.ID, droneID, nodeID)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	env.clk.Advance(time.Hour)
	if _, err := env.store.DB().Exec(`DELETE FROM resource_nodes WHERE id = ?`, nodeID); err != nil {
		t.Fatalf("delete node: %v", err)
	}

	env.missions.Sweep(context.Background())

	// Completed stays synonymous with settled and credited; a lost target
	// is a cancellation.
	got, _ := env.store.GetMission(m.ID)
	if got.Status != persistence.MissionCancelled {
		t.Fatalf("want cancelled got %q", got.Status)
	}
	d, _ := persistence.GetDrone(env.store.DB(), droneID)
	if d.Status != persistence.DroneIdle {
		t.Fatalf("drone not landed: %q", d.Status)
	}
	player, _ := env.store.GetPlayer(p.ID)
	if player.Metal != 0 {
		t.Fatalf("vanished node yielded %d metal", player.Metal)
	}
}

func TestColdBonusCacheInsideTransactions(t *testing.T) {
	// The pool holds a single connection, so the first bonus fold for a
	// player must run on the transaction that triggered it; going back to
	// the pool would deadlock. Exercise the cold paths: dispatch, cancel,
	// and a decay sweep over a deployed array.
	env := newTestEnv(t)
	p := env.newPlayer(t)
	droneID := env.newDrone(t, p.ID)
	nodeID := env.newAsteroid(t, p.ID, 5000, 100)
	now := env.clk.Current.Unix()

	// basic_mining multiplies harvest by 1.10, so the fold is observable in
	// the mining leg: 100 cargo at 2.2/s is ceil(45.45) = 46s.
	if err := persistence.InsertUnlock(env.store.DB(), p.ID, "basic_mining", now); err != nil {
		t.Fatalf("insert unlock: %v", err)
	}

	m, err := env.missions.Dispatch(p.ID, droneID, nodeID)
	if err != nil {
		t.Fatalf("dispatch with cold cache: %v", err)
	}
	if m.CompletesAt != m.ArrivalAt+46 {
		t.Fatalf("bonus not applied: mining leg %d", m.CompletesAt-m.ArrivalAt)
	}

	if err := env.missions.Cancel(p.ID, m.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	env.bonuses.Invalidate(p.ID)
	riftID := env.newRift(t, p.ID, 100)
	env.deployedArray(t, p.ID, riftID)
	if err := env.riftDecay.Sweep(context.Background()); err != nil {
		t.Fatalf("decay sweep with cold cache: %v", err)
	}
	node, _ := persistence.GetNode(env.store.DB(), riftID)
	want := 100 - (env.catalog.PassiveDecayPerTick + 3*env.catalog.ExtractionDecayMultiplier)
	if node.Stability != want {
		t.Fatalf("want stability %f got %f", want, node.Stability)
	}
}
