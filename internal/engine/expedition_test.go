package engine

import (
	"context"
	"testing"

	"github.com/talgya/rift-station/internal/persistence"
)

func TestExpeditionCancelsOrphanedMissions(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)
	droneID := env.newDrone(t, p.ID)
	nodeID := env.newAsteroid(t, p.ID, 5000, 100)

	m, err := env.missions.Dispatch(p.ID, droneID, nodeID)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	// The node row disappears out from under the mission.
	if _, err := env.store.DB().Exec(`DELETE FROM resource_nodes WHERE id = ?`, nodeID); err != nil {
		t.Fatalf("delete node: %v", err)
	}

	expedition := &ExpeditionEngine{Store: env.store, Clock: env.clk}
	if err := expedition.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	got, _ := env.store.GetMission(m.ID)
	if got.Status != persistence.MissionCancelled {
		t.Fatalf("orphaned mission not cancelled: %q", got.Status)
	}
	d, _ := persistence.GetDrone(env.store.DB(), droneID)
	if d.Status != persistence.DroneIdle {
		t.Fatalf("drone not recovered: %q", d.Status)
	}
}

func TestExpeditionRetiresOrphanedArrays(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)
	riftID := env.newRift(t, p.ID, 100)
	arrayID := env.deployedArray(t, p.ID, riftID)

	if _, err := env.store.DB().Exec(`DELETE FROM resource_nodes WHERE id = ?`, riftID); err != nil {
		t.Fatalf("delete node: %v", err)
	}

	expedition := &ExpeditionEngine{Store: env.store, Clock: env.clk}
	if err := expedition.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	arr, _ := persistence.GetArray(env.store.DB(), arrayID)
	if arr.Status != persistence.ArrayDecommissioned {
		t.Fatalf("orphaned array not retired: %q", arr.Status)
	}
}

func TestExpeditionLeavesHealthyRowsAlone(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)
	droneID := env.newDrone(t, p.ID)
	nodeID := env.newAsteroid(t, p.ID, 5000, 100)

	m, err := env.missions.Dispatch(p.ID, droneID, nodeID)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	expedition := &ExpeditionEngine{Store: env.store, Clock: env.clk}
	expedition.Sweep(context.Background())

	got, _ := env.store.GetMission(m.ID)
	if got.Status != persistence.MissionTraveling {
		t.Fatalf("healthy mission disturbed: %q", got.Status)
	}
}
