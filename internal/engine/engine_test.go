package engine

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/talgya/rift-station/internal/clock"
	"github.com/talgya/rift-station/internal/content"
	"github.com/talgya/rift-station/internal/persistence"
)

// testEnv wires a full engine stack over a throwaway database and a fake
// clock.
type testEnv struct {
	store   *persistence.Store
	catalog *content.Catalog
	clk     *clock.Fake
	bonuses *BonusCache
	power   *PowerService

	players int

	missions   *MissionEngine
	riftDecay  *RiftDecayEngine
	extraction *ExtractionEngine
	upgrades   *UpgradeEngine
	research   *ResearchEngine
	battles    *BattleService
	station    *Station
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := persistence.Open(filepath.Join(t.TempDir(), "station.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cat := content.Default()
	clk := &clock.Fake{Current: time.Unix(100000, 0)}
	bonuses := NewBonusCache(cat)
	power := &PowerService{Store: store, Catalog: cat}

	return &testEnv{
		store:   store,
		catalog: cat,
		clk:     clk,
		bonuses: bonuses,
		power:   power,

		missions:   &MissionEngine{Store: store, Catalog: cat, Clock: clk, Bonuses: bonuses},
		riftDecay:  &RiftDecayEngine{Store: store, Catalog: cat, Clock: clk, Bonuses: bonuses},
		extraction: &ExtractionEngine{Store: store, Catalog: cat, Clock: clk, Bonuses: bonuses},
		upgrades:   &UpgradeEngine{Store: store, Catalog: cat, Clock: clk},
		research:   &ResearchEngine{Store: store, Catalog: cat, Clock: clk, Bonuses: bonuses},
		battles:    &BattleService{Store: store, Catalog: cat, Clock: clk},
		station:    &Station{Store: store, Catalog: cat, Clock: clk, Power: power},
	}
}

func (e *testEnv) newPlayer(t *testing.T) *persistence.Player {
	t.Helper()
	e.players++
	p, err := e.store.CreatePlayer(fmt.Sprintf("cmdr-%s-%d", t.Name(), e.players), e.clk.Current.Unix())
	if err != nil {
		t.Fatalf("create player: %v", err)
	}
	return p
}

func (e *testEnv) fund(t *testing.T, playerID, credits int64) {
	t.Helper()
	if err := persistence.CreditPlayer(e.store.DB(), playerID, credits, 0, 0); err != nil {
		t.Fatalf("fund player: %v", err)
	}
}

func (e *testEnv) credits(t *testing.T, playerID int64) int64 {
	t.Helper()
	p, err := e.store.GetPlayer(playerID)
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	return p.Credits
}

func (e *testEnv) newDrone(t *testing.T, playerID int64) int64 {
	t.Helper()
	id, err := persistence.CreateDrone(e.store.DB(), playerID, 1)
	if err != nil {
		t.Fatalf("create drone: %v", err)
	}
	return id
}

func (e *testEnv) newAsteroid(t *testing.T, playerID int64, remaining, distance float64) int64 {
	t.Helper()
	id, err := persistence.CreateNode(e.store.DB(), &persistence.ResourceNode{
		PlayerID:           playerID,
		Kind:               persistence.NodeAsteroid,
		Distance:           distance,
		IsDiscovered:       true,
		TotalAmount:        remaining,
		RemainingAmount:    remaining,
		VolatilityModifier: 1,
	})
	if err != nil {
		t.Fatalf("create asteroid: %v", err)
	}
	return id
}

func (e *testEnv) newRift(t *testing.T, playerID int64, stability float64) int64 {
	t.Helper()
	id, err := persistence.CreateNode(e.store.DB(), &persistence.ResourceNode{
		PlayerID:           playerID,
		Kind:               persistence.NodeRift,
		Distance:           100,
		IsDiscovered:       true,
		Stability:          stability,
		MaxStability:       stability,
		VolatilityModifier: 1,
	})
	if err != nil {
		t.Fatalf("create rift: %v", err)
	}
	return id
}

func (e *testEnv) deployedArray(t *testing.T, playerID, riftID int64) int64 {
	t.Helper()
	id, err := persistence.CreateArray(e.store.DB(), playerID, 1)
	if err != nil {
		t.Fatalf("create array: %v", err)
	}
	if err := persistence.DeployArray(e.store.DB(), id, riftID); err != nil {
		t.Fatalf("deploy array: %v", err)
	}
	return id
}
