package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/talgya/rift-station/internal/clock"
	"github.com/talgya/rift-station/internal/combat"
	"github.com/talgya/rift-station/internal/content"
	"github.com/talgya/rift-station/internal/persistence"
)

// Validation errors surfaced by battle actions.
var (
	ErrEmptyFleet     = errors.New("no living ships in the offense fleet")
	ErrUnknownChassis = errors.New("chassis not in the catalog")
)

// BattleService turns the pure resolver into a settled, persisted battle:
// resolve, then write the immutable record, the ship deltas, and the reward
// credit as one transaction. The RNG seed is derived from the battle id, so
// any stored battle can be replayed bit-for-bit.
type BattleService struct {
	Store   *persistence.Store
	Catalog *content.Catalog
	Clock   clock.Clock
}

// BuildShip constructs a ship of the given chassis, debiting its cost.
func (b *BattleService) BuildShip(playerID int64, chassisID, role string) (int64, error) {
	chassis, ok := b.Catalog.Chassis[chassisID]
	if !ok {
		return 0, fmt.Errorf("chassis %q: %w", chassisID, ErrUnknownChassis)
	}
	var shipID int64
	err := b.Store.WithTx(func(tx *sqlx.Tx) error {
		if err := persistence.DebitCredits(tx, playerID, chassis.Cost); err != nil {
			return err
		}
		id, err := persistence.CreateShip(tx, playerID, chassisID,
			chassis.MaxHull, chassis.MaxShields, role)
		if err != nil {
			return err
		}
		shipID = id
		return nil
	})
	return shipID, err
}

// FightRaid pits the player's offense fleet against a raider fleet scaled to
// their hub level and settles the outcome.
func (b *BattleService) FightRaid(playerID int64) (*persistence.Battle, *combat.Outcome, error) {
	player, err := b.Store.GetPlayer(playerID)
	if err != nil {
		return nil, nil, err
	}

	rows, err := persistence.FleetOf(b.Store.DB(), playerID, persistence.RoleOffense)
	if err != nil {
		return nil, nil, err
	}
	attackers, err := b.toCombatFleet(rows)
	if err != nil {
		return nil, nil, err
	}
	if len(attackers) == 0 {
		return nil, nil, fmt.Errorf("player %d: %w", playerID, ErrEmptyFleet)
	}

	battleID := uuid.NewString()
	defenders := b.raiderFleet(player.HubLevel)
	outcome := combat.Resolve(attackers, defenders, combat.NewRNG(battleID))

	reward := int64(0)
	if outcome.Victory {
		for _, s := range outcome.Defenders {
			chassis := b.Catalog.Chassis[s.Chassis]
			reward += chassis.Cost / 2
		}
	}

	record, err := b.persist(battleID, playerID, "raiders", outcome, reward)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("battle settled",
		"battle", battleID, "player", playerID, "victory", outcome.Victory,
		"rounds", outcome.Rounds, "reward", reward)
	return record, &outcome, nil
}

// persist writes the battle record, ship deltas, and reward atomically.
func (b *BattleService) persist(battleID string, playerID int64, opponent string,
	outcome combat.Outcome, reward int64) (*persistence.Battle, error) {

	attackerJSON, err := json.Marshal(outcome.Attackers)
	if err != nil {
		return nil, fmt.Errorf("marshal attacker fleet: %w", err)
	}
	defenderJSON, err := json.Marshal(outcome.Defenders)
	if err != nil {
		return nil, fmt.Errorf("marshal defender fleet: %w", err)
	}
	logBlob, err := combat.EncodeLog(outcome.Log)
	if err != nil {
		return nil, err
	}

	record := &persistence.Battle{
		ID:            battleID,
		AttackerID:    playerID,
		Opponent:      opponent,
		AttackerFleet: string(attackerJSON),
		DefenderFleet: string(defenderJSON),
		TurnLog:       logBlob,
		Rounds:        outcome.Rounds,
		Victory:       outcome.Victory,
		RewardCredits: reward,
		CreatedAt:     b.Clock.Now().Unix(),
	}

	err = b.Store.WithTx(func(tx *sqlx.Tx) error {
		if err := persistence.SaveBattle(tx, record); err != nil {
			return err
		}
		for _, s := range outcome.Attackers {
			destroyed := s.Hull == 0
			if err := persistence.ApplyShipDelta(tx, s.ID, s.Hull, s.Shields, destroyed); err != nil {
				return err
			}
		}
		if reward > 0 {
			if err := persistence.CreditPlayer(tx, playerID, reward, 0, 0); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// toCombatFleet lifts ship rows into resolver inputs using catalog base
// stats for weapons and speed.
func (b *BattleService) toCombatFleet(rows []persistence.Ship) ([]combat.Ship, error) {
	out := make([]combat.Ship, 0, len(rows))
	for _, r := range rows {
		chassis, ok := b.Catalog.Chassis[r.ChassisID]
		if !ok {
			return nil, fmt.Errorf("ship %d chassis %q: %w", r.ID, r.ChassisID, ErrUnknownChassis)
		}
		out = append(out, combat.Ship{
			ID:         r.ID,
			Chassis:    r.ChassisID,
			Hull:       r.Hull,
			MaxHull:    chassis.MaxHull,
			Shields:    r.Shields,
			MaxShields: chassis.MaxShields,
			Damage:     chassis.Damage,
			Speed:      chassis.Speed,
		})
	}
	return out, nil
}

// raiderFleet builds the NPC opposition: one raider per hub level, plus a
// frigate every third level. Raider ship IDs are negative so they can never
// collide with stored ship rows.
func (b *BattleService) raiderFleet(hubLevel int) []combat.Ship {
	if hubLevel < 1 {
		hubLevel = 1
	}
	var fleet []combat.Ship
	nextID := int64(-1)
	add := func(chassisID string) {
		c := b.Catalog.Chassis[chassisID]
		fleet = append(fleet, combat.Ship{
			ID:         nextID,
			Chassis:    chassisID,
			Hull:       c.MaxHull,
			MaxHull:    c.MaxHull,
			Shields:    c.MaxShields,
			MaxShields: c.MaxShields,
			Damage:     c.Damage,
			Speed:      c.Speed,
		})
		nextID--
	}
	for i := 0; i < hubLevel; i++ {
		add("raider")
	}
	for i := 3; i <= hubLevel; i += 3 {
		add("frigate")
	}
	return fleet
}
