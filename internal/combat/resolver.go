// Package combat resolves fleet battles. The resolver is a pure function of
// the two fleets and an explicit RNG: no state is read or persisted here, so
// callers can replay any battle from its seed.
package combat

import (
	"math/rand"
	"sort"
)

// MaxRounds caps the battle length; a battle still undecided at the cap is a
// loss for the attacker.
const MaxRounds = 100

// Side labels for the turn log.
const (
	SideAttacker = "attacker"
	SideDefender = "defender"
)

// Ship is one combatant. Hull and Shields are current values; the resolver
// clamps both at zero.
type Ship struct {
	ID         int64  `json:"id"`
	Chassis    string `json:"chassis"`
	Side       string `json:"side"`
	Hull       int64  `json:"hull"`
	MaxHull    int64  `json:"max_hull"`
	Shields    int64  `json:"shields"`
	MaxShields int64  `json:"max_shields"`
	Damage     int64  `json:"damage"`
	Speed      int64  `json:"speed"`
}

// Alive reports whether the ship can still fight.
func (s *Ship) Alive() bool {
	return s.Hull > 0
}

// TurnEntry is one attack in the turn-by-turn log.
type TurnEntry struct {
	Turn             int    `json:"turn"`
	AttackerSide     string `json:"attacker_side"`
	AttackerID       int64  `json:"attacker_id"`
	TargetID         int64  `json:"target_id"`
	Damage           int64  `json:"damage"`
	ShieldsRemaining int64  `json:"shields_remaining"`
	HullRemaining    int64  `json:"hull_remaining"`
	Destroyed        bool   `json:"destroyed"`
}

// Outcome is the settled result of a battle.
type Outcome struct {
	Victory   bool        `json:"victory"` // attacker has survivors, defender has none
	Rounds    int         `json:"rounds"`
	Log       []TurnEntry `json:"log"`
	Attackers []Ship      `json:"attackers"` // final state
	Defenders []Ship      `json:"defenders"`
}

// Resolve runs the battle to completion. Fleets are copied; the inputs are
// not mutated. Identical fleets and an identically seeded rng reproduce an
// identical log and outcome.
func Resolve(attackers, defenders []Ship, rng *rand.Rand) Outcome {
	atk := copyFleet(attackers, SideAttacker)
	def := copyFleet(defenders, SideDefender)

	var log []TurnEntry
	rounds := 0

	for rounds < MaxRounds && anyAlive(atk) && anyAlive(def) {
		rounds++

		// Turn order: all living ships from both fleets, fastest first.
		// Speed ties break by ship ID ascending so ordering is stable.
		order := livingShips(atk, def)
		sort.SliceStable(order, func(i, j int) bool {
			if order[i].Speed != order[j].Speed {
				return order[i].Speed > order[j].Speed
			}
			return order[i].ID < order[j].ID
		})

		for _, actor := range order {
			if !actor.Alive() {
				continue // destroyed earlier this round
			}
			var enemies []*Ship
			if actor.Side == SideAttacker {
				enemies = living(def)
			} else {
				enemies = living(atk)
			}
			if len(enemies) == 0 {
				break
			}
			target := enemies[rng.Intn(len(enemies))]
			entry := applyDamage(actor, target, rounds)
			log = append(log, entry)
		}
	}

	return Outcome{
		Victory:   anyAlive(atk) && !anyAlive(def),
		Rounds:    rounds,
		Log:       log,
		Attackers: flatten(atk),
		Defenders: flatten(def),
	}
}

// applyDamage depletes the target's shields first, then hull, both clamped
// at zero, and returns the log entry.
func applyDamage(actor, target *Ship, turn int) TurnEntry {
	dmg := actor.Damage
	absorbed := dmg
	if absorbed > target.Shields {
		absorbed = target.Shields
	}
	target.Shields -= absorbed
	target.Hull -= dmg - absorbed
	if target.Hull < 0 {
		target.Hull = 0
	}
	return TurnEntry{
		Turn:             turn,
		AttackerSide:     actor.Side,
		AttackerID:       actor.ID,
		TargetID:         target.ID,
		Damage:           dmg,
		ShieldsRemaining: target.Shields,
		HullRemaining:    target.Hull,
		Destroyed:        target.Hull == 0,
	}
}

func copyFleet(fleet []Ship, side string) []*Ship {
	out := make([]*Ship, len(fleet))
	for i := range fleet {
		s := fleet[i]
		s.Side = side
		if s.Hull < 0 {
			s.Hull = 0
		}
		if s.Shields < 0 {
			s.Shields = 0
		}
		out[i] = &s
	}
	return out
}

func living(fleet []*Ship) []*Ship {
	var out []*Ship
	for _, s := range fleet {
		if s.Alive() {
			out = append(out, s)
		}
	}
	return out
}

func livingShips(a, b []*Ship) []*Ship {
	return append(living(a), living(b)...)
}

func anyAlive(fleet []*Ship) bool {
	for _, s := range fleet {
		if s.Alive() {
			return true
		}
	}
	return false
}

func flatten(fleet []*Ship) []Ship {
	out := make([]Ship, len(fleet))
	for i, s := range fleet {
		out[i] = *s
	}
	return out
}
