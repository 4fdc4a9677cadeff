package engine

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/talgya/rift-station/internal/content"
	"github.com/talgya/rift-station/internal/persistence"
)

// Budget is one player's computed power balance.
type Budget struct {
	Generation  int64 `json:"generation"`
	Consumption int64 `json:"consumption"`
	Available   int64 `json:"available"`
}

// PowerService recomputes the power budget from scratch and writes the
// derived is_powered flag. Engines only ever read the flag; nothing
// recomputes the budget inline.
type PowerService struct {
	Store   *persistence.Store
	Catalog *content.Catalog
}

// CalculateBudget sums generator output against non-generator draw over a
// player's built facilities.
func (p *PowerService) CalculateBudget(q sqlx.Queryer, playerID int64) (Budget, error) {
	facs, err := persistence.FacilitiesOf(q, playerID)
	if err != nil {
		return Budget{}, fmt.Errorf("facilities for player %d: %w", playerID, err)
	}
	var b Budget
	for _, f := range facs {
		spec, ok := p.Catalog.Facilities[f.Type]
		if !ok {
			continue // facility for content that was removed; draws nothing
		}
		if spec.IsGenerator() {
			b.Generation += spec.PowerOutput
		} else {
			b.Consumption += spec.PowerCost
		}
	}
	b.Available = b.Generation - b.Consumption
	return b, nil
}

// Enforce recomputes the budget and flips is_powered across the player's
// built facilities: a deficit unpowers every non-generator, a surplus (or
// break-even) powers everything. Call it after any mutation that changes
// build state.
func (p *PowerService) Enforce(q sqlx.Ext, playerID int64) (Budget, error) {
	b, err := p.CalculateBudget(q, playerID)
	if err != nil {
		return Budget{}, err
	}

	if b.Available < 0 {
		if err := persistence.SetPoweredForTypes(q, playerID, false, p.consumerTypes()); err != nil {
			return b, err
		}
		if err := persistence.SetPoweredForTypes(q, playerID, true, p.generatorTypes()); err != nil {
			return b, err
		}
	} else {
		if err := persistence.SetAllPowered(q, playerID, true); err != nil {
			return b, err
		}
	}
	return b, nil
}

func (p *PowerService) generatorTypes() []string {
	var out []string
	for t, spec := range p.Catalog.Facilities {
		if spec.IsGenerator() {
			out = append(out, t)
		}
	}
	return out
}

func (p *PowerService) consumerTypes() []string {
	var out []string
	for t, spec := range p.Catalog.Facilities {
		if !spec.IsGenerator() {
			out = append(out, t)
		}
	}
	return out
}

// gateOpen reports whether a player's gating facility permits operation.
// A player with no such facility runs unmetered; only an existing, unpowered
// facility closes the gate.
func gateOpen(q sqlx.Queryer, playerID int64, facType string) (bool, error) {
	exists, powered, err := persistence.FacilityPowered(q, playerID, facType)
	if err != nil {
		return false, err
	}
	if !exists {
		return true, nil
	}
	return powered, nil
}
