package persistence

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Resource ledger primitives. These are the only paths that may reduce a
// node's remaining amount or stability, or move value into a player balance.
// Every primitive is a single UPDATE so the clamp and the mutation are one
// atomic statement; SET expressions in SQLite evaluate against the
// pre-update row, which is what makes the last_extracted capture work.

// DecrementNodeClamped subtracts up to amount from a finite node's remaining
// pool and returns how much was actually taken: min(amount, remaining).
// The stored remainder never goes below zero.
func DecrementNodeClamped(q sqlx.Ext, nodeID int64, amount float64) (float64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("negative decrement %f for node %d", amount, nodeID)
	}
	var actual float64
	err := sqlx.Get(q, &actual, `
		UPDATE resource_nodes
		   SET last_extracted = MIN(?, remaining_amount),
		       remaining_amount = MAX(remaining_amount - ?, 0)
		 WHERE id = ? AND kind = ? AND collapsed = 0
		RETURNING last_extracted`,
		amount, amount, nodeID, NodeAsteroid)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("node %d: %w", nodeID, ErrRaceLost)
	}
	if err != nil {
		return 0, fmt.Errorf("decrement node %d: %w", nodeID, err)
	}
	return actual, nil
}

// DecayRiftClamped subtracts decay from a rift's stability, clamped at zero,
// and returns the new stability. ErrRaceLost means the rift is already
// collapsed or gone.
func DecayRiftClamped(q sqlx.Ext, nodeID int64, decay float64) (float64, error) {
	var stability float64
	err := sqlx.Get(q, &stability, `
		UPDATE resource_nodes
		   SET stability = MAX(stability - ?, 0)
		 WHERE id = ? AND kind = ? AND collapsed = 0
		RETURNING stability`,
		decay, nodeID, NodeRift)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("rift %d: %w", nodeID, ErrRaceLost)
	}
	if err != nil {
		return 0, fmt.Errorf("decay rift %d: %w", nodeID, err)
	}
	return stability, nil
}

// CreditPlayer adds resources to a player's balances, each clamped at the
// player's storage cap in the same statement.
func CreditPlayer(q sqlx.Ext, playerID, credits, metal, crystals int64) error {
	res, err := q.Exec(`
		UPDATE players
		   SET credits = MIN(credits + ?, max_credits),
		       metal = MIN(metal + ?, max_metal),
		       crystals = MIN(crystals + ?, max_crystals)
		 WHERE id = ?`,
		credits, metal, crystals, playerID)
	if err != nil {
		return fmt.Errorf("credit player %d: %w", playerID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("credit player %d: %w", playerID, ErrNotFound)
	}
	return nil
}

// CreditCrystalsClamped adds up to amount crystals, clamped at the player's
// storage cap, and returns how much actually landed: min(amount, headroom).
// Callers that track banked totals must add the return value, not amount.
func CreditCrystalsClamped(q sqlx.Ext, playerID, amount int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("negative crystal credit %d for player %d", amount, playerID)
	}
	var actual int64
	err := sqlx.Get(q, &actual, `
		UPDATE players
		   SET last_credited = MAX(MIN(?, max_crystals - crystals), 0),
		       crystals = MIN(crystals + ?, max_crystals)
		 WHERE id = ?
		RETURNING last_credited`,
		amount, amount, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("credit player %d: %w", playerID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("credit crystals player %d: %w", playerID, err)
	}
	return actual, nil
}

// DebitCredits subtracts amount from a player's credits, failing without
// mutation when the balance is short. The affordability check and the
// subtraction are the same statement.
func DebitCredits(q sqlx.Ext, playerID, amount int64) error {
	res, err := q.Exec(`
		UPDATE players SET credits = credits - ?
		 WHERE id = ? AND credits >= ?`,
		amount, playerID, amount)
	if err != nil {
		return fmt.Errorf("debit player %d: %w", playerID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("debit player %d by %d: %w", playerID, amount, ErrInsufficientResources)
	}
	return nil
}
