// Package engine holds the tick-driven entity engines, the power budget
// service, and the scheduler that fires each engine's sweep on its own
// cadence. Every sweep re-evaluates monotonic wall-clock predicates, so a
// missed or repeated firing is harmless.
package engine

import (
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/talgya/rift-station/internal/content"
	"github.com/talgya/rift-station/internal/persistence"
)

// BonusCache folds a player's accumulated tech unlocks into multiplicative
// bonuses. Unlocks are read-mostly, so the fold is cached per player and
// invalidated when the research engine completes a project.
type BonusCache struct {
	Catalog *content.Catalog

	mu    sync.RWMutex
	cache map[int64]map[content.BonusKind]float64
}

// NewBonusCache builds an empty cache.
func NewBonusCache(cat *content.Catalog) *BonusCache {
	return &BonusCache{
		Catalog: cat,
		cache:   make(map[int64]map[content.BonusKind]float64),
	}
}

// For returns a player's bonus multiplier for one kind, 1.0 when nothing
// applies. A cold cache reads tech_unlocks through q, which must be the
// caller's open transaction when one is held: the pool has a single
// connection, so going back to the pool from inside a transaction deadlocks.
func (c *BonusCache) For(q sqlx.Queryer, playerID int64, kind content.BonusKind) (float64, error) {
	all, err := c.all(q, playerID)
	if err != nil {
		return 1.0, err
	}
	if m, ok := all[kind]; ok {
		return m, nil
	}
	return 1.0, nil
}

func (c *BonusCache) all(q sqlx.Queryer, playerID int64) (map[content.BonusKind]float64, error) {
	c.mu.RLock()
	cached, ok := c.cache[playerID]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	unlocked, err := persistence.UnlockedTechs(q, playerID)
	if err != nil {
		return nil, err
	}
	folded := make(map[content.BonusKind]float64)
	for techID := range unlocked {
		tech, ok := c.Catalog.Techs[techID]
		if !ok {
			continue // unlock for content that was removed; ignore
		}
		for kind, mult := range tech.Bonuses {
			if _, ok := folded[kind]; !ok {
				folded[kind] = 1.0
			}
			folded[kind] *= mult
		}
	}

	c.mu.Lock()
	c.cache[playerID] = folded
	c.mu.Unlock()
	return folded, nil
}

// Invalidate drops a player's cached fold; the next read recomputes it.
func (c *BonusCache) Invalidate(playerID int64) {
	c.mu.Lock()
	delete(c.cache, playerID)
	c.mu.Unlock()
}
