package survey

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/talgya/rift-station/internal/clock"
	"github.com/talgya/rift-station/internal/content"
	"github.com/talgya/rift-station/internal/persistence"
)

// ErrScannerCapacity rejects a scan when the player's discovered-node count
// has reached their scanner tier's ceiling.
var ErrScannerCapacity = errors.New("scanner capacity reached")

// maxProbe bounds the spiral walk for one scan.
const maxProbe = 500

// Scanner runs the discovery action: probe outward along the spiral until a
// node turns up, then record it as discovered.
type Scanner struct {
	Store   *persistence.Store
	Catalog *content.Catalog
	Field   *Field
	Clock   clock.Clock
}

// Scan discovers the next node for a player. Discovery is one-way and
// bounded by scanner capacity.
func (s *Scanner) Scan(playerID int64) (*persistence.ResourceNode, error) {
	var node *persistence.ResourceNode
	err := s.Store.WithTx(func(tx *sqlx.Tx) error {
		scanners, err := persistence.CountFacilities(tx, playerID, content.FacilityScanner)
		if err != nil {
			return err
		}
		capacity := s.capacityFor(int(scanners))

		discovered, err := persistence.CountDiscovered(tx, playerID)
		if err != nil {
			return err
		}
		if discovered >= int64(capacity) {
			return fmt.Errorf("player %d has %d of %d nodes: %w",
				playerID, discovered, capacity, ErrScannerCapacity)
		}

		// Walk the spiral from the station outward, skipping sectors this
		// player already has a node in, until the field yields a fresh one.
		for i := int64(0); i < maxProbe; i++ {
			x, y := SpiralSector(i)
			probe := s.Field.ProbeSector(x, y)
			if !probe.HasNode {
				continue
			}
			taken, err := persistence.NodeAtSector(tx, playerID, x, y)
			if err != nil {
				return err
			}
			if taken {
				continue
			}
			n := &persistence.ResourceNode{
				PlayerID:           playerID,
				SectorX:            x,
				SectorY:            y,
				Distance:           probe.Distance,
				IsDiscovered:       true,
				VolatilityModifier: probe.Volatility,
			}
			if probe.IsRift {
				n.Kind = persistence.NodeRift
				n.Stability = probe.Richness
				n.MaxStability = probe.Richness
			} else {
				n.Kind = persistence.NodeAsteroid
				n.TotalAmount = probe.Richness
				n.RemainingAmount = probe.Richness
			}
			id, err := persistence.CreateNode(tx, n)
			if err != nil {
				return err
			}
			n.ID = id
			node = n
			return nil
		}
		return fmt.Errorf("player %d: no node within %d sectors of scan cursor", playerID, maxProbe)
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// capacityFor resolves the discovered-node ceiling for a scanner count,
// falling back to the highest configured tier.
func (s *Scanner) capacityFor(scanners int) int {
	if c, ok := s.Catalog.ScannerCapacity[scanners]; ok {
		return c
	}
	best, bestTier := 0, -1
	for tier, c := range s.Catalog.ScannerCapacity {
		if tier > bestTier && tier <= scanners {
			best, bestTier = c, tier
		}
	}
	return best
}
