// Package survey generates the resource-node field a player's deep scanner
// probes. Node placement, richness, and volatility are pure functions of the
// world seed and sector coordinates, so a re-scan of the same sector always
// reproduces the same node.
package survey

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ojrac/opensimplex-go"
	"lukechampine.com/blake3"
)

// Probe is what scanning one sector reveals.
type Probe struct {
	HasNode    bool
	IsRift     bool
	Richness   float64 // asteroid total amount, or rift max stability
	Volatility float64 // rift decay multiplier, 1.0 for asteroids
	Distance   float64 // travel distance from the station
}

// Field is the deterministic resource field for one world seed.
type Field struct {
	richness opensimplex.Noise
	seed     string
}

// NewField builds the field for a world seed string.
func NewField(worldSeed string) *Field {
	sum := blake3.Sum256([]byte(worldSeed))
	noiseSeed := int64(binary.BigEndian.Uint64(sum[:8]))
	return &Field{
		richness: opensimplex.New(noiseSeed),
		seed:     worldSeed,
	}
}

// nodeChance is the fraction of sectors holding a node; riftChance is the
// fraction of those that are rifts rather than asteroid clusters.
const (
	nodeChance = 0.35
	riftChance = 0.30
)

// ProbeSector resolves what exists at a sector. The existence and kind draws
// come from a blake3 hash of (seed, sector); the continuous fields come from
// simplex noise so neighbouring sectors have correlated richness.
func (f *Field) ProbeSector(x, y int64) Probe {
	sum := blake3.Sum256([]byte(fmt.Sprintf("%s:%d:%d", f.seed, x, y)))

	exists := float64(binary.BigEndian.Uint16(sum[0:2]))/65535.0 < nodeChance
	if !exists {
		return Probe{}
	}
	isRift := float64(binary.BigEndian.Uint16(sum[2:4]))/65535.0 < riftChance

	// Noise in [-1,1] → richness scale in [0.5, 1.5].
	n := f.richness.Eval2(float64(x)*0.1, float64(y)*0.1)
	scale := 1.0 + n*0.5

	dist := math.Hypot(float64(x), float64(y)) * 100
	if dist < 100 {
		dist = 100
	}

	p := Probe{HasNode: true, IsRift: isRift, Distance: dist}
	if isRift {
		p.Richness = 200 * scale  // max stability
		p.Volatility = 0.8 + float64(binary.BigEndian.Uint16(sum[4:6]))/65535.0*0.8
	} else {
		p.Richness = 5000 * scale // total metal
		p.Volatility = 1.0
	}
	return p
}

// SpiralSector maps a scan ordinal to sector coordinates, walking a square
// spiral outward from the station so later scans reach farther space.
// Ordinal 0 is the first sector out; the station itself (0,0) is never
// probed.
func SpiralSector(ordinal int64) (int64, int64) {
	x, y := int64(0), int64(0)
	dx, dy := int64(1), int64(0)
	steps := int64(1)
	taken := int64(0)
	legs := 0
	for i := int64(0); i <= ordinal; i++ {
		x, y = x+dx, y+dy
		taken++
		if taken == steps {
			taken = 0
			dx, dy = -dy, dx // turn left
			legs++
			if legs%2 == 0 {
				steps++
			}
		}
	}
	return x, y
}
