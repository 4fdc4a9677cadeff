package combat

import (
	"encoding/binary"
	"math/rand"

	"lukechampine.com/blake3"
)

// Seed derives a stable RNG seed from a battle id. Hashing keeps the seed
// uniform regardless of the id's shape, and lets any holder of the id replay
// the battle.
func Seed(battleID string) int64 {
	sum := blake3.Sum256([]byte(battleID))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// NewRNG returns the deterministic RNG for a battle id.
func NewRNG(battleID string) *rand.Rand {
	return rand.New(rand.NewSource(Seed(battleID)))
}
