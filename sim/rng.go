package sim

import (
	"hash/fnv"
	"math/rand/v2"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two runs with the same SimulationKey, run index and identical inputs
// MUST produce bit-for-bit identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemCostMethods drives stochastic cost-parameter draws.
	SubsystemCostMethods = "costmethods"

	// SubsystemLifespan drives Weibull item lifespans.
	SubsystemLifespan = "lifespan"
)

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG streams per subsystem.
//
// Derivation formula: masterSeed XOR fnv1a64(subsystemName), used as the
// first PCG seed word; the second word is the unmixed name hash.
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.PCG
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.PCG),
	}
}

// Source returns the deterministically-seeded stream for the named
// subsystem. The same name always returns the same source (cached), so
// every consumer of a subsystem advances one stream. gonum distributions
// take it directly. Never returns nil.
func (p *PartitionedRNG) Source(name string) rand.Source {
	if src, ok := p.subsystems[name]; ok {
		return src
	}
	h := fnv1a64(name)
	src := rand.NewPCG(uint64(int64(p.key)^h), uint64(h))
	p.subsystems[name] = src
	return src
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
