// Package trace provides decision-trace recording for pathway analysis.
// This package has no dependencies on sim/ or its sub-packages; it stores pure data types.
package trace

// PathwayRecord captures the pathway an item read from the graph when it
// entered.
type PathwayRecord struct {
	ItemID int
	Kind   string
	Clock  int64
	Source string // stage key of the entry stage, e.g. "manufacturing_1"
	Target string // stage key of the terminal stage
	Cost   float64
	Stages int
}

// RefreshRecord captures one cost refresh of the graph.
type RefreshRecord struct {
	Clock         int64
	Year          float64
	ComponentMass float64
	LearningCumul map[string]float64 // learning-curve key -> cumulative mass
}
