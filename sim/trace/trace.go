package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every pathway choice and graph refresh.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// Enabled reports whether records should be collected.
func (c TraceConfig) Enabled() bool { return c.Level == TraceLevelDecisions }

// SimulationTrace collects decision records during a run.
type SimulationTrace struct {
	Config    TraceConfig
	Pathways  []PathwayRecord
	Refreshes []RefreshRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:    config,
		Pathways:  make([]PathwayRecord, 0),
		Refreshes: make([]RefreshRecord, 0),
	}
}

// RecordPathway appends a pathway choice. Nil-safe.
func (st *SimulationTrace) RecordPathway(record PathwayRecord) {
	if st == nil || !st.Config.Enabled() {
		return
	}
	st.Pathways = append(st.Pathways, record)
}

// RecordRefresh appends a graph refresh. Nil-safe.
func (st *SimulationTrace) RecordRefresh(record RefreshRecord) {
	if st == nil || !st.Config.Enabled() {
		return
	}
	st.Refreshes = append(st.Refreshes, record)
}
