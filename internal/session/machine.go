package session

// PlanState is the externally visible phase of the plan machine.
type PlanState string

const (
	PlanIdle        PlanState = "idle"
	PlanGenerating  PlanState = "generating"
	PlanSummarizing PlanState = "summarizing"
)

// PlanMachine tracks the generate -> summarize chain. Every submission gets a
// new sequence number; completions carrying an older number are stale and
// must not change any flag.
type PlanMachine struct {
	seq         uint64
	generating  bool
	summarizing bool
}

// Start raises both flags and returns the sequence number of the new run.
func (m *PlanMachine) Start() uint64 {
	m.seq++
	m.generating = true
	m.summarizing = true
	return m.seq
}

// Current reports whether seq belongs to the latest submission.
func (m *PlanMachine) Current(seq uint64) bool {
	return seq == m.seq
}

// Generated records a successful generation: summarizing stays raised.
func (m *PlanMachine) Generated(seq uint64) bool {
	if !m.Current(seq) {
		return false
	}
	m.generating = false
	return true
}

// GenerateFailed ends the run: the summary will never be requested.
func (m *PlanMachine) GenerateFailed(seq uint64) bool {
	if !m.Current(seq) {
		return false
	}
	m.generating = false
	m.summarizing = false
	return true
}

// Summarized ends the run whatever the summary outcome was.
func (m *PlanMachine) Summarized(seq uint64) bool {
	if !m.Current(seq) {
		return false
	}
	m.summarizing = false
	return true
}

// Generating reports the generating flag
func (m *PlanMachine) Generating() bool { return m.generating }

// Summarizing reports the summarizing flag
func (m *PlanMachine) Summarizing() bool { return m.summarizing }

// State collapses the flags into a single phase.
func (m *PlanMachine) State() PlanState {
	switch {
	case m.generating:
		return PlanGenerating
	case m.summarizing:
		return PlanSummarizing
	default:
		return PlanIdle
	}
}

// AdjustMachine tracks route adjustment independently of the plan machine.
type AdjustMachine struct {
	seq       uint64
	adjusting bool
}

// Start raises the adjusting flag and returns the run's sequence number.
func (m *AdjustMachine) Start() uint64 {
	m.seq++
	m.adjusting = true
	return m.seq
}

// Current reports whether seq belongs to the latest submission.
func (m *AdjustMachine) Current(seq uint64) bool {
	return seq == m.seq
}

// Done clears the flag for the latest run. Stale runs are ignored.
func (m *AdjustMachine) Done(seq uint64) bool {
	if !m.Current(seq) {
		return false
	}
	m.adjusting = false
	return true
}

// Adjusting reports the adjusting flag
func (m *AdjustMachine) Adjusting() bool { return m.adjusting }
