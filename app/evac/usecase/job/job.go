package job

import "time"

// State represents the current state of the evacuation job.
// Transitions move forward only: Init, Setup, Running, then
// Complete or Failed.
type State string

const (
	// Init : job record created or loaded.
	Init State = "Init"
	// Setup : capacity ledger and discovery source are being prepared.
	Setup State = "Setup"
	// Running : pipeline stages active.
	Running State = "Running"
	// Complete : discovery exhausted and every object reached a
	// terminal status and all in-flight assignments resolved.
	Complete State = "Complete"
	// Failed : unrecoverable error occurred or the operator aborted.
	Failed State = "Failed"
)

// String returns a string of the job state.
func (s State) String() string {
	switch s {
	case Init, Setup, Running, Complete, Failed:
		return string(s)
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is an end state of the job.
func (s State) Terminal() bool {
	return s == Complete || s == Failed
}

// Counter names one of the four monotonic result counters.
type Counter int

const (
	// CounterTotal counts every discovered object.
	CounterTotal Counter = iota
	// CounterSkipped counts objects with no valid destination.
	CounterSkipped
	// CounterComplete counts objects moved and recorded.
	CounterComplete
	// CounterFailed counts objects whose transfer or metadata
	// update failed.
	CounterFailed
)

// Counters are the result counters of a job. At Complete,
// Total == Skipped + Complete + Failed.
type Counters struct {
	Total    uint64
	Skipped  uint64
	Complete uint64
	Failed   uint64
}

// Job is one evacuation job: move all objects off the source shark.
// Owned exclusively by the job controller; mutated only through
// state transitions and counter increments, both durably recorded
// before being considered final.
type Job struct {
	ID          string
	SourceShark string
	Mode        string
	State       State
	Counters    Counters
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
