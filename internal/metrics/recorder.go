package metrics

import "time"

// RunOutcome is the final status of an evaluation run.
type RunOutcome string

const (
	OutcomeSuccess  RunOutcome = "success"
	OutcomeWarning  RunOutcome = "warning" // completed with problem documents or a failed side effect
	OutcomeFailed   RunOutcome = "failed"
	OutcomeCanceled RunOutcome = "canceled"
)

// Stage names passed to ObserveStageDuration.
const (
	StageScan     = "scan"
	StageEvaluate = "evaluate"
	StageLedger   = "ledger"
	StageNotify   = "notify"
	StageRender   = "render"
)

// Recorder defines observability hooks for evaluation runs. Implementations
// must be safe for concurrent use.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome RunOutcome)
	IncDecision(publishable bool)
	IncBlocked(gate string)
	SetPublished(n int)
	IncTransition(kind string)
	// SetNextTransition records when the publish set next changes by time
	// alone. The zero time clears it.
	SetNextTransition(t time.Time)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncRunOutcome(RunOutcome)                   {}
func (NoopRecorder) IncDecision(bool)                           {}
func (NoopRecorder) IncBlocked(string)                          {}
func (NoopRecorder) SetPublished(int)                           {}
func (NoopRecorder) IncTransition(string)                       {}
func (NoopRecorder) SetNextTransition(time.Time)                {}
