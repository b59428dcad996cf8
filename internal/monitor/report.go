package monitor

import "time"

type Outcome string

const (
	OutcomeOK         Outcome = "ok"
	OutcomeContained  Outcome = "contained"
	OutcomeCritical   Outcome = "critical"
	OutcomeUnexpected Outcome = "unexpected"
	OutcomeCancelled  Outcome = "cancelled"
)

type Stage string

const (
	StageFetch    Stage = "fetch"
	StageValidate Stage = "validate"
	StageExtract  Stage = "extract"
	StageNotify   Stage = "notify"
)

// CycleReport summarizes one cycle for observers.
type CycleReport struct {
	ID      string
	Started time.Time
	Took    time.Duration
	Outcome Outcome
	// Stage is the last stage entered; on failure, the one that failed.
	Stage Stage
	Err   error

	// Changed is set when a new state was observed and a send was attempted.
	Changed bool
	SendErr error

	CursorBefore int64
	Cursor       int64
}
