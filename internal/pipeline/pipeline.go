// Package pipeline orchestrates one user's evaluation: window resolution,
// parallel signal detection, aggregation, persona matching, and priority
// resolution. The evaluation is a pure function of (user data, reference
// date, catalog); running it twice on identical input yields an identical
// assignment.
package pipeline

import (
	"fmt"
)

// Stage names the steps of a single user evaluation, in order.
type Stage string

const (
	StagePending         Stage = "PENDING"
	StageWindowsResolved Stage = "WINDOWS_RESOLVED"
	StageSignalsDetected Stage = "SIGNALS_DETECTED"
	StageAggregated      Stage = "AGGREGATED"
	StageMatched         Stage = "MATCHED"
	StageResolved        Stage = "RESOLVED"
)

// StageError attaches the failing stage to a hard evaluation failure so a
// batch driver can decide whether to skip the user or abort. There are no
// retries inside the pipeline.
type StageError struct {
	Stage  Stage
	UserID string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("evaluation of %s failed at %s: %v", e.UserID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, userID string, err error) *StageError {
	return &StageError{Stage: stage, UserID: userID, Err: err}
}
