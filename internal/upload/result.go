package upload

import (
	"github.com/tonimelisma/gupload/internal/connect"
)

// MutationState is the outcome of an optional rename or retype.
type MutationState int

// Mutation states.
const (
	MutationNotRequested MutationState = iota
	MutationApplied
	MutationFailed
	MutationSkipped
)

func (s MutationState) String() string {
	switch s {
	case MutationApplied:
		return "applied"
	case MutationFailed:
		return "failed"
	case MutationSkipped:
		return "skipped"
	default:
		return "n/a"
	}
}

// MutationStatus reports one metadata edit. Value is what the service holds
// after an Applied edit; Err explains a Failed one.
type MutationStatus struct {
	State MutationState
	Value string
	Err   error
}

// Display renders the status the way the report prints it.
func (m MutationStatus) Display() string {
	switch m.State {
	case MutationApplied:
		return m.Value
	case MutationFailed:
		return "FAIL!"
	default:
		return "N/A"
	}
}

func applied(v string) MutationStatus { return MutationStatus{State: MutationApplied, Value: v} }

func mutationFailed(err error) MutationStatus {
	return MutationStatus{State: MutationFailed, Err: err}
}

// Result is one line of the batch report.
type Result struct {
	Activity *Activity
	Outcome  connect.UploadOutcome
	Name     MutationStatus
	Type     MutationStatus

	// Err is set when the upload itself failed, locally or remotely.
	Err error
}

// Failed reports whether the upload did not produce a remote activity.
func (r Result) Failed() bool {
	return r.Outcome.Kind == connect.OutcomeFailed
}

// Report holds one Result per input activity, in input order.
type Report struct {
	Results []Result
}

// Summary counts the results by outcome kind.
type Summary struct {
	Created       int
	AlreadyExists int
	Failed        int
	MutationFails int
}

// Summary tallies the report.
func (r Report) Summary() Summary {
	var s Summary

	for _, res := range r.Results {
		switch res.Outcome.Kind {
		case connect.OutcomeCreated:
			s.Created++
		case connect.OutcomeAlreadyExists:
			s.AlreadyExists++
		default:
			s.Failed++
		}

		if res.Name.State == MutationFailed {
			s.MutationFails++
		}

		if res.Type.State == MutationFailed {
			s.MutationFails++
		}
	}

	return s
}
