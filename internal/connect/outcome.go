package connect

import "fmt"

// OutcomeKind tags an UploadOutcome.
type OutcomeKind int

// Upload outcome kinds. AlreadyExists is a normal terminal state, not an error.
const (
	OutcomeFailed OutcomeKind = iota
	OutcomeCreated
	OutcomeAlreadyExists
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCreated:
		return "SUCCESS"
	case OutcomeAlreadyExists:
		return "EXISTS"
	default:
		return "FAIL"
	}
}

// UploadOutcome is the result of one upload attempt. RemoteID is meaningful
// for Created and AlreadyExists; Reason for Failed.
type UploadOutcome struct {
	Kind     OutcomeKind
	RemoteID int64
	Reason   string
}

// Created reports a new remote activity.
func Created(id int64) UploadOutcome {
	return UploadOutcome{Kind: OutcomeCreated, RemoteID: id}
}

// AlreadyExists reports that the remote service already holds this file.
func AlreadyExists(id int64) UploadOutcome {
	return UploadOutcome{Kind: OutcomeAlreadyExists, RemoteID: id}
}

// Failed reports an upload the service did not accept.
func Failed(reason string) UploadOutcome {
	return UploadOutcome{Kind: OutcomeFailed, Reason: reason}
}

// HasRemoteID reports whether the outcome carries a remote identifier.
func (o UploadOutcome) HasRemoteID() bool {
	return o.Kind == OutcomeCreated || o.Kind == OutcomeAlreadyExists
}

func (o UploadOutcome) String() string {
	if o.HasRemoteID() {
		return fmt.Sprintf("%s(%d)", o.Kind, o.RemoteID)
	}

	return fmt.Sprintf("%s(%s)", o.Kind, o.Reason)
}
