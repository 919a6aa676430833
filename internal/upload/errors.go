package upload

import "errors"

// Sentinel errors recorded in Result.Err and MutationStatus.Err.
var (
	ErrUploadFailed     = errors.New("upload: activity was not accepted")
	ErrTypeUnresolved   = errors.New("upload: activity type not in catalog")
	ErrNameMismatch     = errors.New("upload: name mismatch")
	ErrTypeMismatch     = errors.New("upload: type mismatch")
	ErrInvalidExtension = errors.New("upload: unsupported file extension")
	ErrRemoteIDAssigned = errors.New("upload: remote id already assigned")
	ErrNoRemoteID       = errors.New("upload: activity has no remote id")
)
