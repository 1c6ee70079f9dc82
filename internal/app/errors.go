package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrRunInProgress  = errors.New("run already in progress for semester")
	ErrBusy           = errors.New("run queue full")
	ErrRunNotReady    = errors.New("run has no assignment")
	ErrInvalidRequest = errors.New("invalid request")
)
