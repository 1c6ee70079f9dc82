package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateRun  = errors.New("duplicate run")
	ErrInvalidLimit  = errors.New("invalid limit")
	ErrInvalidRecord = errors.New("invalid record")
)
