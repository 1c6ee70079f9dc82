package model

import "time"

// RunState is the lifecycle state of an assignment run.
type RunState string

// Run lifecycle states.
const (
	RunQueued    RunState = "queued"
	RunRunning   RunState = "running"
	RunSucceeded RunState = "succeeded"
	RunFailed    RunState = "failed"
)

// Terminal reports whether no further transitions happen from s.
func (s RunState) Terminal() bool {
	return s == RunSucceeded || s == RunFailed
}

// RunRequest is the payload flowing through the run queue.
type RunRequest struct {
	RunID       string
	SemesterID  string
	Seed        int64 // shuffle seed; 0 picks one from the clock
	RequestedAt time.Time
}

// RunSummary aggregates how well an assignment honours preferences.
type RunSummary struct {
	FirstChoice     int `json:"first_choice"`
	SecondChoice    int `json:"second_choice"`
	ThirdChoice     int `json:"third_choice"`
	NoChoice        int `json:"no_choice"`
	PartnerRequests int `json:"partner_requests"`
	PartnerMatches  int `json:"partner_matches"`
}

// Run is the progress record of one assignment run.
type Run struct {
	ID           string
	SemesterID   string
	State        RunState
	SolverStatus string
	Objective    int64
	Seed         int64
	Reason       string
	Summary      RunSummary
	Assignment   Assignment
	CreatedAt    time.Time
	StartedAt    time.Time
	FinishedAt   time.Time
}
