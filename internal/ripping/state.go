package ripping

import (
	"time"

	"cdmedia/internal/bundle"
)

// State is a session's position in the import lifecycle.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateFinalizing
	StateSucceeded
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateFinalizing:
		return "finalizing"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// Outcome is the terminal result of a session.
type Outcome struct {
	// Status is StateSucceeded, StateFailed or StateCancelled.
	Status State
	// Err is nil on success. Otherwise it is marked with one of the
	// services sentinels (ErrLaunch, ErrToolFatal, ErrUnknownFailure,
	// ErrAssembly, ErrCancelled).
	Err error
	// Warnings lists recoverable reader warnings in the order reported.
	Warnings []string
	// Bundle is the published bundle on success.
	Bundle *bundle.Bundle
	// CleanupErr is set when partial output could not be removed. It is
	// marked services.ErrCleanup and never changes Status.
	CleanupErr error
	// ExitCode is cdrdao's exit status, or -1 when it never started.
	ExitCode   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Callbacks receive session notifications. They run sequentially on the
// session's worker goroutine and must not call Subscribe. Any field may be nil.
type Callbacks struct {
	OnProgress func(percent float64)
	OnTrack    func(track int)
	OnWarning  func(message string)
	OnComplete func(Outcome)
}
