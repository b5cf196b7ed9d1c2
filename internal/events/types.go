package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeImportStarted uint32 = iota + 1
	TypeImportProgress
	TypeImportTrackStarted
	TypeImportWarning
	TypeImportFinished
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ImportStarted is published once a session has claimed its destination.
type ImportStarted struct {
	SessionID       string
	Device          string
	Destination     string
	ErrorCorrection bool
	StartedAt       time.Time
}

// Type returns the event type identifier for ImportStarted.
func (e ImportStarted) Type() uint32 { return TypeImportStarted }

// ImportProgress carries a new, higher completion percentage.
type ImportProgress struct {
	SessionID string
	Percent   float64
}

// Type returns the event type identifier for ImportProgress.
func (e ImportProgress) Type() uint32 { return TypeImportProgress }

// ImportTrackStarted reports that the reader moved on to a new track.
type ImportTrackStarted struct {
	SessionID string
	Track     int
}

// Type returns the event type identifier for ImportTrackStarted.
func (e ImportTrackStarted) Type() uint32 { return TypeImportTrackStarted }

// ImportWarning carries one recoverable reader warning.
type ImportWarning struct {
	SessionID string
	Message   string
}

// Type returns the event type identifier for ImportWarning.
func (e ImportWarning) Type() uint32 { return TypeImportWarning }

// ImportFinished describes a terminal outcome.
type ImportFinished struct {
	SessionID       string
	Device          string
	Destination     string
	ErrorCorrection bool
	// Status is "succeeded", "failed" or "cancelled".
	Status string
	// ErrorKind is the services.Kind of the failure, empty on success.
	ErrorKind    string
	Error        string
	CleanupError string
	Warnings     []string
	ExitCode     int
	Tracks       int
	DataBytes    int64
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Type returns the event type identifier for ImportFinished.
func (e ImportFinished) Type() uint32 { return TypeImportFinished }

// Duration returns how long the import ran.
func (e ImportFinished) Duration() time.Duration {
	if e.StartedAt.IsZero() || e.FinishedAt.Before(e.StartedAt) {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}
