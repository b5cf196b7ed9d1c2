package cdrdao

// EventKind identifies what a classified output line means.
type EventKind int

const (
	EventProgress EventKind = iota + 1
	EventTrackStarted
	EventWarning
	EventFatal
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventTrackStarted:
		return "track_started"
	case EventWarning:
		return "warning"
	case EventFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Fatal error classifications.
const (
	ClassDiscAbsent        = "disc_absent"
	ClassDeviceBusy        = "device_busy"
	ClassDeviceUnavailable = "device_unavailable"
	ClassUnreadableSector  = "unreadable_sector"
	ClassDeviceError       = "device_error"
)

// Event is one meaningful occurrence reported by the tool.
type Event struct {
	Kind EventKind
	// Percent is set for EventProgress, in [0,100].
	Percent float64
	// Track is set for EventTrackStarted.
	Track int
	// Message is set for EventWarning and EventFatal.
	Message string
	// Class is set for EventFatal.
	Class string
}

// FatalError carries a fatal line reported by the tool.
type FatalError struct {
	Class   string
	Message string
}

func (e *FatalError) Error() string {
	return "cdrdao: " + e.Message
}

// Hint returns an operator-facing next step for the failure class.
func (e *FatalError) Hint() string {
	switch e.Class {
	case ClassDiscAbsent:
		return "insert a disc and close the tray"
	case ClassDeviceBusy:
		return "close other programs using the drive"
	case ClassDeviceUnavailable:
		return "check the device path and permissions"
	case ClassUnreadableSector:
		return "clean the disc or retry with error correction enabled"
	default:
		return "check the cdrdao output in the log"
	}
}
