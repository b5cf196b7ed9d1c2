package disc

import "fmt"

// DriveStatus represents the result of a CDROM_DRIVE_STATUS ioctl call.
type DriveStatus int

const (
	DriveStatusNoInfo   DriveStatus = 0
	DriveStatusNoDisc   DriveStatus = 1
	DriveStatusTrayOpen DriveStatus = 2
	DriveStatusNotReady DriveStatus = 3
	DriveStatusDiscOK   DriveStatus = 4
)

// String returns a human-readable label for the drive status.
func (s DriveStatus) String() string {
	switch s {
	case DriveStatusNoInfo:
		return "no_info"
	case DriveStatusNoDisc:
		return "no_disc"
	case DriveStatusTrayOpen:
		return "tray_open"
	case DriveStatusNotReady:
		return "not_ready"
	case DriveStatusDiscOK:
		return "disc_ok"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// HasMedia reports whether the drive holds a readable disc.
func (s DriveStatus) HasMedia() bool {
	return s == DriveStatusDiscOK
}

// Hint returns operator guidance for a status that blocks an import.
func (s DriveStatus) Hint() string {
	switch s {
	case DriveStatusNoDisc:
		return "insert a disc"
	case DriveStatusTrayOpen:
		return "close the drive tray"
	case DriveStatusNotReady:
		return "wait for the drive to spin up"
	case DriveStatusDiscOK:
		return ""
	default:
		return "check the drive with `cdmedia status`"
	}
}
