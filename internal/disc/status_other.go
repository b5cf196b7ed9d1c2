//go:build !linux

package disc

import (
	"errors"
	"fmt"
	"strings"
)

var errUnsupported = errors.New("drive status is only available on linux")

// CheckDriveStatus is not supported on this platform.
func CheckDriveStatus(devicePath string) (DriveStatus, error) {
	if strings.TrimSpace(devicePath) == "" {
		return DriveStatusNoInfo, fmt.Errorf("empty device path")
	}
	return DriveStatusNoInfo, errUnsupported
}
