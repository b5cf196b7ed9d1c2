package ripping

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// RipConfiguration describes one import. It is copied into the session at
// BeginImport and never changes afterwards.
type RipConfiguration struct {
	// SourceDevice is the optical drive to read, e.g. /dev/sr0.
	SourceDevice string
	// DestinationBundle is the bundle directory to publish. It must not exist.
	DestinationBundle string
	// UseErrorCorrection selects cdrdao's accurate audio paranoia mode,
	// roughly doubling read time in exchange for tolerance of marginal
	// audio sectors.
	UseErrorCorrection bool
}

func (rc RipConfiguration) normalized() (RipConfiguration, error) {
	rc.SourceDevice = strings.TrimSpace(rc.SourceDevice)
	dest := strings.TrimSpace(rc.DestinationBundle)
	if dest == "" {
		rc.DestinationBundle = ""
		return rc, nil
	}
	abs, err := filepath.Abs(dest)
	if err != nil {
		return rc, fmt.Errorf("resolve destination: %w", err)
	}
	rc.DestinationBundle = abs
	return rc, nil
}

func (rc RipConfiguration) validate() error {
	if rc.SourceDevice == "" {
		return errors.New("source device is required")
	}
	if rc.DestinationBundle == "" {
		return errors.New("destination bundle path is required")
	}
	if filepath.Dir(rc.DestinationBundle) == rc.DestinationBundle {
		return fmt.Errorf("destination %q is a filesystem root", rc.DestinationBundle)
	}
	parent := filepath.Dir(rc.DestinationBundle)
	info, err := os.Stat(parent)
	if err != nil {
		return fmt.Errorf("destination parent: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("destination parent %q is not a directory", parent)
	}
	if err := unix.Access(parent, unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("destination parent %q is not writable: %w", parent, err)
	}
	if _, err := os.Lstat(rc.DestinationBundle); err == nil {
		return fmt.Errorf("destination %q already exists", rc.DestinationBundle)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat destination: %w", err)
	}
	return nil
}
