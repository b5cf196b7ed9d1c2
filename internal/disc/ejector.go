package disc

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Ejector defines disc eject operations.
type Ejector interface {
	Eject(ctx context.Context, device string) error
}

type commandEjector struct {
	binary string
}

// NewEjector creates an ejector that shells out to the eject utility.
func NewEjector() Ejector {
	return commandEjector{binary: "eject"}
}

func (e commandEjector) Eject(ctx context.Context, device string) error {
	device = strings.TrimSpace(device)
	if device == "" {
		return fmt.Errorf("eject: no device specified")
	}
	output, err := exec.CommandContext(ctx, e.binary, device).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(output)); msg != "" {
			return fmt.Errorf("eject %s: %w: %s", device, err, msg)
		}
		return fmt.Errorf("eject %s: %w", device, err)
	}
	return nil
}
