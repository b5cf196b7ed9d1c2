package disc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cdmedia/internal/logging"
)

const defaultPollInterval = 2 * time.Second

// mediaListener delivers a signal whenever the kernel reports a media change
// on device. The returned stop function releases the listener.
type mediaListener func(ctx context.Context, device string) (<-chan struct{}, func(), error)

// Waiter blocks until a drive reports a readable disc.
type Waiter struct {
	logger       *slog.Logger
	status       func(string) (DriveStatus, error)
	listen       mediaListener
	pollInterval time.Duration
}

// NewWaiter returns a Waiter that listens for udev media events and polls
// the drive status as a fallback.
func NewWaiter(logger *slog.Logger) *Waiter {
	return &Waiter{
		logger:       logging.NewComponentLogger(logger, "disc-wait"),
		status:       CheckDriveStatus,
		listen:       listenMediaChanges,
		pollInterval: defaultPollInterval,
	}
}

// WaitForMedia waits up to timeout for device to report DriveStatusDiscOK.
// A non-positive timeout checks the drive once.
func WaitForMedia(ctx context.Context, device string, timeout time.Duration, logger *slog.Logger) (DriveStatus, error) {
	return NewWaiter(logger).Wait(ctx, device, timeout)
}

// Wait waits up to timeout for device to report DriveStatusDiscOK.
func (w *Waiter) Wait(ctx context.Context, device string, timeout time.Duration) (DriveStatus, error) {
	status, err := w.status(device)
	if err != nil || status.HasMedia() || timeout <= 0 {
		if err == nil && !status.HasMedia() {
			err = fmt.Errorf("drive %s reports %s: %s", device, status, status.Hint())
		}
		return status, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var changes <-chan struct{}
	if w.listen != nil {
		ch, stop, listenErr := w.listen(waitCtx, device)
		if listenErr != nil {
			w.logger.Debug("udev listener unavailable; polling drive status",
				logging.Error(listenErr),
				logging.String(logging.FieldDevice, device),
			)
		} else {
			changes = ch
			defer stop()
		}
	}

	w.logger.Info("waiting for disc",
		logging.String(logging.FieldDevice, device),
		logging.String("status", status.String()),
		logging.Duration("timeout", timeout),
		logging.String(logging.FieldEventType, "disc_wait_started"),
	)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return status, ctx.Err()
			}
			return status, fmt.Errorf("no disc in %s after %s (last status: %s): %s", device, timeout, status, status.Hint())
		case <-changes:
		case <-ticker.C:
		}

		next, err := w.status(device)
		if err != nil {
			return next, err
		}
		if next != status {
			w.logger.Debug("drive status changed",
				logging.String(logging.FieldDevice, device),
				logging.String("from", status.String()),
				logging.String("to", next.String()),
			)
		}
		status = next
		if status.HasMedia() {
			w.logger.Info("disc ready",
				logging.String(logging.FieldDevice, device),
				logging.String(logging.FieldEventType, "disc_ready"),
			)
			return status, nil
		}
	}
}
