package disc

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"cdmedia/internal/logging"
)

type scriptedDrive struct {
	mu       sync.Mutex
	statuses []DriveStatus
	calls    int
}

func (d *scriptedDrive) status(string) (DriveStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := d.calls
	if idx >= len(d.statuses) {
		idx = len(d.statuses) - 1
	}
	d.calls++
	return d.statuses[idx], nil
}

func newTestWaiter(drive *scriptedDrive, listen mediaListener, poll time.Duration) *Waiter {
	return &Waiter{
		logger:       logging.NewNop(),
		status:       drive.status,
		listen:       listen,
		pollInterval: poll,
	}
}

func TestWaitReturnsImmediatelyWhenDiscPresent(t *testing.T) {
	drive := &scriptedDrive{statuses: []DriveStatus{DriveStatusDiscOK}}
	w := newTestWaiter(drive, nil, time.Hour)

	status, err := w.Wait(context.Background(), "/dev/sr0", time.Minute)
	if err != nil || status != DriveStatusDiscOK {
		t.Fatalf("Wait = %s, %v", status, err)
	}
}

func TestWaitWithoutTimeoutChecksOnce(t *testing.T) {
	drive := &scriptedDrive{statuses: []DriveStatus{DriveStatusTrayOpen, DriveStatusDiscOK}}
	w := newTestWaiter(drive, nil, time.Millisecond)

	status, err := w.Wait(context.Background(), "/dev/sr0", 0)
	if err == nil {
		t.Fatal("expected error for open tray")
	}
	if status != DriveStatusTrayOpen || !strings.Contains(err.Error(), "close the drive tray") {
		t.Fatalf("unexpected result %s, %v", status, err)
	}
}

func TestWaitPollsUntilReady(t *testing.T) {
	drive := &scriptedDrive{statuses: []DriveStatus{DriveStatusNoDisc, DriveStatusNotReady, DriveStatusDiscOK}}
	listen := func(context.Context, string) (<-chan struct{}, func(), error) {
		return nil, nil, errors.New("netlink unavailable")
	}
	w := newTestWaiter(drive, listen, 5*time.Millisecond)

	status, err := w.Wait(context.Background(), "/dev/sr0", 5*time.Second)
	if err != nil || status != DriveStatusDiscOK {
		t.Fatalf("Wait = %s, %v", status, err)
	}
}

func TestWaitWakesOnMediaEvent(t *testing.T) {
	drive := &scriptedDrive{statuses: []DriveStatus{DriveStatusNoDisc, DriveStatusDiscOK}}
	changes := make(chan struct{}, 1)
	stopped := make(chan struct{})
	listen := func(context.Context, string) (<-chan struct{}, func(), error) {
		changes <- struct{}{}
		return changes, func() { close(stopped) }, nil
	}
	w := newTestWaiter(drive, listen, time.Hour)

	status, err := w.Wait(context.Background(), "/dev/sr0", 5*time.Second)
	if err != nil || status != DriveStatusDiscOK {
		t.Fatalf("Wait = %s, %v", status, err)
	}
	select {
	case <-stopped:
	default:
		t.Fatal("listener was not stopped")
	}
}

func TestWaitTimesOut(t *testing.T) {
	drive := &scriptedDrive{statuses: []DriveStatus{DriveStatusNoDisc}}
	w := newTestWaiter(drive, nil, 5*time.Millisecond)

	status, err := w.Wait(context.Background(), "/dev/sr0", 30*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if status != DriveStatusNoDisc || !strings.Contains(err.Error(), "insert a disc") {
		t.Fatalf("unexpected result %s, %v", status, err)
	}
}

func TestWaitHonoursCancellation(t *testing.T) {
	drive := &scriptedDrive{statuses: []DriveStatus{DriveStatusNoDisc}}
	w := newTestWaiter(drive, nil, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)
	if _, err := w.Wait(ctx, "/dev/sr0", time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCanonicalDevice(t *testing.T) {
	if got := canonicalDevice("sr9-missing"); got != "/dev/sr9-missing" {
		t.Fatalf("canonicalDevice = %q", got)
	}
	if got := canonicalDevice(""); got != "" {
		t.Fatalf("canonicalDevice(empty) = %q", got)
	}
}
