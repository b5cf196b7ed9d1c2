package disc

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"
)

// listenMediaChanges subscribes to udev block events for optical media on
// device.
func listenMediaChanges(ctx context.Context, device string) (<-chan struct{}, func(), error) {
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return nil, nil, err
	}

	target := canonicalDevice(device)
	queue := make(chan netlink.UEvent, 8)
	errs := make(chan error, 8)
	monitorQuit := conn.Monitor(queue, errs, mediaMatcher())

	notify := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case uevent := <-queue:
				if canonicalDevice(eventDeviceName(uevent)) != target {
					continue
				}
				select {
				case notify <- struct{}{}:
				default:
				}
			case <-errs:
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			close(monitorQuit)
			_ = conn.Close()
		})
	}
	return notify, stop, nil
}

// mediaMatcher matches SUBSYSTEM=block, ID_CDROM=1, ACTION=change|add.
func mediaMatcher() netlink.Matcher {
	action := "change|add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "block",
			"ID_CDROM":  "1",
		},
	})
	return rules
}

// eventDeviceName gets the device path from a uevent.
func eventDeviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		return devname
	}

	// DEVPATH looks like /devices/pci.../block/sr0
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return parts[len(parts)-1]
}

// canonicalDevice resolves symlinks such as /dev/cdrom and qualifies bare
// kernel names with /dev.
func canonicalDevice(device string) string {
	device = strings.TrimSpace(device)
	if device == "" {
		return ""
	}
	if !strings.HasPrefix(device, "/") {
		device = "/dev/" + device
	}
	if resolved, err := filepath.EvalSymlinks(device); err == nil {
		return resolved
	}
	return filepath.Clean(device)
}
