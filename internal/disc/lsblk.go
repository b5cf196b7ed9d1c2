package disc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrNoLabel reports a disc without a filesystem label, such as an audio CD.
var ErrNoLabel = errors.New("no disc label found")

// ReadLabel returns the ISO 9660 volume label of the disc in device.
func ReadLabel(ctx context.Context, device string, timeout time.Duration) (string, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		return "", fmt.Errorf("no device specified")
	}

	lsblkCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		lsblkCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	output, err := exec.CommandContext(lsblkCtx, "lsblk", "-P", "-o", "LABEL,FSTYPE", device).Output()
	if err != nil {
		return "", fmt.Errorf("run lsblk: %w", err)
	}

	label, fstype := ParseLSBLKLabelFSType(string(output))
	if strings.TrimSpace(label) == "" || strings.TrimSpace(fstype) == "" {
		return "", ErrNoLabel
	}
	return label, nil
}

// ParseLSBLKLabelFSType parses lsblk -P output and returns the first LABEL/FSTYPE pair.
func ParseLSBLKLabelFSType(output string) (string, string) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		data := parseKeyValuePairs(line)
		if len(data) == 0 {
			continue
		}
		return data["LABEL"], data["FSTYPE"]
	}
	return "", ""
}

// parseKeyValuePairs splits KEY="value" pairs, keeping spaces inside quotes.
func parseKeyValuePairs(line string) map[string]string {
	result := make(map[string]string)
	for line != "" {
		line = strings.TrimLeft(line, " \t")
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			break
		}
		key := strings.TrimSpace(line[:eq])
		rest := line[eq+1:]

		var value string
		if strings.HasPrefix(rest, "\"") {
			end := strings.IndexByte(rest[1:], '"')
			if end < 0 {
				value, rest = rest[1:], ""
			} else {
				value, rest = rest[1:end+1], rest[end+2:]
			}
		} else {
			end := strings.IndexAny(rest, " \t")
			if end < 0 {
				value, rest = rest, ""
			} else {
				value, rest = rest[:end], rest[end:]
			}
		}
		result[key] = value
		line = rest
	}
	return result
}
