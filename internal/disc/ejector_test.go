package disc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeEjectScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eject")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestEjectPassesDevice(t *testing.T) {
	record := filepath.Join(t.TempDir(), "args")
	ej := commandEjector{binary: writeEjectScript(t, `echo "$@" > "`+record+`"`)}

	if err := ej.Eject(context.Background(), "/dev/sr0"); err != nil {
		t.Fatalf("Eject: %v", err)
	}
	data, err := os.ReadFile(record)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	if strings.TrimSpace(string(data)) != "/dev/sr0" {
		t.Fatalf("unexpected args %q", data)
	}
}

func TestEjectReportsToolOutput(t *testing.T) {
	ej := commandEjector{binary: writeEjectScript(t, `echo "unable to open /dev/sr0" >&2; exit 1`)}

	err := ej.Eject(context.Background(), "/dev/sr0")
	if err == nil || !strings.Contains(err.Error(), "unable to open") {
		t.Fatalf("expected tool output in error, got %v", err)
	}
}

func TestEjectRequiresDevice(t *testing.T) {
	if err := NewEjector().Eject(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty device")
	}
}
