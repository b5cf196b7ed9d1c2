// Package main hosts the cdmedia CLI.
//
// The Cobra command tree reads discs into .cdmedia bundles, inspects existing
// bundles, shows the import history, reports drive and dependency status, and
// scaffolds configuration. Import logic lives in internal/ripping; commands
// here only wire configuration, logging, events, metrics and history together
// and render results for the terminal.
package main
