// Package cdrdao drives the cdrdao disc reader.
//
// It builds read-cd invocations, runs the tool as a cancellable subprocess
// with merged stdout/stderr, classifies the tool's free-form output into
// progress, track, warning, and fatal events, and parses the TOC files cdrdao
// writes next to the raw sector data.
package cdrdao
