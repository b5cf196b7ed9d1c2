// Package ripping orchestrates disc imports: it validates a rip request,
// claims the destination, drives cdrdao through the process runner, turns its
// output into progress, warning and fatal events, and hands the raw image to
// the bundle assembler once the reader has exited cleanly.
//
// Each import is a Session with its own worker goroutine. Callers observe it
// through Subscribe callbacks or Session.Wait and stop it with RequestCancel
// or by cancelling the context passed to BeginImport. Whatever the outcome,
// the worker waits for cdrdao to exit before assembling or discarding output,
// and a bundle only ever appears at the destination on success.
package ripping
