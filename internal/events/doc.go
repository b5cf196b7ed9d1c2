// Package events fans import lifecycle notifications out to interested
// components (history journal, CLI output) over an in-process bus.
package events
