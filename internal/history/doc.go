// Package history keeps a SQLite journal of finished imports.
//
// Every terminal outcome (success, failure or cancellation) becomes one row
// keyed by session ID. The Recorder fills the journal from the events bus so
// the import pipeline never blocks on the database.
package history
