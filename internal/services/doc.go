// Package services defines shared utilities consumed by the import pipeline
// and its external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs and pipeline stage names for
//     logging.
//   - Structured error markers plus the Wrap helper so every failure carries
//     a classification callers can test with errors.Is.
//
// Subpackages wrap individual external tools (cdrdao).
package services
