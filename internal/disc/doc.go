// Package disc talks to the optical drive around an import: it reports tray
// and media state, waits for a disc to be inserted, reads the volume label,
// derives bundle names from it, and ejects the disc afterwards.
package disc
