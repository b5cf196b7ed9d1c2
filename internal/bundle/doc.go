// Package bundle assembles and inspects disc image bundles.
//
// A bundle is a directory holding one raw sector data file and one cue sheet
// that references it by a relative name. Bundles are staged next to their
// destination and published with a single rename, so a bundle directory is
// either absent or complete.
package bundle
