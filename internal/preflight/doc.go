// Package preflight provides readiness checks for the filesystem paths, the
// drive node, and the external tools cdmedia depends on.
//
// The import command runs RunAll before reading a disc so a misconfigured
// staging or state directory fails in seconds instead of after a full read.
// The status command shows every check individually.
package preflight
