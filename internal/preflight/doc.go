// Package preflight provides readiness checks for the files and directories
// imgdupes depends on.
//
// The CLI "imgdupes doctor" command runs RunAll and prints each result.
// Checks for features that are not in use are reported as optional so a
// missing embedding model does not fail an installation that only runs the
// exact or perceptual strategies.
package preflight
