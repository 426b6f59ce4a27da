// Package main hosts the imgdupes CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration and logging once, then
// hands work to the internal packages: scan runs a duplicate search and
// renders the groups, hash prints the fingerprints of individual files,
// history lists recorded runs, and config scaffolds or prints settings.
// Keep this package thin; new behavior belongs in internal/ first.
package main
