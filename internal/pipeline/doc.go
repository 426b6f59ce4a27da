// Package pipeline holds the error taxonomy and run-scoped context values
// shared by the duplicate detection packages.
//
// Errors are classified by wrapping them with one of the exported sentinel
// markers through Wrap; callers use errors.Is against the marker to decide
// how a run ended. Outcome folds that classification into the terminal state
// recorded by the CLI and the history store.
package pipeline
