// Package persist saves and restores game snapshots and learner settings.
//
// Persistence is best-effort. A failed save is logged and reported as "save
// not confirmed"; a failed load reads as "no saved game" and settings fall
// back to their defaults. Autosave runs on its own goroutine and only ever
// reads a copy of the game state.
package persist
