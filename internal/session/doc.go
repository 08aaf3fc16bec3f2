// Package session ties a game engine to its undo history and event log.
//
// A Session is what front ends drive: they hand it engine.Action values,
// including the session-level undo and redo actions, and read state back
// from the engine.
package session
