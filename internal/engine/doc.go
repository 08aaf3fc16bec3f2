// Package engine implements the game state store that orchestrates a
// diagram-labeling session across interchangeable mechanics.
//
// ARCHITECTURE:
//
// Single-Writer State:
// One mutex guards every entry point. Each action is a short atomic
// transition:
//  1. Validate the action against the active mechanic
//  2. Judge it with the mechanic package (correctness + scoring)
//  3. Commit the new state and stamp a version from Clock.Next()
//  4. Recompute zone visibility
//  5. Ask the transition evaluator whether the mechanic hands over
//
// Subscribers are called after the mutex is released, with a copy of the
// committed state.
//
// Lifecycle:
//
//	INIT -> ACTIVE -> [PENDING_TRANSITION] -> ACTIVE -> ... -> COMPLETE
//
// A satisfied transition is held in PENDING_TRANSITION for the configured
// delay. The Scheduler holds a single handle with cancel-and-replace
// semantics; a generation counter drops a timer that fires after it was
// replaced.
//
// CRITICAL PATTERNS:
//
// Deterministic Order:
// Transitions are evaluated in declaration order, zones are revealed in
// declaration order, and mutex ties go to the first declared zone.
//
// Score Clamp:
// Every decrementing path goes through addScore, which never lets the
// total drop below zero and returns the change actually applied.
package engine
