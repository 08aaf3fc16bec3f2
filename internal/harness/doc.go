// Package harness runs conformance scenarios against blueprints.
//
// A scenario plays a scripted game on a real session (engine, command
// history and event log) with a manual clock and fixed ids, then checks the
// step results, the event trace, the final state and the saved game.
//
// # Scenario Format
//
//	name: heart_undo
//	description: "Undo takes back a placement and its points"
//	blueprint: ../blueprints/heart.yaml
//	transition_delay: 1s
//	setup:
//	  - {type: place, label_id: l-heart, zone_id: heart}
//	flow:
//	  - {type: place, label_id: l-atrium, zone_id: atrium, expect: {correct: true, score_delta: 10}}
//	  - {type: undo, expect: {score_delta: -10}}
//	  - {type: place, label_id: l-atrium, zone_id: heart, expect: {error: ZONE_OCCUPIED}}
//	  - {advance: 1s}
//	assertions:
//	  - type: event_count
//	    kind: undo
//	    count: 1
//	  - type: final_state
//	    expect: {score: 10, multi_mode.current_mode: drag_drop}
//	  - type: stored_row
//	    table: game_snapshots
//	    where: {game_id: heart_undo}
//	    expect: {session_id: scenario-1}
//
// Steps are learner actions (the same fields as engine.Action), an advance
// of the manual clock that fires due transition timers, or advance_scene.
// Setup steps must succeed; flow steps may be rejected and the rejection
// can be expected with expect.error, which matches a runtime error code or
// a substring of the message.
//
// # Assertion Types
//
//   - event_contains: an event of kind whose payload contains the given fields
//   - event_order: kinds appear in this order, not necessarily adjacent
//   - event_count: exactly count events of kind
//   - final_state: dotted paths into the final state JSON
//   - stored_row: one row of a store table after the game was saved
//
// # Golden Traces
//
// Snapshot renders step outcomes and the trace as indented JSON without
// timestamps. RunWithGolden compares it with testdata/golden in go tests;
// RunSuite compares each scenario file with golden/<file>.golden next to it
// when that file exists.
package harness
