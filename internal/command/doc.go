// Package command implements reversible game commands and a bounded
// undo/redo history.
//
// Commands are built with a Facade over the game and call only its entry
// points. They capture the minimum needed to reverse themselves: a place
// command knows its label and zone, a remove command remembers the zone the
// label came off.
package command
