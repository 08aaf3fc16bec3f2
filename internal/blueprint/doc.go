// Package blueprint defines the declarative game configuration consumed by the
// engine and loads it from JSON, YAML or CUE files.
//
// A Blueprint is immutable for the lifetime of a session. It carries the ordered
// zone list, the labels and distractors, the mechanics in play order, the mode
// transitions between them, the temporal constraints governing zone visibility,
// and one configuration section per mechanic.
//
// # Identity Normalization
//
// Identifiers and display text are NFC-normalized on load so that visually
// identical ids authored on different platforms compare equal.
package blueprint
