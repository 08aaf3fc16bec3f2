// Package mechanic is the single polymorphism point over interaction modes.
//
// The Registry maps each blueprint.MechanicKind to an Entry that knows how to
// initialize the mechanic's progress slot, how far along that progress is,
// whether the mechanic is finished, how many scorable items it has, and which
// mechanic-specific transition triggers it answers. The engine never switches
// on mechanic kind outside this package.
//
// The package also holds the pure scoring and correctness functions. None of
// them clamp or mutate: the engine owns state and clamps cumulative score.
package mechanic
