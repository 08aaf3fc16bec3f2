package blueprint

// Zone returns the zone with the given id.
func (b *Blueprint) Zone(id string) (Zone, bool) {
	for _, z := range b.Zones {
		if z.ID == id {
			return z, true
		}
	}
	return Zone{}, false
}

// HasZone reports whether id names a zone.
func (b *Blueprint) HasZone(id string) bool {
	_, ok := b.Zone(id)
	return ok
}

// Label returns the label with the given id.
func (b *Blueprint) Label(id string) (Label, bool) {
	for _, l := range b.Labels {
		if l.ID == id {
			return l, true
		}
	}
	return Label{}, false
}

// Distractor returns the distractor label with the given id.
func (b *Blueprint) Distractor(id string) (DistractorLabel, bool) {
	for _, d := range b.DistractorLabels {
		if d.ID == id {
			return d, true
		}
	}
	return DistractorLabel{}, false
}

// MechanicKinds returns the mechanics in play order. A blueprint without
// mechanics is a single drag-and-drop game.
func (b *Blueprint) MechanicKinds() []MechanicKind {
	if len(b.Mechanics) == 0 {
		return []MechanicKind{MechanicDragDrop}
	}
	kinds := make([]MechanicKind, 0, len(b.Mechanics))
	seen := make(map[MechanicKind]bool, len(b.Mechanics))
	for _, m := range b.Mechanics {
		if m.Type == "" || seen[m.Type] {
			continue
		}
		seen[m.Type] = true
		kinds = append(kinds, m.Type)
	}
	if len(kinds) == 0 {
		return []MechanicKind{MechanicDragDrop}
	}
	return kinds
}

// StartingMechanic returns the first mechanic of the play order.
func (b *Blueprint) StartingMechanic() MechanicKind {
	return b.MechanicKinds()[0]
}

// MechanicScoring returns the scoring config for kind, falling back to the
// blueprint-wide strategy. Base points default to 10.
func (b *Blueprint) MechanicScoring(kind MechanicKind) ScoringConfig {
	var cfg ScoringConfig
	for _, m := range b.Mechanics {
		if m.Type == kind && m.Scoring != nil {
			cfg = *m.Scoring
			break
		}
	}
	if cfg.BasePointsPerItem == 0 {
		cfg.BasePointsPerItem = b.Scoring.BasePointsPerZone
	}
	if cfg.BasePointsPerItem == 0 {
		cfg.BasePointsPerItem = DefaultBasePoints
	}
	return cfg
}

// DefaultBasePoints is used when neither the mechanic nor the blueprint sets
// a per-item value.
const DefaultBasePoints = 10

// TransitionsFrom returns the transitions leaving kind, in declaration order.
func (b *Blueprint) TransitionsFrom(kind MechanicKind) []ModeTransition {
	var out []ModeTransition
	for _, t := range b.ModeTransitions {
		if t.From == kind {
			out = append(out, t)
		}
	}
	return out
}

// HasMechanic reports whether kind is part of the play order.
func (b *Blueprint) HasMechanic(kind MechanicKind) bool {
	for _, k := range b.MechanicKinds() {
		if k == kind {
			return true
		}
	}
	return false
}
