// Package visibility computes which zones are visible, blocked or not yet
// reachable from temporal constraints and the set of completed zones.
//
// Compute is a pure function of its inputs. Zones are always traversed in
// declaration order, so mutex ties resolve the same way on every call: the
// first declared partner wins visibility and later partners are blocked.
package visibility

import (
	"slices"

	"github.com/roach88/diagramlab/internal/blueprint"
)

// Result partitions the zones. Zones in neither list are not yet reachable.
type Result struct {
	Visible []string `json:"visible"`
	Blocked []string `json:"blocked"`
}

// IsVisible reports whether id is in the visible set.
func (r Result) IsVisible(id string) bool {
	return slices.Contains(r.Visible, id)
}

// IsBlocked reports whether id is in the blocked set.
func (r Result) IsBlocked(id string) bool {
	return slices.Contains(r.Blocked, id)
}

// graph is the constraint structure derived from the blueprint.
type graph struct {
	mutex map[string][]string // zone -> partners, in constraint order
	after map[string][]string // zone -> zones that must complete first
}

func buildGraph(constraints []blueprint.TemporalConstraint) graph {
	g := graph{
		mutex: make(map[string][]string),
		after: make(map[string][]string),
	}
	for _, c := range constraints {
		if c.ZoneA == "" || c.ZoneB == "" || c.ZoneA == c.ZoneB {
			continue
		}
		switch c.Constraint {
		case blueprint.ConstraintMutex:
			g.mutex[c.ZoneA] = appendUnique(g.mutex[c.ZoneA], c.ZoneB)
			g.mutex[c.ZoneB] = appendUnique(g.mutex[c.ZoneB], c.ZoneA)
		case blueprint.ConstraintAfter:
			g.after[c.ZoneB] = appendUnique(g.after[c.ZoneB], c.ZoneA)
		}
	}
	return g
}

// Compute partitions zones given the completed set.
//
// A zone is eligible when it is a root (no parent, or hierarchy level 1) or
// its parent is completed and visible, and every "after" predecessor is
// completed. An eligible completed zone is always visible. An eligible
// uncompleted zone is blocked while any mutex partner is visible and
// uncompleted, and visible otherwise.
func Compute(zones []blueprint.Zone, constraints []blueprint.TemporalConstraint, completed []string) Result {
	g := buildGraph(constraints)

	done := make(map[string]bool, len(completed))
	for _, id := range completed {
		done[id] = true
	}
	parent := make(map[string]string, len(zones))
	roots := make(map[string]bool, len(zones))
	for _, z := range zones {
		parent[z.ID] = z.ParentZoneID
		roots[z.ID] = z.IsRoot()
	}

	visible := make(map[string]bool, len(zones))
	blocked := make(map[string]bool)

	eligible := func(id string) bool {
		if !roots[id] {
			p := parent[id]
			if !done[p] || !visible[p] {
				return false
			}
		}
		for _, pred := range g.after[id] {
			if !done[pred] {
				return false
			}
		}
		return true
	}
	activePartner := func(id string) bool {
		for _, other := range g.mutex[id] {
			if visible[other] && !done[other] {
				return true
			}
		}
		return false
	}

	// Completed zones never contend for mutex slots, so settle them first;
	// otherwise an uncompleted zone declared earlier could be revealed
	// against a partner that is about to be shown as completed.
	for changed := true; changed; {
		changed = false
		for _, z := range zones {
			if visible[z.ID] || !done[z.ID] || !eligible(z.ID) {
				continue
			}
			visible[z.ID] = true
			changed = true
		}
	}

	// Reveal uncompleted zones. Revealing a zone can only make more zones
	// blocked, never unblock one, so a zone blocked here stays blocked.
	for changed := true; changed; {
		changed = false
		for _, z := range zones {
			id := z.ID
			if visible[id] || blocked[id] || done[id] || !eligible(id) {
				continue
			}
			if activePartner(id) {
				blocked[id] = true
				continue
			}
			visible[id] = true
			changed = true
		}
	}

	var res Result
	res.Visible = make([]string, 0, len(visible))
	res.Blocked = make([]string, 0, len(blocked))
	for _, z := range zones {
		if visible[z.ID] {
			res.Visible = append(res.Visible, z.ID)
		} else if blocked[z.ID] {
			res.Blocked = append(res.Blocked, z.ID)
		}
	}
	return res
}

// Children returns the direct children of parentID in declaration order.
func Children(zones []blueprint.Zone, parentID string) []string {
	var out []string
	for _, z := range zones {
		if z.ParentZoneID == parentID && parentID != "" {
			out = append(out, z.ID)
		}
	}
	return out
}

func appendUnique(list []string, id string) []string {
	if slices.Contains(list, id) {
		return list
	}
	return append(list, id)
}
