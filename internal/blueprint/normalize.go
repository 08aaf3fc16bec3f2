package blueprint

import "golang.org/x/text/unicode/norm"

// Normalize rewrites every identifier and display string of bp to NFC.
func Normalize(bp *Blueprint) {
	n := norm.NFC.String

	bp.ID = n(bp.ID)
	bp.Title = n(bp.Title)
	for i := range bp.Zones {
		z := &bp.Zones[i]
		z.ID, z.Label, z.ParentZoneID, z.Description = n(z.ID), n(z.Label), n(z.ParentZoneID), n(z.Description)
	}
	for i := range bp.Labels {
		l := &bp.Labels[i]
		l.ID, l.Text, l.CorrectZoneID = n(l.ID), n(l.Text), n(l.CorrectZoneID)
	}
	for i := range bp.DistractorLabels {
		d := &bp.DistractorLabels[i]
		d.ID, d.Text, d.Explanation = n(d.ID), n(d.Text), n(d.Explanation)
	}
	for i := range bp.ModeTransitions {
		t := &bp.ModeTransitions[i]
		for j := range t.TriggerValue.Zones {
			t.TriggerValue.Zones[j] = n(t.TriggerValue.Zones[j])
		}
	}
	for i := range bp.TemporalConstraints {
		c := &bp.TemporalConstraints[i]
		c.ZoneA, c.ZoneB = n(c.ZoneA), n(c.ZoneB)
	}
	for i := range bp.IdentificationPrompts {
		p := &bp.IdentificationPrompts[i]
		p.ZoneID, p.Prompt = n(p.ZoneID), n(p.Prompt)
	}
	for i := range bp.Paths {
		p := &bp.Paths[i]
		p.ID, p.Description = n(p.ID), n(p.Description)
		for j := range p.Waypoints {
			p.Waypoints[j].ZoneID = n(p.Waypoints[j].ZoneID)
		}
	}
	for i := range bp.ZoneGroups {
		g := &bp.ZoneGroups[i]
		g.ID, g.ParentZoneID = n(g.ID), n(g.ParentZoneID)
		g.ChildZoneIDs = normalizeAll(g.ChildZoneIDs)
	}
	if c := bp.SequenceConfig; c != nil {
		for i := range c.Items {
			c.Items[i].ID, c.Items[i].Text = n(c.Items[i].ID), n(c.Items[i].Text)
		}
		c.CorrectOrder = normalizeAll(c.CorrectOrder)
	}
	if c := bp.SortingConfig; c != nil {
		for i := range c.Items {
			it := &c.Items[i]
			it.ID, it.Text, it.CorrectCategoryID = n(it.ID), n(it.Text), n(it.CorrectCategoryID)
		}
		for i := range c.Categories {
			c.Categories[i].ID, c.Categories[i].Label = n(c.Categories[i].ID), n(c.Categories[i].Label)
		}
	}
	if c := bp.MemoryMatchConfig; c != nil {
		for i := range c.Pairs {
			p := &c.Pairs[i]
			p.ID, p.Front, p.Back = n(p.ID), n(p.Front), n(p.Back)
		}
	}
	if c := bp.BranchingConfig; c != nil {
		c.StartNodeID = n(c.StartNodeID)
		for i := range c.Nodes {
			node := &c.Nodes[i]
			node.ID, node.Question = n(node.ID), n(node.Question)
			for j := range node.Options {
				o := &node.Options[j]
				o.ID, o.Text, o.NextNodeID = n(o.ID), n(o.Text), n(o.NextNodeID)
			}
		}
	}
	if c := bp.CompareConfig; c != nil {
		c.ExpectedCategories = normalizeMap(c.ExpectedCategories)
	}
	if c := bp.DescriptionMatchingConfig; c != nil {
		c.Descriptions = normalizeMap(c.Descriptions)
	}
}

func normalizeAll(in []string) []string {
	for i := range in {
		in[i] = norm.NFC.String(in[i])
	}
	return in
}

func normalizeMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[norm.NFC.String(k)] = norm.NFC.String(v)
	}
	return out
}
