package mechanic

import "github.com/roach88/diagramlab/internal/blueprint"

func testBlueprint() *blueprint.Blueprint {
	return &blueprint.Blueprint{
		ID: "bp",
		Zones: []blueprint.Zone{
			{ID: "heart", Label: "Heart"},
			{ID: "atrium", ParentZoneID: "heart"},
			{ID: "ventricle", ParentZoneID: "heart"},
		},
		Labels: []blueprint.Label{
			{ID: "l-heart", Text: "Heart", CorrectZoneID: "heart"},
			{ID: "l-atrium", Text: "Atrium", CorrectZoneID: "atrium"},
		},
		DistractorLabels: []blueprint.DistractorLabel{
			{ID: "d-lung", Text: "Lung", Explanation: "Not in the heart"},
		},
		IdentificationPrompts: []blueprint.IdentificationPrompt{
			{ZoneID: "atrium", Prompt: "Find the atrium", Order: 2},
			{ZoneID: "heart", Prompt: "Find the heart", Order: 1},
		},
		Paths: []blueprint.TracePath{
			{ID: "flow", Waypoints: []blueprint.Waypoint{{ZoneID: "ventricle", Order: 2}, {ZoneID: "atrium", Order: 1}}},
		},
		SequenceConfig: &blueprint.SequenceConfig{
			Items:        []blueprint.SequenceItem{{ID: "s1"}, {ID: "s2"}, {ID: "s3"}},
			CorrectOrder: []string{"s1", "s2", "s3"},
		},
		SortingConfig: &blueprint.SortingConfig{
			Items:      []blueprint.SortingItem{{ID: "i1", CorrectCategoryID: "c1"}, {ID: "i2", CorrectCategoryID: "c2"}},
			Categories: []blueprint.SortingCategory{{ID: "c1"}, {ID: "c2"}},
		},
		MemoryMatchConfig: &blueprint.MemoryMatchConfig{
			Pairs: []blueprint.MemoryPair{{ID: "p1"}, {ID: "p2"}},
		},
		BranchingConfig: &blueprint.BranchingConfig{
			StartNodeID: "n1",
			Nodes: []blueprint.DecisionNode{
				{ID: "n1", Options: []blueprint.DecisionOption{{ID: "o1", NextNodeID: "end", IsCorrect: true}}},
				{ID: "end", IsEndNode: true},
			},
		},
		CompareConfig: &blueprint.CompareConfig{
			ExpectedCategories: map[string]string{"heart": "similar", "atrium": "different"},
		},
		DescriptionMatchingConfig: &blueprint.DescriptionMatchingConfig{
			Descriptions: map[string]string{"l-atrium": "Receives blood", "heart": "Pumps blood"},
		},
	}
}
