package blueprint

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// TriggerValue is either a number (percentage or seconds) or a list of zone ids.
// The zero value means "no value".
type TriggerValue struct {
	Number *float64
	Zones  []string
}

// NumberValue builds a numeric trigger value.
func NumberValue(n float64) TriggerValue {
	return TriggerValue{Number: &n}
}

// ZonesValue builds a zone-list trigger value.
func ZonesValue(zones ...string) TriggerValue {
	return TriggerValue{Zones: zones}
}

// Float returns the numeric value, or (0, false) when the value is not a number.
func (v TriggerValue) Float() (float64, bool) {
	if v.Number == nil {
		return 0, false
	}
	return *v.Number, true
}

// IsZero reports whether no value was set.
func (v TriggerValue) IsZero() bool {
	return v.Number == nil && v.Zones == nil
}

// MarshalJSON encodes the value as a number, an array or null.
func (v TriggerValue) MarshalJSON() ([]byte, error) {
	switch {
	case v.Number != nil:
		return json.Marshal(*v.Number)
	case v.Zones != nil:
		return json.Marshal(v.Zones)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a number, an array of strings or null.
func (v *TriggerValue) UnmarshalJSON(data []byte) error {
	*v = TriggerValue{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '[' {
		var zones []string
		if err := json.Unmarshal(data, &zones); err != nil {
			return fmt.Errorf("trigger value: %w", err)
		}
		v.Zones = zones
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("trigger value must be a number or a list of zone ids: %w", err)
	}
	v.Number = &n
	return nil
}

// MarshalYAML encodes the value as a number, a sequence or null.
func (v TriggerValue) MarshalYAML() (interface{}, error) {
	switch {
	case v.Number != nil:
		return *v.Number, nil
	case v.Zones != nil:
		return v.Zones, nil
	default:
		return nil, nil
	}
}

// UnmarshalYAML accepts a scalar number or a sequence of zone ids.
func (v *TriggerValue) UnmarshalYAML(node *yaml.Node) error {
	*v = TriggerValue{}
	switch node.Kind {
	case yaml.SequenceNode:
		var zones []string
		if err := node.Decode(&zones); err != nil {
			return fmt.Errorf("trigger value: %w", err)
		}
		v.Zones = zones
		return nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil
		}
		var n float64
		if err := node.Decode(&n); err != nil {
			return fmt.Errorf("trigger value must be a number or a list of zone ids: %w", err)
		}
		v.Number = &n
		return nil
	default:
		return fmt.Errorf("trigger value: unsupported yaml node at line %d", node.Line)
	}
}
