package persist

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Font sizes.
const (
	FontSmall  = "small"
	FontMedium = "medium"
	FontLarge  = "large"
)

// Color-blind modes.
const (
	ColorBlindNone         = "none"
	ColorBlindProtanopia   = "protanopia"
	ColorBlindDeuteranopia = "deuteranopia"
	ColorBlindTritanopia   = "tritanopia"
)

var (
	fontSizes       = []string{FontSmall, FontMedium, FontLarge}
	colorBlindModes = []string{ColorBlindNone, ColorBlindProtanopia, ColorBlindDeuteranopia, ColorBlindTritanopia}
)

// Settings are the learner's preferences, stored apart from game snapshots.
type Settings struct {
	HighContrast    bool   `json:"high_contrast" yaml:"high_contrast"`
	ReducedMotion   bool   `json:"reduced_motion" yaml:"reduced_motion"`
	FontSize        string `json:"font_size" yaml:"font_size"`
	ColorBlindMode  string `json:"color_blind_mode" yaml:"color_blind_mode"`
	AudioEnabled    bool   `json:"audio_enabled" yaml:"audio_enabled"`
	AutosaveEnabled bool   `json:"autosave_enabled" yaml:"autosave_enabled"`
}

// DefaultSettings returns the settings used when none are stored.
func DefaultSettings() Settings {
	return Settings{
		FontSize:        FontMedium,
		ColorBlindMode:  ColorBlindNone,
		AudioEnabled:    true,
		AutosaveEnabled: true,
	}
}

// Normalize replaces unknown enum values with their defaults.
func (s *Settings) Normalize() {
	d := DefaultSettings()
	if !slices.Contains(fontSizes, s.FontSize) {
		s.FontSize = d.FontSize
	}
	if !slices.Contains(colorBlindModes, s.ColorBlindMode) {
		s.ColorBlindMode = d.ColorBlindMode
	}
}

// Set assigns one field by its JSON name from a string value.
func (s *Settings) Set(key, value string) error {
	parseBool := func() (bool, error) {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("setting %s: %q is not a boolean", key, value)
		}
		return b, nil
	}

	var err error
	switch key {
	case "high_contrast":
		s.HighContrast, err = parseBool()
	case "reduced_motion":
		s.ReducedMotion, err = parseBool()
	case "audio_enabled":
		s.AudioEnabled, err = parseBool()
	case "autosave_enabled":
		s.AutosaveEnabled, err = parseBool()
	case "font_size":
		if !slices.Contains(fontSizes, value) {
			return fmt.Errorf("setting font_size: want one of %s", strings.Join(fontSizes, ", "))
		}
		s.FontSize = value
	case "color_blind_mode":
		if !slices.Contains(colorBlindModes, value) {
			return fmt.Errorf("setting color_blind_mode: want one of %s", strings.Join(colorBlindModes, ", "))
		}
		s.ColorBlindMode = value
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return err
}
