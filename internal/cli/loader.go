package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/diagramlab/internal/blueprint"
	"github.com/roach88/diagramlab/internal/engine"
)

// Script is a recorded run of learner actions, played by `play` and
// `resume --script`.
type Script struct {
	// GameID keys the saved game. Defaults to the blueprint id.
	GameID string `yaml:"game_id,omitempty"`
	Steps  []Step `yaml:"steps"`
}

// Step is one scripted action. A step may instead wait for a pending mode
// transition or move a sequence to its next scene.
type Step struct {
	engine.Action `yaml:",inline"`

	Wait         time.Duration `yaml:"wait,omitempty"`
	AdvanceScene bool          `yaml:"advance_scene,omitempty"`
}

// LoadScript reads a YAML action script. Unknown fields are rejected.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}
	for i, st := range s.Steps {
		if st.Type == "" && st.Wait == 0 && !st.AdvanceScene {
			return nil, fmt.Errorf("script %s: step %d has no type, wait or advance_scene", path, i+1)
		}
	}
	return &s, nil
}

// loadBlueprint maps loader failures to exit codes: a missing file is a
// command error, a malformed one too, but with a different error code.
func loadBlueprint(f *OutputFormatter, path string) (*blueprint.Blueprint, error) {
	bp, err := blueprint.Load(path)
	if err != nil {
		return nil, loadFailure(f, "blueprint", path, err)
	}
	return bp, nil
}

func loadSequence(f *OutputFormatter, path string) (*blueprint.Sequence, error) {
	seq, err := blueprint.LoadSequence(path)
	if err != nil {
		return nil, loadFailure(f, "sequence", path, err)
	}
	return seq, nil
}

func loadScript(f *OutputFormatter, path string) (*Script, error) {
	s, err := LoadScript(path)
	if err != nil {
		return nil, loadFailure(f, "script", path, err)
	}
	return s, nil
}

func loadFailure(f *OutputFormatter, what, path string, err error) error {
	code := ErrCodeLoadFailed
	if errors.Is(err, fs.ErrNotExist) {
		code = ErrCodeNotFound
	}
	_ = f.Error(code, fmt.Sprintf("cannot load %s %s", what, path), err.Error())
	return WrapExitError(ExitCommandError, "failed to load "+what, err)
}
