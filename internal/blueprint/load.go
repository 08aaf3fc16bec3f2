package blueprint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Format identifies a blueprint encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// ErrUnsupportedFormat is returned for files whose extension is not recognized.
var ErrUnsupportedFormat = errors.New("unsupported blueprint format")

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Load reads a blueprint file, choosing the decoder from its extension.
func Load(path string) (*Blueprint, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blueprint: %w", err)
	}
	var bp Blueprint
	if err := decode(data, format, path, &bp); err != nil {
		return nil, fmt.Errorf("decode blueprint %s: %w", path, err)
	}
	Normalize(&bp)
	return &bp, nil
}

// Parse decodes a blueprint from memory.
func Parse(data []byte, format Format) (*Blueprint, error) {
	var bp Blueprint
	if err := decode(data, format, "blueprint."+string(format), &bp); err != nil {
		return nil, fmt.Errorf("decode blueprint: %w", err)
	}
	Normalize(&bp)
	return &bp, nil
}

// LoadSequence reads a multi-scene sequence file.
func LoadSequence(path string) (*Sequence, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sequence: %w", err)
	}
	var seq Sequence
	if err := decode(data, format, path, &seq); err != nil {
		return nil, fmt.Errorf("decode sequence %s: %w", path, err)
	}
	if len(seq.Scenes) == 0 {
		return nil, fmt.Errorf("sequence %s has no scenes", path)
	}
	for i := range seq.Scenes {
		Normalize(&seq.Scenes[i])
	}
	return &seq, nil
}

func decode(data []byte, format Format, filename string, target any) error {
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(target)
	case FormatYAML:
		// Reject unknown fields so typos surface at load time.
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		return dec.Decode(target)
	case FormatCUE:
		return decodeCUE(data, filename, target)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// decodeCUE evaluates a CUE document and decodes it through its JSON form.
// A top-level "blueprint" field is used when present, so CUE files can keep
// definitions next to the concrete value.
func decodeCUE(data []byte, filename string, target any) error {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return fmt.Errorf("compile cue: %w", err)
	}
	if inner := v.LookupPath(cue.ParsePath("blueprint")); inner.Exists() {
		v = inner
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validate cue: %w", err)
	}
	raw, err := v.MarshalJSON()
	if err != nil {
		return fmt.Errorf("export cue: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}
