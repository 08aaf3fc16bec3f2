package harness

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ScenarioReport is the verdict for one scenario file.
type ScenarioReport struct {
	File   string   `json:"file"`
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "updated" or "none"
	Errors []string `json:"errors,omitempty"`
}

// SuiteResult aggregates a directory of scenarios.
type SuiteResult struct {
	Scenarios []ScenarioReport `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// SuiteOptions controls RunSuite.
type SuiteOptions struct {
	// Filter is a glob matched against file names without extension.
	Filter string
	// Update rewrites golden files instead of comparing them.
	Update bool
}

// FindScenarios lists the .yaml and .yml files under dir, skipping golden
// directories.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "golden" && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(d.Name(), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// RunFile loads and runs one scenario file. Golden comparison only applies
// when the golden file exists, unless opts.Update is set.
func RunFile(path string, opts SuiteOptions) ScenarioReport {
	rep := ScenarioReport{File: path, Name: filepath.Base(path)}

	scenario, err := LoadScenario(path)
	if err != nil {
		rep.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return rep
	}
	rep.Name = scenario.Name

	result, err := Run(scenario)
	if err != nil {
		rep.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return rep
	}
	rep.Errors = result.Errors
	rep.Pass = result.Pass

	if opts.Update {
		if err := UpdateGolden(path, scenario, result); err != nil {
			rep.Pass = false
			rep.Errors = append(rep.Errors, fmt.Sprintf("failed to update golden file: %v", err))
			return rep
		}
		rep.Golden = "updated"
		return rep
	}

	match, err := CompareGolden(path, scenario, result)
	switch {
	case errors.Is(err, os.ErrNotExist):
		rep.Golden = "none"
	case err != nil:
		rep.Pass = false
		rep.Errors = append(rep.Errors, fmt.Sprintf("golden comparison failed: %v", err))
	case !match:
		rep.Pass = false
		rep.Errors = append(rep.Errors, "trace does not match golden file")
	default:
		rep.Golden = "match"
	}
	return rep
}

// RunSuite runs every scenario under dir.
func RunSuite(dir string, opts SuiteOptions) (SuiteResult, error) {
	files, err := FindScenarios(dir, opts.Filter)
	if err != nil {
		return SuiteResult{}, err
	}

	res := SuiteResult{Scenarios: make([]ScenarioReport, 0, len(files)), Total: len(files)}
	for _, f := range files {
		rep := RunFile(f, opts)
		if rep.Pass {
			res.Passed++
		} else {
			res.Failed++
		}
		res.Scenarios = append(res.Scenarios, rep)
	}
	return res, nil
}
