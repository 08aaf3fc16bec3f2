package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindScenarios(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios", "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("testdata", "scenarios", "cell_undo.yaml"),
		filepath.Join("testdata", "scenarios", "heart_rejections.yaml"),
		filepath.Join("testdata", "scenarios", "heart_transition.yaml"),
	}, files)

	files, err = FindScenarios("testdata/scenarios", "heart_*")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = FindScenarios("testdata/scenarios", "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestRunSuite_Fixtures(t *testing.T) {
	res, err := RunSuite("testdata/scenarios", SuiteOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 3, res.Passed, "reports: %+v", res.Scenarios)
	assert.Zero(t, res.Failed)
	for _, rep := range res.Scenarios {
		assert.Equal(t, "none", rep.Golden, rep.File)
	}
}

// copyFixture copies a scenario and the blueprints it needs into a temp
// tree with the same layout as testdata.
func copyFixture(t *testing.T, scenario string) string {
	t.Helper()
	root := t.TempDir()
	for _, rel := range []string{
		filepath.Join("scenarios", scenario),
		filepath.Join("blueprints", "cell.yaml"),
		filepath.Join("blueprints", "heart.yaml"),
	} {
		data, err := os.ReadFile(filepath.Join("testdata", rel))
		require.NoError(t, err)
		dst := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
		require.NoError(t, os.WriteFile(dst, data, 0o644))
	}
	return filepath.Join(root, "scenarios")
}

func TestRunSuite_UpdateThenCompare(t *testing.T) {
	dir := copyFixture(t, "cell_undo.yaml")

	res, err := RunSuite(dir, SuiteOptions{Update: true})
	require.NoError(t, err)
	require.Len(t, res.Scenarios, 1)
	assert.Equal(t, "updated", res.Scenarios[0].Golden)

	written, err := os.ReadFile(filepath.Join(dir, "golden", "cell_undo.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join("testdata", "golden", "cell_undo.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))

	res, err = RunSuite(dir, SuiteOptions{})
	require.NoError(t, err)
	assert.Equal(t, "match", res.Scenarios[0].Golden)
	assert.Equal(t, 1, res.Passed)

	// golden files are not scenarios
	files, err := FindScenarios(dir, "")
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestRunSuite_GoldenMismatch(t *testing.T) {
	dir := copyFixture(t, "cell_undo.yaml")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "cell_undo.golden"), []byte("{}\n"), 0o644))

	res, err := RunSuite(dir, SuiteOptions{})
	require.NoError(t, err)
	require.Len(t, res.Scenarios, 1)
	assert.False(t, res.Scenarios[0].Pass)
	assert.Contains(t, res.Scenarios[0].Errors, "trace does not match golden file")
	assert.Equal(t, 1, res.Failed)
}

func TestRunFile_BadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: [\n"), 0o644))

	rep := RunFile(path, SuiteOptions{})
	assert.False(t, rep.Pass)
	assert.Equal(t, "broken.yaml", rep.Name)
	require.Len(t, rep.Errors, 1)
	assert.Contains(t, rep.Errors[0], "failed to load scenario")
}
