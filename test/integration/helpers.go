package integration

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/cvbuilder/internal/build"
	"git.home.luguber.info/inful/cvbuilder/internal/config"
	"git.home.luguber.info/inful/cvbuilder/internal/testutil"
)

const (
	fixtureConfig = "../testdata/cv/cvbuilder.yaml"
	goldenLayout  = "../testdata/golden/default-layout.txt"
)

// loadFixtureConfig loads the fixture project configuration.
func loadFixtureConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Load(fixtureConfig)
	require.NoError(t, err, "failed to load fixture config")
	return cfg
}

// generate runs the fixture project into outputDir.
func generate(t *testing.T, outputDir string, check bool) *build.Result {
	t.Helper()

	svc := build.NewService(testutil.DiscardLogger())
	res, err := svc.Run(context.Background(), build.Request{
		Config:    loadFixtureConfig(t),
		OutputDir: outputDir,
		Check:     check,
	})
	require.NoError(t, err, "generation failed")
	return res
}

// readTree returns every file under root keyed by slash-separated relative path.
func readTree(t *testing.T, root string) map[string]string {
	t.Helper()

	files := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		// #nosec G304 -- test utility reading from test output directory
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err, "failed to walk output tree")
	return files
}

// verifyLayout compares the sorted list of generated paths with a golden file.
func verifyLayout(t *testing.T, files map[string]string, goldenPath string, updateGolden bool) {
	t.Helper()

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	actual := strings.Join(paths, "\n") + "\n"

	if updateGolden {
		err := os.WriteFile(goldenPath, []byte(actual), 0o600)
		require.NoError(t, err, "failed to write golden file")
		t.Logf("Updated golden file: %s", goldenPath)
		return
	}

	// #nosec G304 -- test utility reading golden file from testdata
	expected, err := os.ReadFile(goldenPath)
	require.NoError(t, err, "failed to read golden file: %s", goldenPath)
	require.Equal(t, string(expected), actual, "output layout mismatch")
}
