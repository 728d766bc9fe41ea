package commands

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/cvbuilder/internal/catalog"
	"git.home.luguber.info/inful/cvbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/cvbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/cvbuilder/internal/output"
	"git.home.luguber.info/inful/cvbuilder/internal/testutil"
)

// newProject writes a configuration with a single identity job and returns
// the CLI pointing at it.
func newProject(t *testing.T) (*CLI, string) {
	t.Helper()
	root := t.TempDir()
	testutil.WriteFile(t, filepath.Join(root, "modules", "aboutme.tex"), "About me\n")
	testutil.WriteFile(t, filepath.Join(root, config.DefaultPath), `output:
  directory: out
jobs:
  - content_type: aboutme
    source: modules/aboutme.tex
logging:
  level: error
  format: text
`)
	return &CLI{Config: filepath.Join(root, config.DefaultPath)}, root
}

func newGlobal() *Global {
	return &Global{Logger: testutil.DiscardLogger()}
}

func TestGenerateThenCheck(t *testing.T) {
	cli, root := newProject(t)

	check := &CheckCmd{}
	err := check.Run(newGlobal(), cli)
	require.Error(t, err, "nothing generated yet")
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))

	require.NoError(t, (&GenerateCmd{}).Run(newGlobal(), cli))
	data, err := os.ReadFile(filepath.Join(root, "out", "resume", "aboutme.tex"))
	require.NoError(t, err)
	assert.Equal(t, "About me\n", string(data))

	require.NoError(t, check.Run(newGlobal(), cli))
}

func TestGenerate_OutputOverride(t *testing.T) {
	cli, _ := newProject(t)
	out := t.TempDir()

	require.NoError(t, (&GenerateCmd{Output: out}).Run(newGlobal(), cli))
	assert.FileExists(t, filepath.Join(out, "cv", "aboutme.tex"))
}

func TestGenerate_BadConfig(t *testing.T) {
	cli, _ := newProject(t)
	testutil.WriteFile(t, cli.Config, "formats: [letter]\n")

	err := (&GenerateCmd{}).Run(newGlobal(), cli)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
}

func TestLoadConfig_LeavesDefaultLoggerAlone(t *testing.T) {
	cli, _ := newProject(t)
	before := slog.Default()
	g := NewGlobal(false)
	bootstrap := g.Logger

	_, err := loadConfig(g, cli)
	require.NoError(t, err)
	assert.Same(t, before, slog.Default())
	assert.NotSame(t, bootstrap, g.Logger)
	assert.False(t, g.Logger.Enabled(context.Background(), slog.LevelWarn), "fixture logs at error level")
}

func TestNewGlobal(t *testing.T) {
	assert.True(t, NewGlobal(true).Logger.Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, NewGlobal(false).Logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestRunInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.DefaultPath)
	require.NoError(t, (&InitCmd{}).Run(newGlobal(), &CLI{Config: path}))
	assert.FileExists(t, path)

	require.Error(t, RunInit(path, false))
	require.NoError(t, RunInit(path, true))
}

func TestPrintDrifts(t *testing.T) {
	var buf bytes.Buffer
	printDrifts(&buf, []output.Drift{
		{Path: "out/cv/a.tex", Missing: true},
		{Path: "out/cv/b.tex", Diff: "-old\n+new"},
	}, true)

	assert.Equal(t, "missing  out/cv/a.tex\nstale    out/cv/b.tex\n-old\n+new\n", buf.String())

	buf.Reset()
	printDrifts(&buf, []output.Drift{{Path: "out/cv/b.tex", Diff: "-old\n+new"}}, false)
	assert.Equal(t, "stale    out/cv/b.tex\n", buf.String())
}

func TestPrintCatalog(t *testing.T) {
	cat, err := catalog.Load(catalog.Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	printCatalog(&buf, cat)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, len(cat.Types()))
	assert.True(t, strings.HasPrefix(lines[0], "aboutme"))
	assert.Contains(t, lines[0], " -")

	var course string
	for _, l := range lines {
		if strings.HasPrefix(l, "course ") {
			course = l
		}
	}
	assert.Contains(t, course, "cv=embedded:course/cv.tex")
	assert.NotContains(t, course, "resume=")
}

func TestWatchPaths(t *testing.T) {
	cfg := config.Default()
	cfg.Path = filepath.Join("proj", config.DefaultPath)
	cfg.Jobs = []config.JobConfig{{ContentType: "work", Source: "modules/work-items"}}
	cfg.Templates.Directory = "tpl"

	assert.Equal(t, []string{
		cfg.Path,
		filepath.Join("proj", "modules", "work-items"),
		filepath.Join("proj", "tpl"),
	}, watchPaths(cfg, cfg.Path))
}
