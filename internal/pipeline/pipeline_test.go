package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/cvbuilder/internal/catalog"
	ferrors "git.home.luguber.info/inful/cvbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/cvbuilder/internal/metrics"
	"git.home.luguber.info/inful/cvbuilder/internal/output"
	"git.home.luguber.info/inful/cvbuilder/internal/templates"
)

const educationRecord = `degree: BSc
title: Computer Science
institution: Example University
start-date: September 2018
end-date: June 2021
comment:
  expected-end-date: null
  other: Graduated with honors
grade:
  type: GPA
  value: "3.9"
`

type memorySink struct {
	mu    sync.Mutex
	files map[string]string
}

func newMemorySink() *memorySink { return &memorySink{files: map[string]string{}} }

func (m *memorySink) Write(_ context.Context, t output.Target, content string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := filepath.ToSlash(output.ComputePath("", t.Format, t.Subdir, t.Identifier))
	m.files[p] = content
	return p, nil
}

type countingRecorder struct {
	metrics.NoopRecorder
	rendered int
	skipped  map[metrics.SkipReason]int
	outcomes []metrics.Outcome
}

func (c *countingRecorder) IncRendered(string, string) { c.rendered++ }
func (c *countingRecorder) IncSkipped(_ string, r metrics.SkipReason) {
	if c.skipped == nil {
		c.skipped = map[metrics.SkipReason]int{}
	}
	c.skipped[r]++
}
func (c *countingRecorder) ObserveJobDuration(string, time.Duration) {}
func (c *countingRecorder) IncRunOutcome(o metrics.Outcome)          { c.outcomes = append(c.outcomes, o) }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func newGenerator(t *testing.T, opts catalog.Options, sink output.Sink, rec metrics.Recorder) (*Generator, *catalog.Catalog) {
	t.Helper()
	cat, err := catalog.Load(opts)
	require.NoError(t, err)
	g, err := New(Options{
		Catalog:  cat,
		Sink:     sink,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Recorder: rec,
	})
	require.NoError(t, err)
	return g, cat
}

func lookup(t *testing.T, cat *catalog.Catalog, name string) *catalog.Entry {
	t.Helper()
	e, ok := cat.Lookup(name)
	require.True(t, ok, name)
	return e
}

func TestNew_RequiresCatalogAndSink(t *testing.T) {
	_, err := New(Options{Sink: newMemorySink()})
	require.Error(t, err)

	cat, err := catalog.Load(catalog.Options{})
	require.NoError(t, err)
	_, err = New(Options{Catalog: cat})
	require.Error(t, err)
}

func TestGenerateDir_Education(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bsc.yaml"), educationRecord)

	sink := newMemorySink()
	g, cat := newGenerator(t, catalog.Options{}, sink, nil)

	sum, err := g.GenerateDir(context.Background(), lookup(t, cat, "education"), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Rendered)
	assert.Equal(t, 0, sum.Skipped)

	cv := sink.files["cv/education/bsc.tex"]
	assert.Contains(t, cv, "September 2018")
	assert.Contains(t, cv, "June 2021")
	assert.Contains(t, cv, "Graduated with honors")
	assert.Contains(t, cv, `\textit{ GPA: 3.9 }`)
	assert.NotContains(t, cv, "expected-end-date")

	resume := sink.files["resume/education/bsc.tex"]
	assert.Contains(t, resume, "Sep 2018")
	assert.Contains(t, resume, "Jun 2021")
	assert.NotContains(t, resume, `\newline`)
}

func TestGenerateDir_ResumeLineBreak(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "msc.yaml"), `degree: Master of Science
title: Distributed Systems and Cloud Engineering
institution: KTH
start-date: August 2021
end-date: June 2023
`)
	sink := newMemorySink()
	g, cat := newGenerator(t, catalog.Options{}, sink, nil)

	_, err := g.GenerateDir(context.Background(), lookup(t, cat, "education"), dir)
	require.NoError(t, err)
	assert.Contains(t, sink.files["resume/education/msc.tex"], `{  \newline KTH }`)
	assert.NotContains(t, sink.files["cv/education/msc.tex"], `\newline`)
}

func TestGenerateDir_IsolatesRecordErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "good.yaml"), educationRecord)
	writeFile(t, filepath.Join(dir, "no-degree.yaml"), "title: X\ninstitution: Y\nstart-date: May 2010\n")
	writeFile(t, filepath.Join(dir, "broken.yaml"), "degree: [unclosed\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "not a record")
	writeFile(t, filepath.Join(dir, ".hidden.yaml"), "ignored: true\n")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o750))

	sink := newMemorySink()
	rec := &countingRecorder{}
	g, cat := newGenerator(t, catalog.Options{}, sink, rec)

	sum, err := g.GenerateDir(context.Background(), lookup(t, cat, "education"), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Skipped)
	assert.Equal(t, 2, sum.Rendered)
	assert.Len(t, sink.files, 2)
	assert.Contains(t, sink.files, "cv/education/good.tex")
	assert.NotContains(t, sink.files, "cv/education/no-degree.tex")

	assert.Equal(t, 1, rec.skipped[metrics.SkipMissingField])
	assert.Equal(t, 1, rec.skipped[metrics.SkipLoad])
	assert.Equal(t, 1, rec.skipped[metrics.SkipUnsupported])
	assert.Equal(t, 2, rec.rendered)
}

func TestGenerateDir_SkipsAreRecordErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "no-degree.yaml"), "title: X\ninstitution: Y\nstart-date: May 2010\n")

	cat, err := catalog.Load(catalog.Options{})
	require.NoError(t, err)
	var logs strings.Builder
	g, err := New(Options{
		Catalog: cat,
		Sink:    newMemorySink(),
		Logger:  slog.New(slog.NewTextHandler(&logs, nil)),
	})
	require.NoError(t, err)

	sum, err := g.GenerateDir(context.Background(), lookup(t, cat, "education"), dir)
	require.NoError(t, err)
	require.Len(t, sum.Skips, 1)

	skip := sum.Skips[0]
	assert.Equal(t, ferrors.CategoryRecord, skip.Category())
	assert.False(t, skip.IsFatal())
	assert.Equal(t, filepath.Join(dir, "no-degree.yaml"), skip.Context()["source_path"])
	assert.Contains(t, logs.String(), "category=record")
}

func TestGenerateDir_MissingDirectoryIsFatal(t *testing.T) {
	g, cat := newGenerator(t, catalog.Options{}, newMemorySink(), nil)
	_, err := g.GenerateDir(context.Background(), lookup(t, cat, "work"), filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
}

func TestGenerateDir_UnresolvedPlaceholderAbortsBeforeWrite(t *testing.T) {
	overrides := t.TempDir()
	writeFile(t, filepath.Join(overrides, "education", "resume.tex"), `<<degree>> <<grade.scale>>`)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bsc.yaml"), educationRecord)

	sink := newMemorySink()
	g, cat := newGenerator(t, catalog.Options{OverrideDir: overrides}, sink, nil)

	_, err := g.GenerateDir(context.Background(), lookup(t, cat, "education"), dir)
	require.Error(t, err)

	var unresolved *templates.UnresolvedPlaceholderError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, "grade.scale", unresolved.Placeholder)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryTemplate))
	assert.Empty(t, sink.files, "the cv output of the record must not be written either")
}

func TestGenerateAggregate_Ordering(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), "job-title: Alpha\ncompany: A\nstart-date: May 2017\nend-date: June 2019\n")
	writeFile(t, filepath.Join(dir, "b.yaml"), "job-title: Bravo\ncompany: B\nstart-date: July 2021\nend-date: Present\n")
	writeFile(t, filepath.Join(dir, "c.yaml"), "job-title: Charlie\ncompany: C\nstart-date: July 2019\nend-date: March 2021\n")
	writeFile(t, filepath.Join(dir, "d.yaml"), "job-title: Delta\ncompany: D\nstart-date: January 2019\nend-date: March 2021\n")

	sink := newMemorySink()
	g, cat := newGenerator(t, catalog.Options{}, sink, nil)

	sum, err := g.GenerateAggregate(context.Background(), lookup(t, cat, "work"), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Rendered)

	agg := sink.files["cv/work/all-by-date.tex"]
	require.NotEmpty(t, agg)
	positions := []int{
		strings.Index(agg, "Bravo"),
		strings.Index(agg, "Charlie"),
		strings.Index(agg, "Delta"),
		strings.Index(agg, "Alpha"),
	}
	for i, p := range positions {
		require.GreaterOrEqual(t, p, 0, "entry %d missing", i)
		if i > 0 {
			assert.Greater(t, p, positions[i-1], "entry %d out of order", i)
		}
	}
	assert.Equal(t, 4, strings.Count(agg, `\cvchronoitem`))
	assert.NotContains(t, sink.files, "cv/work/a.tex", "aggregate alone does not render per-record outputs")
}

func TestGenerateAggregate_Limit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), "title: Old\ndate: May 2010\n")
	writeFile(t, filepath.Join(dir, "b.yaml"), "title: New\ndate: May 2020\n")
	writeFile(t, filepath.Join(dir, "c.yaml"), "title: Mid\ndate: May 2015\n")

	sink := newMemorySink()
	g, cat := newGenerator(t, catalog.Options{MaxItems: map[string]int{"award": 2}}, sink, nil)

	_, err := g.GenerateAggregate(context.Background(), lookup(t, cat, "award"), dir)
	require.NoError(t, err)
	agg := sink.files["cv/awards/all-by-date.tex"]
	assert.Contains(t, agg, "New")
	assert.Contains(t, agg, "Mid")
	assert.NotContains(t, agg, "Old")
}

func TestGenerateFile_Skills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills.yaml")
	writeFile(t, path, `- {name: Go, level: Expert, score: 5}
- {name: Python, level: Advanced, score: 4}
- {name: LaTeX, level: Advanced, score: 4}
`)
	sink := newMemorySink()
	g, cat := newGenerator(t, catalog.Options{MaxItems: map[string]int{"compact-skill": 2}}, sink, nil)

	_, err := g.GenerateFile(context.Background(), lookup(t, cat, "skill"), path)
	require.NoError(t, err)
	assert.Equal(t, `\skills{{Go/5},{Python/4},{LaTeX/4}}`, sink.files["resume/skills/skill.tex"])
	assert.Equal(t, "\\addcvsoftwareskill{ Go }{ Expert }\n\\addcvsoftwareskill{ Python }{ Advanced }\n\\addcvsoftwareskill{ LaTeX }{ Advanced }",
		sink.files["cv/skills/skill.tex"])

	_, err = g.GenerateFile(context.Background(), lookup(t, cat, "compact-skill"), path)
	require.NoError(t, err)
	assert.Equal(t, "\\compactskills{Go, Python}\n", sink.files["cv/skills/compact-skill.tex"])
}

func TestGenerateFile_ContactInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contact-info.yaml")
	writeFile(t, path, `name: Jane Doe
job-title: Engineer
email: jane@example.com
github: janedoe
`)
	sink := newMemorySink()
	g, cat := newGenerator(t, catalog.Options{}, sink, nil)

	_, err := g.GenerateFile(context.Background(), lookup(t, cat, "contact-info"), path)
	require.NoError(t, err)
	resume := sink.files["resume/contact-info/contact-info.tex"]
	assert.Contains(t, resume, `\cvname{Jane Doe}`)
	assert.Contains(t, resume, `\cvgithub{github.com/janedoe}`)
	assert.Contains(t, resume, `\cvnumberphone{}`)
}

func TestGenerateFile_MissingSourceIsSkipped(t *testing.T) {
	sink := newMemorySink()
	g, cat := newGenerator(t, catalog.Options{}, sink, nil)

	sum, err := g.GenerateFile(context.Background(), lookup(t, cat, "language"), filepath.Join(t.TempDir(), "languages.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Empty(t, sink.files)
}

func TestGenerateIdentity_ReplicatesAcrossFormats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aboutme.tex")
	content := "\\section*{About me}\nI build things.\n"
	writeFile(t, path, content)

	sink := newMemorySink()
	g, cat := newGenerator(t, catalog.Options{}, sink, nil)

	sum, err := g.GenerateIdentity(context.Background(), lookup(t, cat, "aboutme"), path)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Rendered)
	assert.Equal(t, content, sink.files["cv/aboutme.tex"])
	assert.Equal(t, content, sink.files["resume/aboutme.tex"])
}

func TestGenerateMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.md")
	writeFile(t, path, "Engineer with a *passion* for tooling. See https://example.com\n")

	sink := newMemorySink()
	g, cat := newGenerator(t, catalog.Options{}, sink, nil)

	_, err := g.GenerateMarkdown(context.Background(), lookup(t, cat, "summary"), path)
	require.NoError(t, err)
	out := sink.files["cv/summary.tex"]
	assert.Contains(t, out, `\emph{passion}`)
	assert.Contains(t, out, `\href{https://example.com}{example.com}`)
	assert.Equal(t, out, sink.files["resume/summary.tex"])
}

func TestKindMismatch(t *testing.T) {
	g, cat := newGenerator(t, catalog.Options{}, newMemorySink(), nil)
	ctx := context.Background()

	_, err := g.GenerateFile(ctx, lookup(t, cat, "education"), "x.yaml")
	require.Error(t, err)
	_, err = g.GenerateDir(ctx, lookup(t, cat, "skill"), t.TempDir())
	require.Error(t, err)
	_, err = g.GenerateIdentity(ctx, lookup(t, cat, "summary"), "x.md")
	require.Error(t, err)
	_, err = g.GenerateMarkdown(ctx, lookup(t, cat, "aboutme"), "x.tex")
	require.Error(t, err)
}

func TestRun(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "education-items", "bsc.yaml"), educationRecord)
	writeFile(t, filepath.Join(root, "aboutme.tex"), "About\n")

	sink := newMemorySink()
	rec := &countingRecorder{}
	g, _ := newGenerator(t, catalog.Options{}, sink, rec)

	sum, err := g.Run(context.Background(), []Job{
		{ContentType: "aboutme", Source: filepath.Join(root, "aboutme.tex")},
		{ContentType: "education", Source: filepath.Join(root, "education-items"), Aggregate: true},
		{ContentType: "summary", Source: filepath.Join(root, "summary.md"), Optional: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Jobs, "the optional job without a source is not run")
	assert.Equal(t, 6, sum.Rendered)
	assert.Len(t, sum.Outputs, 6)
	assert.Contains(t, sink.files, "cv/education/all-by-date.tex")
	assert.Contains(t, sink.files, "resume/education/bsc.tex")
	assert.Equal(t, []metrics.Outcome{metrics.OutcomeSuccess}, rec.outcomes)
}

func TestRun_ConfigErrors(t *testing.T) {
	g, _ := newGenerator(t, catalog.Options{}, newMemorySink(), nil)

	_, err := g.Run(context.Background(), []Job{{ContentType: "hobby", Source: "x"}})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))

	_, err = g.Run(context.Background(), []Job{{ContentType: "skill", Source: "x", Aggregate: true}})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestRun_Canceled(t *testing.T) {
	rec := &countingRecorder{}
	g, _ := newGenerator(t, catalog.Options{}, newMemorySink(), rec)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Run(ctx, []Job{{ContentType: "aboutme", Source: "x"}})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []metrics.Outcome{metrics.OutcomeCanceled}, rec.outcomes)
}

func TestRun_WarningOutcomeOnSkips(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.yaml"), "title: no company\n")
	rec := &countingRecorder{}
	g, _ := newGenerator(t, catalog.Options{}, newMemorySink(), rec)

	sum, err := g.Run(context.Background(), []Job{{ContentType: "work", Source: dir}})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, []metrics.Outcome{metrics.OutcomeWarning}, rec.outcomes)
}

func TestRun_FileWriterIsIdempotent(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "bsc.yaml"), educationRecord)
	out := filepath.Join(t.TempDir(), "generated")
	jobs := []Job{{ContentType: "education", Source: src, Aggregate: true}}

	g, _ := newGenerator(t, catalog.Options{}, output.NewFileWriter(out), nil)
	first, err := g.Run(context.Background(), jobs)
	require.NoError(t, err)

	snapshot := map[string][]byte{}
	for _, p := range first.Outputs {
		b, err := os.ReadFile(p)
		require.NoError(t, err)
		snapshot[p] = b
	}

	second, err := g.Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Equal(t, first.Outputs, second.Outputs)
	for _, p := range second.Outputs {
		b, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, snapshot[p], b, p)
	}

	check := output.NewCheckSink(out)
	g, _ = newGenerator(t, catalog.Options{}, check, nil)
	_, err = g.Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Empty(t, check.Drifts())
	assert.Equal(t, 4, check.Checked())
}

func TestRun_PathConflictIsFatal(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "bsc.yaml"), educationRecord)
	out := t.TempDir()
	writeFile(t, filepath.Join(out, "cv", "education"), "a file where a directory belongs")

	g, _ := newGenerator(t, catalog.Options{}, output.NewFileWriter(out), nil)
	_, err := g.Run(context.Background(), []Job{{ContentType: "education", Source: src}})
	require.Error(t, err)

	var conflict *output.PathConflictError
	require.ErrorAs(t, err, &conflict)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
}

func TestSortChronological_OpaqueFirst(t *testing.T) {
	g, cat := newGenerator(t, catalog.Options{}, newMemorySink(), nil)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "z.yaml"), "title: Z\ndate: ongoing\n")
	writeFile(t, filepath.Join(dir, "y.yaml"), "title: Y\ndate: January 2024\n")
	writeFile(t, filepath.Join(dir, "a.yaml"), "title: A\ndate: Present\n")

	var sum Summary
	recs, err := g.prepareDir(context.Background(), lookup(t, cat, "award"), dir, &sum)
	require.NoError(t, err)
	sortChronological(recs, "date")

	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.rec.ID
	}
	assert.Equal(t, []string{"a", "z", "y"}, ids)
}
