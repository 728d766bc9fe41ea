package record

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/cvbuilder/internal/datevalue"
)

const educationYAML = `degree: BSc
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

func TestLoad_Formats(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.yaml": educationYAML,
		"b.toml": "degree = \"BSc\"\nstart-date = \"September 2018\"\n[grade]\ntype = \"GPA\"\nvalue = \"3.9\"\n",
		"c.json": `{"degree": "BSc", "start-date": "September 2018", "grade": {"type": "GPA", "value": "3.9"}}`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}

	for name := range files {
		t.Run(name, func(t *testing.T) {
			rec, err := Load(filepath.Join(dir, name))
			require.NoError(t, err)
			assert.Equal(t, "BSc", rec["degree"])
			grade, ok := rec["grade"].(map[string]any)
			require.True(t, ok, "nested mapping normalized to map[string]any")
			assert.Equal(t, "GPA", grade["type"])
		})
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestDecode_TopLevelList(t *testing.T) {
	rec, err := Decode([]byte("- name: Go\n  level: Expert\n- name: Rust\n  level: Good\n"), SourceYAML)
	require.NoError(t, err)

	items, ok := rec[ItemsField].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Equal(t, "Go", items[0].(map[string]any)["name"])
}

func TestDecode_TOMLArrayOfTables(t *testing.T) {
	rec, err := Decode([]byte("[[items]]\nname = \"Go\"\n[[items]]\nname = \"Rust\"\n"), SourceTOML)
	require.NoError(t, err)

	items, ok := rec[ItemsField].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
}

func TestDecode_EmptyAndScalar(t *testing.T) {
	rec, err := Decode([]byte(""), SourceYAML)
	require.NoError(t, err)
	assert.Empty(t, rec)

	_, err = Decode([]byte("just a string"), SourceYAML)
	require.Error(t, err)

	_, err = Decode([]byte("key: [unclosed"), SourceYAML)
	require.Error(t, err)
}

func TestParse_ConvertsDatePaths(t *testing.T) {
	rec, err := Decode([]byte(educationYAML+"items:\n  - date: May 2020\n"), SourceYAML)
	require.NoError(t, err)

	parsed := Parse("bsc", "modules/education-items/bsc.yaml", rec,
		[]string{"start-date", "end-date", "comment.expected-end-date", "items.*.date", "missing"})

	assert.Equal(t, "bsc", parsed.ID)
	start, ok := parsed.Fields["start-date"].(datevalue.Value)
	require.True(t, ok)
	assert.Equal(t, "September 2018", datevalue.FormatLong(start))

	comment := parsed.Fields["comment"].(map[string]any)
	assert.Nil(t, comment["expected-end-date"], "null dates stay null")

	item := parsed.Fields["items"].([]any)[0].(map[string]any)
	assert.IsType(t, datevalue.Value{}, item["date"])
	assert.NotContains(t, parsed.Fields, "missing")

	// The source record is untouched.
	assert.Equal(t, "September 2018", rec["start-date"])
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, "bsc computer science", Identifier("/x/y/bsc computer science.yaml"))
	assert.Equal(t, "contact", Identifier("contact.toml"))
}
