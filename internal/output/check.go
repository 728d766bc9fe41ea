package output

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/k14s/difflib"
)

// Drift describes an output whose file content differs from the rendered text.
type Drift struct {
	Path    string
	Missing bool
	Diff    string
}

// CheckSink compares rendered outputs against the files on disk without
// writing anything.
type CheckSink struct {
	Root string

	mu     sync.Mutex
	drifts []Drift
	seen   int
}

// NewCheckSink returns a check sink for the output tree at root.
func NewCheckSink(root string) *CheckSink {
	return &CheckSink{Root: root}
}

// Write records a Drift when the file at target is missing or differs.
func (c *CheckSink) Write(ctx context.Context, target Target, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := Resolve(c.Root, target)
	if err != nil {
		return "", err
	}

	// #nosec G304 -- full is validated to stay under Root.
	existing, err := os.ReadFile(full)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen++
	switch {
	case errors.Is(err, fs.ErrNotExist):
		c.drifts = append(c.drifts, Drift{Path: full, Missing: true})
	case err != nil:
		return "", fmt.Errorf("read existing output: %w", err)
	case string(existing) != content:
		c.drifts = append(c.drifts, Drift{
			Path: full,
			Diff: difflib.PPDiff(strings.Split(string(existing), "\n"), strings.Split(content, "\n")),
		})
	}
	return full, nil
}

// Drifts returns the recorded drifts sorted by path.
func (c *CheckSink) Drifts() []Drift {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Drift, len(c.drifts))
	copy(out, c.drifts)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Checked returns how many outputs were compared.
func (c *CheckSink) Checked() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen
}
