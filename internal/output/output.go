// Package output maps output targets to file paths and persists rendered text.
package output

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/cvbuilder/internal/fields"
)

// Extension of every generated fragment.
const Extension = ".tex"

// Target identifies one output file relative to the output root.
type Target struct {
	Format     fields.Format
	Subdir     string
	Identifier string
}

// Sink receives rendered outputs.
type Sink interface {
	// Write persists content for target and returns the resolved path.
	Write(ctx context.Context, target Target, content string) (string, error)
}

// PathConflictError reports an ancestor of an output path that exists and is
// not a directory.
type PathConflictError struct {
	Path     string
	Conflict string
}

func (e *PathConflictError) Error() string {
	return fmt.Sprintf("output path %s: %s exists and is not a directory", e.Path, e.Conflict)
}

// FileName returns the file name for identifier with spaces replaced by underscores.
func FileName(identifier string) string {
	return strings.ReplaceAll(identifier, " ", "_") + Extension
}

// ComputePath joins root/format/subdir/<identifier>.tex. An empty subdir
// places the file directly under the format directory.
func ComputePath(root string, format fields.Format, subdir, identifier string) string {
	return filepath.Join(root, string(format), subdir, FileName(identifier))
}

// Resolve computes the path of target under root and rejects targets that
// would escape it.
func Resolve(root string, target Target) (string, error) {
	if target.Identifier == "" {
		return "", errors.New("output identifier is required")
	}
	if strings.ContainsAny(target.Identifier, `/\`) {
		return "", fmt.Errorf("output identifier %q contains a path separator", target.Identifier)
	}
	full := ComputePath(root, target.Format, target.Subdir, target.Identifier)
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("output path %s escapes %s", full, root)
	}
	return full, nil
}

// FileWriter writes whole files under Root, creating directories as needed.
type FileWriter struct {
	Root string
}

// NewFileWriter returns a writer rooted at root.
func NewFileWriter(root string) *FileWriter {
	return &FileWriter{Root: root}
}

// Write creates every missing ancestor and overwrites the target file.
func (w *FileWriter) Write(ctx context.Context, target Target, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := Resolve(w.Root, target)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(full)
	if conflict := nonDirAncestor(dir); conflict != "" {
		return "", &PathConflictError{Path: full, Conflict: conflict}
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if fi, err := os.Stat(full); err == nil && fi.IsDir() {
		return "", &PathConflictError{Path: full, Conflict: full}
	}
	if err := os.WriteFile(full, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("write output file: %w", err)
	}
	return full, nil
}

// nonDirAncestor returns the nearest existing ancestor of dir (dir included)
// when it is not a directory, else "".
func nonDirAncestor(dir string) string {
	for d := dir; ; d = filepath.Dir(d) {
		fi, err := os.Stat(d)
		if err == nil {
			if fi.IsDir() {
				return ""
			}
			return d
		}
		if parent := filepath.Dir(d); parent == d {
			return ""
		}
	}
}
