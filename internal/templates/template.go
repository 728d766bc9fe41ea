// Package templates fills static LaTeX templates from formatted fields.
//
// Placeholders are written <<name>> or <<path.to.key>>; whitespace inside
// the delimiters is ignored. Using angle delimiters keeps the LaTeX braces in
// the template text literal.
package templates

import (
	"fmt"
	"regexp"
	"strings"
)

// ItemsField is the reserved list-valued field read by MultiItem templates.
const ItemsField = "items"

var placeholderPattern = regexp.MustCompile(`<<\s*([A-Za-z0-9_-]+(?:\.[A-Za-z0-9_-]+)*)\s*>>`)

// Template renders formatted fields into text.
type Template interface {
	Fill(fields map[string]any) (string, error)
	// Placeholders lists the placeholder paths referenced by the template.
	Placeholders() []string
}

// UnresolvedPlaceholderError reports a placeholder with no matching field.
type UnresolvedPlaceholderError struct {
	Template    string
	Placeholder string
}

func (e *UnresolvedPlaceholderError) Error() string {
	return fmt.Sprintf("template %q: unresolved placeholder <<%s>>", e.Template, e.Placeholder)
}

type segment struct {
	literal string
	path    []string // nil for literal segments
}

// Simple is a single-record template.
type Simple struct {
	name     string
	text     string
	segments []segment
}

// NewSimple parses text into a template. name is used in error messages.
func NewSimple(name, text string) *Simple {
	s := &Simple{name: name, text: text}
	last := 0
	for _, m := range placeholderPattern.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > last {
			s.segments = append(s.segments, segment{literal: text[last:m[0]]})
		}
		s.segments = append(s.segments, segment{path: strings.Split(text[m[2]:m[3]], ".")})
		last = m[1]
	}
	if last < len(text) {
		s.segments = append(s.segments, segment{literal: text[last:]})
	}
	return s
}

// Name returns the template name.
func (s *Simple) Name() string { return s.name }

// Text returns the unparsed template text.
func (s *Simple) Text() string { return s.text }

// Placeholders lists referenced paths in order of first appearance.
func (s *Simple) Placeholders() []string {
	seen := make(map[string]bool)
	var out []string
	for _, seg := range s.segments {
		if seg.path == nil {
			continue
		}
		p := strings.Join(seg.path, ".")
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// Fill substitutes every placeholder. Dotted paths descend into nested maps.
func (s *Simple) Fill(fields map[string]any) (string, error) {
	var b strings.Builder
	b.Grow(len(s.text))
	for _, seg := range s.segments {
		if seg.path == nil {
			b.WriteString(seg.literal)
			continue
		}
		val, ok := resolve(fields, seg.path)
		if !ok {
			return "", &UnresolvedPlaceholderError{Template: s.name, Placeholder: strings.Join(seg.path, ".")}
		}
		b.WriteString(val)
	}
	return b.String(), nil
}

func resolve(fields map[string]any, path []string) (string, bool) {
	var cur any = fields
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = m[key]
		if !ok {
			return "", false
		}
	}
	switch v := cur.(type) {
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	case nil:
		return "", true
	case map[string]any, []any, []map[string]any:
		return "", false
	default:
		return fmt.Sprint(v), true
	}
}
