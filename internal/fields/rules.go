// Package fields turns a parsed record into the strings a template needs for
// one output format.
//
// Which fields are dates, optional values, composite comments and so on is
// described by a Rule: plain data, not code, so adding a content type means
// adding a table entry.
package fields

import (
	"fmt"

	"git.home.luguber.info/inful/cvbuilder/internal/foundation/normalization"
)

// Format is an output document style.
type Format string

const (
	FormatCV     Format = "cv"
	FormatResume Format = "resume"
)

// AllFormats lists the supported formats in generation order.
var AllFormats = []Format{FormatCV, FormatResume}

var formatNormalizer = normalization.NewNormalizer(map[string]Format{
	"cv":     FormatCV,
	"resume": FormatResume,
}, FormatCV)

// ParseFormat validates a format name.
func ParseFormat(raw string) (Format, error) {
	f, err := formatNormalizer.NormalizeWithError(raw)
	if err != nil {
		return "", fmt.Errorf("output format: %w", err)
	}
	return f, nil
}

// Kind tags how a field is formatted.
type Kind int

const (
	// KindRaw passes the value through unchanged.
	KindRaw Kind = iota
	// KindText passes free text through the URL tokenizer.
	KindText
	// KindDate renders a datevalue long (cv) or short (resume).
	KindDate
	// KindOptional renders "" when absent or falsy, else tokenized text.
	KindOptional
	// KindComment is the composite {expected-end-date, other} comment.
	KindComment
	// KindGrade is an optional {type, value} mapping addressed with dotted paths.
	KindGrade
	// KindItems is a list of sub-records formatted with Rule.Item.
	KindItems
)

// Keys of composite fields.
const (
	CommentExpectedKey = "expected-end-date"
	CommentOtherKey    = "other"
	GradeTypeKey       = "type"
	GradeValueKey      = "value"
)

// Spec declares one field of a content type.
type Spec struct {
	Name     string
	Kind     Kind
	Required bool
}

// LineBreak describes the resume layout heuristic: when the combined length
// of Fields exceeds Layout.CombinedLimit and Target is shorter than
// Layout.TargetLimit, Target is prefixed with Layout.Marker.
type LineBreak struct {
	Fields  []string
	Target  string
	Formats []Format
}

// Rule is the formatting description of one content type.
type Rule struct {
	Fields    []Spec
	Item      *Rule
	LineBreak *LineBreak
}

// Declared reports whether name is a declared field.
func (r Rule) Declared(name string) bool {
	for _, s := range r.Fields {
		if s.Name == name {
			return true
		}
	}
	return false
}

// Names lists declared field names in declaration order.
func (r Rule) Names() []string {
	names := make([]string, len(r.Fields))
	for i, s := range r.Fields {
		names[i] = s.Name
	}
	return names
}

// DatePaths lists the dotted paths the record parser converts to dates.
func (r Rule) DatePaths() []string {
	var paths []string
	for _, s := range r.Fields {
		switch s.Kind {
		case KindDate:
			paths = append(paths, s.Name)
		case KindComment:
			paths = append(paths, s.Name+"."+CommentExpectedKey)
		case KindItems:
			if r.Item != nil {
				for _, p := range r.Item.DatePaths() {
					paths = append(paths, s.Name+".*."+p)
				}
			}
		}
	}
	return paths
}

// Layout holds the thresholds of the LineBreak heuristic.
type Layout struct {
	CombinedLimit int
	TargetLimit   int
	Marker        string
}

// Defaults of the resume layout heuristic, tuned for the twenty-seconds résumé class.
const (
	DefaultCombinedLimit = 55
	DefaultTargetLimit   = 30
	DefaultMarker        = ` \newline `
)

// DefaultLayout returns the stock thresholds.
func DefaultLayout() Layout {
	return Layout{
		CombinedLimit: DefaultCombinedLimit,
		TargetLimit:   DefaultTargetLimit,
		Marker:        DefaultMarker,
	}
}
