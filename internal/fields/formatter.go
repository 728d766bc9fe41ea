package fields

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"git.home.luguber.info/inful/cvbuilder/internal/datevalue"
	"git.home.luguber.info/inful/cvbuilder/internal/record"
	"git.home.luguber.info/inful/cvbuilder/internal/tokenize"
)

// Fields maps field names to rendered strings. Mapping-valued fields hold
// nested Fields and the items field holds []Fields.
type Fields = map[string]any

// MissingFieldError reports a record lacking a required field.
type MissingFieldError struct {
	Field    string
	RecordID string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("record %q is missing required field %q", e.RecordID, e.Field)
}

// Formatter applies rules for a layout configuration.
type Formatter struct {
	Layout Layout
}

// NewFormatter returns a formatter using layout.
func NewFormatter(layout Layout) *Formatter {
	return &Formatter{Layout: layout}
}

// Format computes the template fields of rec for format. It is pure: the
// parsed record is not modified.
func (f *Formatter) Format(rule Rule, rec record.Parsed, format Format) (Fields, error) {
	return f.format(rule, rec.ID, rec.Fields, format)
}

func (f *Formatter) format(rule Rule, id string, data map[string]any, format Format) (Fields, error) {
	out := make(Fields, len(data))
	for k, v := range data {
		out[k] = passthrough(v)
	}

	for _, spec := range rule.Fields {
		val, present := data[spec.Name]
		if spec.Required && (!present || val == nil) {
			return nil, &MissingFieldError{Field: spec.Name, RecordID: id}
		}
		rendered, err := f.field(rule, spec, id, val, format)
		if err != nil {
			return nil, err
		}
		out[spec.Name] = rendered
	}

	if lb := rule.LineBreak; lb != nil && containsFormat(lb.Formats, format) {
		f.applyLineBreak(lb, data, out)
	}
	return out, nil
}

func (f *Formatter) field(rule Rule, spec Spec, id string, val any, format Format) (any, error) {
	switch spec.Kind {
	case KindRaw:
		return passthrough(val), nil
	case KindText:
		return tokenize.Render(stringify(val)), nil
	case KindDate:
		if val == nil {
			return "", nil
		}
		return formatDate(datevalue.FromAny(val), format), nil
	case KindOptional:
		if !truthy(val) {
			return "", nil
		}
		return tokenize.Render(stringify(val)), nil
	case KindComment:
		return formatComment(val, format), nil
	case KindGrade:
		return formatGrade(val), nil
	case KindItems:
		return f.formatItems(rule, spec, id, val, format)
	default:
		return nil, fmt.Errorf("field %q: unknown kind %d", spec.Name, spec.Kind)
	}
}

func formatDate(v datevalue.Value, format Format) string {
	if format == FormatResume {
		return datevalue.FormatShort(v)
	}
	return datevalue.FormatLong(v)
}

func formatComment(val any, format Format) string {
	switch c := val.(type) {
	case nil:
		return ""
	case map[string]any:
		if exp, ok := c[CommentExpectedKey]; ok && truthy(exp) {
			date := formatDate(datevalue.FromAny(exp), format)
			if format == FormatResume {
				return "exp. " + date
			}
			return "Expected graduation: " + date
		}
		if !truthy(c[CommentOtherKey]) {
			return ""
		}
		return tokenize.Render(stringify(c[CommentOtherKey]))
	default:
		return tokenize.Render(stringify(c))
	}
}

func formatGrade(val any) Fields {
	out := Fields{GradeTypeKey: "", GradeValueKey: ""}
	g, ok := val.(map[string]any)
	if !ok {
		if truthy(val) {
			out[GradeValueKey] = stringify(val)
		}
		return out
	}
	for k, v := range g {
		out[k] = passthrough(v)
	}
	if truthy(g[GradeTypeKey]) {
		out[GradeTypeKey] = tokenize.Render(stringify(g[GradeTypeKey]))
	}
	return out
}

func (f *Formatter) formatItems(rule Rule, spec Spec, id string, val any, format Format) ([]Fields, error) {
	list, ok := val.([]any)
	if !ok {
		if val == nil {
			return []Fields{}, nil
		}
		return nil, &MissingFieldError{Field: spec.Name, RecordID: id}
	}
	itemRule := Rule{}
	if rule.Item != nil {
		itemRule = *rule.Item
	}
	items := make([]Fields, 0, len(list))
	for i, raw := range list {
		itemID := fmt.Sprintf("%s[%d]", id, i)
		data, ok := raw.(map[string]any)
		if !ok {
			// A bare scalar item is shorthand for {name: <scalar>}.
			data = map[string]any{"name": raw}
		}
		formatted, err := f.format(itemRule, itemID, data, format)
		if err != nil {
			return nil, err
		}
		items = append(items, formatted)
	}
	return items, nil
}

func (f *Formatter) applyLineBreak(lb *LineBreak, data map[string]any, out Fields) {
	total := 0
	for _, name := range lb.Fields {
		total += utf8.RuneCountInString(stringify(data[name]))
	}
	target := stringify(data[lb.Target])
	if total > f.Layout.CombinedLimit && utf8.RuneCountInString(target) < f.Layout.TargetLimit {
		out[lb.Target] = f.Layout.Marker + fmt.Sprint(out[lb.Target])
	}
}

func containsFormat(formats []Format, f Format) bool {
	for _, candidate := range formats {
		if candidate == f {
			return true
		}
	}
	return false
}

// passthrough renders an untagged value: scalars become strings, mappings
// stay addressable with dotted paths.
func passthrough(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(Fields, len(t))
		for k, val := range t {
			out[k] = passthrough(val)
		}
		return out
	default:
		return stringify(v)
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case datevalue.Value:
		return datevalue.FormatLong(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+stringify(t[k]))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

// truthy follows the usual "empty means absent" convention of the source files.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case datevalue.Value:
		return !t.IsZero()
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
