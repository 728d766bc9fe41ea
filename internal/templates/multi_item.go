package templates

import (
	"fmt"
	"maps"
	"strings"
)

// MultiItem renders a list of items through an item template and places the
// joined result at the <<items>> placeholder of a wrapper template.
type MultiItem struct {
	Wrapper   *Simple
	Item      *Simple
	Separator string
	// MaxItems keeps only the first MaxItems items when positive.
	MaxItems int
}

// NewMultiItem builds a multi-item template. The wrapper must reference <<items>>.
func NewMultiItem(name, wrapper, item, separator string, maxItems int) (*MultiItem, error) {
	w := NewSimple(name+".wrapper", wrapper)
	found := false
	for _, p := range w.Placeholders() {
		if p == ItemsField {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("template %q: wrapper has no <<%s>> placeholder", name, ItemsField)
	}
	if maxItems < 0 {
		return nil, fmt.Errorf("template %q: negative item limit %d", name, maxItems)
	}
	return &MultiItem{
		Wrapper:   w,
		Item:      NewSimple(name+".item", item),
		Separator: separator,
		MaxItems:  maxItems,
	}, nil
}

// Placeholders lists wrapper placeholders followed by item placeholders
// prefixed with "items.".
func (m *MultiItem) Placeholders() []string {
	out := m.Wrapper.Placeholders()
	for _, p := range m.Item.Placeholders() {
		out = append(out, ItemsField+"."+p)
	}
	return out
}

// Fill renders fields[items] and substitutes the joined block into the wrapper.
func (m *MultiItem) Fill(fields map[string]any) (string, error) {
	items, ok := itemList(fields[ItemsField])
	if !ok {
		return "", &UnresolvedPlaceholderError{Template: m.Wrapper.Name(), Placeholder: ItemsField}
	}
	if m.MaxItems > 0 && len(items) > m.MaxItems {
		items = items[:m.MaxItems]
	}

	rendered := make([]string, 0, len(items))
	for _, item := range items {
		text, err := m.Item.Fill(item)
		if err != nil {
			return "", err
		}
		rendered = append(rendered, text)
	}

	wrapperFields := make(map[string]any, len(fields))
	maps.Copy(wrapperFields, fields)
	wrapperFields[ItemsField] = strings.Join(rendered, m.Separator)
	return m.Wrapper.Fill(wrapperFields)
}

func itemList(v any) ([]map[string]any, bool) {
	switch t := v.(type) {
	case []map[string]any:
		return t, true
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, false
			}
			out = append(out, m)
		}
		return out, true
	default:
		return nil, false
	}
}
