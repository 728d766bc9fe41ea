// Package catalog holds the closed set of content types and their templates.
//
// Built-in templates are embedded. A configured override directory may
// replace any of them using the same layout:
//
//	<dir>/<type>/<format>.tex                 single-record templates
//	<dir>/<type>/<format>.wrapper.tex         multi-item wrapper
//	<dir>/<type>/<format>.item.tex            multi-item item
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/cvbuilder/internal/fields"
	ferrors "git.home.luguber.info/inful/cvbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/cvbuilder/internal/record"
	"git.home.luguber.info/inful/cvbuilder/internal/templates"
)

//go:embed tex
var embeddedTemplates embed.FS

// AggregateSeparator joins records inside a chronological aggregate.
const AggregateSeparator = "\n"

// Options configures catalog loading.
type Options struct {
	// OverrideDir is searched before the embedded templates. Empty disables overrides.
	OverrideDir string
	// MaxItems overrides the item limit per content type. For directory
	// kinds it limits the aggregate.
	MaxItems map[string]int
}

// TemplateSource records where a template was loaded from.
type TemplateSource struct {
	Origin string // "file" or "embedded"
	Path   string
}

// Entry is a definition with its loaded templates.
type Entry struct {
	Definition
	templates  map[fields.Format]templates.Template
	aggregates map[fields.Format]templates.Template
	sources    map[fields.Format]TemplateSource
}

// Template returns the template for format, or false when the content type
// has no template for it.
func (e *Entry) Template(format fields.Format) (templates.Template, bool) {
	t, ok := e.templates[format]
	return t, ok
}

// AggregateTemplate returns the chronological aggregate template for format.
func (e *Entry) AggregateTemplate(format fields.Format) (templates.Template, bool) {
	t, ok := e.aggregates[format]
	return t, ok
}

// Source reports where the template for format came from.
func (e *Entry) Source(format fields.Format) (TemplateSource, bool) {
	s, ok := e.sources[format]
	return s, ok
}

// Catalog is an immutable lookup table of content types.
type Catalog struct {
	entries map[string]*Entry
	order   []string
}

// Load builds the catalog and validates every template against its rule.
func Load(opts Options) (*Catalog, error) {
	c := &Catalog{entries: make(map[string]*Entry)}
	for _, def := range builtin() {
		if limit, ok := opts.MaxItems[def.Type]; ok {
			if limit < 0 {
				return nil, ferrors.ConfigError(fmt.Sprintf("negative item limit for %s", def.Type)).
					WithContext("content_type", def.Type).
					Build()
			}
			def.MaxItems = limit
		}
		entry, err := loadEntry(def, opts.OverrideDir)
		if err != nil {
			return nil, err
		}
		c.entries[def.Type] = entry
		c.order = append(c.order, def.Type)
	}
	for name := range opts.MaxItems {
		if _, ok := c.entries[name]; !ok {
			return nil, ferrors.ConfigError(fmt.Sprintf("item limit for unknown content type %q", name)).Build()
		}
	}
	return c, nil
}

// Lookup returns the entry for a content type.
func (c *Catalog) Lookup(contentType string) (*Entry, bool) {
	e, ok := c.entries[contentType]
	return e, ok
}

// Types lists content types in generation order.
func (c *Catalog) Types() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func loadEntry(def Definition, overrideDir string) (*Entry, error) {
	entry := &Entry{
		Definition: def,
		templates:  make(map[fields.Format]templates.Template),
		aggregates: make(map[fields.Format]templates.Template),
		sources:    make(map[fields.Format]TemplateSource),
	}
	if def.Kind == KindIdentity || def.Kind == KindMarkdown {
		return entry, nil
	}

	for _, format := range fields.AllFormats {
		name := def.Type + "." + string(format)
		var (
			tpl templates.Template
			src TemplateSource
			err error
		)
		if def.MultiItem {
			tpl, src, err = loadMultiItem(def, format, overrideDir)
		} else {
			tpl, src, err = loadSimple(def, format, overrideDir)
		}
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, ferrors.TemplateError("load template").
				WithCause(err).
				WithContext("content_type", def.Type).
				WithContext("template", name).
				Build()
		}
		if err := validate(def.Rule, tpl); err != nil {
			return nil, ferrors.TemplateError(fmt.Sprintf("template %s references undeclared field", name)).
				WithCause(err).
				WithContext("content_type", def.Type).
				WithContext("template_path", src.Path).
				Build()
		}
		entry.templates[format] = tpl
		entry.sources[format] = src

		if simple, ok := tpl.(*templates.Simple); ok && def.Kind == KindDirectory {
			entry.aggregates[format] = &templates.MultiItem{
				Wrapper:   templates.NewSimple(name+".aggregate", "<<"+templates.ItemsField+">>"),
				Item:      simple,
				Separator: AggregateSeparator,
				MaxItems:  def.MaxItems,
			}
		}
	}
	return entry, nil
}

func loadSimple(def Definition, format fields.Format, overrideDir string) (templates.Template, TemplateSource, error) {
	rel := path.Join(def.Type, string(format)+".tex")
	text, src, err := readTemplate(rel, overrideDir)
	if err != nil {
		return nil, src, err
	}
	return templates.NewSimple(def.Type+"."+string(format), text), src, nil
}

func loadMultiItem(def Definition, format fields.Format, overrideDir string) (templates.Template, TemplateSource, error) {
	wrapper, src, err := readTemplate(path.Join(def.Type, string(format)+".wrapper.tex"), overrideDir)
	if err != nil {
		return nil, src, err
	}
	item, _, err := readTemplate(path.Join(def.Type, string(format)+".item.tex"), overrideDir)
	if err != nil {
		// A wrapper without its item template is a broken pair, not an absent format.
		return nil, src, fmt.Errorf("item template for %s: %v", src.Path, err)
	}
	sep, ok := def.Separators[format]
	if !ok {
		sep = "\n"
	}
	tpl, err := templates.NewMultiItem(def.Type+"."+string(format), wrapper, item, sep, def.MaxItems)
	if err != nil {
		return nil, src, err
	}
	return tpl, src, nil
}

// readTemplate returns an override file when present, else the embedded default.
func readTemplate(rel, overrideDir string) (string, TemplateSource, error) {
	if overrideDir != "" {
		p := filepath.Join(overrideDir, filepath.FromSlash(rel))
		// #nosec G304 -- p is built from the configured template directory and fixed names.
		b, err := os.ReadFile(p)
		if err == nil {
			return string(b), TemplateSource{Origin: "file", Path: p}, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", TemplateSource{Path: p}, err
		}
	}
	b, err := embeddedTemplates.ReadFile(path.Join("tex", rel))
	if err != nil {
		return "", TemplateSource{}, err
	}
	return string(b), TemplateSource{Origin: "embedded", Path: rel}, nil
}

// validate checks that every placeholder root is a declared field.
func validate(rule fields.Rule, tpl templates.Template) error {
	var unknown []string
	for _, p := range tpl.Placeholders() {
		root, rest, nested := strings.Cut(p, ".")
		switch {
		case root == record.ItemsField && nested && rule.Item != nil:
			itemRoot, _, _ := strings.Cut(rest, ".")
			if !rule.Item.Declared(itemRoot) {
				unknown = append(unknown, p)
			}
		case root == record.ItemsField && !nested:
			if _, multi := tpl.(*templates.MultiItem); !multi && !rule.Declared(root) {
				unknown = append(unknown, p)
			}
		default:
			if !rule.Declared(root) {
				unknown = append(unknown, p)
			}
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("undeclared placeholders: %s", strings.Join(unknown, ", "))
	}
	return nil
}
