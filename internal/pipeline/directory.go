package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/cvbuilder/internal/catalog"
	"git.home.luguber.info/inful/cvbuilder/internal/datevalue"
	"git.home.luguber.info/inful/cvbuilder/internal/fields"
	ferrors "git.home.luguber.info/inful/cvbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/cvbuilder/internal/logfields"
	"git.home.luguber.info/inful/cvbuilder/internal/metrics"
	"git.home.luguber.info/inful/cvbuilder/internal/output"
	"git.home.luguber.info/inful/cvbuilder/internal/record"
	"git.home.luguber.info/inful/cvbuilder/internal/templates"
)

// prepared is a parsed record with its formatted fields per format.
type prepared struct {
	rec    record.Parsed
	fields map[fields.Format]fields.Fields
}

// GenerateDir renders one output per record file in dir and format.
func (g *Generator) GenerateDir(ctx context.Context, entry *catalog.Entry, dir string) (Summary, error) {
	return g.directory(ctx, entry, dir, true, false)
}

// GenerateAggregate renders all records in dir, newest first, into one
// output per format named AggregateIdentifier.
func (g *Generator) GenerateAggregate(ctx context.Context, entry *catalog.Entry, dir string) (Summary, error) {
	return g.directory(ctx, entry, dir, false, true)
}

func (g *Generator) directory(ctx context.Context, entry *catalog.Entry, dir string, perRecord, aggregate bool) (Summary, error) {
	var sum Summary
	if entry.Kind != catalog.KindDirectory {
		return sum, ferrors.ConfigError("content type is not a directory kind").
			WithContext(logfields.KeyContentType, entry.Type).
			Build()
	}
	records, err := g.prepareDir(ctx, entry, dir, &sum)
	if err != nil {
		return sum, err
	}

	if perRecord {
		for _, p := range records {
			outs := make([]rendered, 0, len(g.formats))
			for _, format := range g.formats {
				tpl, ok := entry.Template(format)
				if !ok {
					continue
				}
				text, err := fill(entry, tpl, format, p.rec.ID, p.fields[format])
				if err != nil {
					return sum, err
				}
				outs = append(outs, rendered{
					target:  output.Target{Format: format, Subdir: entry.Subdir, Identifier: p.rec.ID},
					content: text,
				})
			}
			if err := g.write(ctx, entry, outs, &sum); err != nil {
				return sum, err
			}
		}
	}

	if aggregate {
		if err := g.aggregate(ctx, entry, records, &sum); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func (g *Generator) aggregate(ctx context.Context, entry *catalog.Entry, records []prepared, sum *Summary) error {
	sorted := make([]prepared, len(records))
	copy(sorted, records)
	sortChronological(sorted, entry.SortField)

	outs := make([]rendered, 0, len(g.formats))
	for _, format := range g.formats {
		tpl, ok := entry.AggregateTemplate(format)
		if !ok {
			continue
		}
		items := make([]fields.Fields, 0, len(sorted))
		for _, p := range sorted {
			items = append(items, p.fields[format])
		}
		text, err := fill(entry, tpl, format, AggregateIdentifier, fields.Fields{templates.ItemsField: items})
		if err != nil {
			return err
		}
		outs = append(outs, rendered{
			target:  output.Target{Format: format, Subdir: entry.Subdir, Identifier: AggregateIdentifier},
			content: text,
		})
	}
	g.logger.Info("Rendering chronological aggregate",
		logfields.ContentType(entry.Type),
		logfields.Count(len(sorted)))
	return g.write(ctx, entry, outs, sum)
}

// prepareDir loads, parses and formats every record file in dir. Entries are
// visited in name order; subdirectories and dotfiles are ignored.
func (g *Generator) prepareDir(ctx context.Context, entry *catalog.Entry, dir string, sum *Summary) ([]prepared, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read source directory").
			Fatal().
			WithContext(logfields.KeyContentType, entry.Type).
			WithContext(logfields.KeySourcePath, dir).
			Build()
	}

	records := make([]prepared, 0, len(entries))
	for _, de := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, de.Name())
		p, ok := g.prepareFile(entry, path, record.Identifier(path), sum)
		if ok {
			records = append(records, p)
		}
	}
	return records, nil
}

// prepareFile loads one record. Data errors are logged and reported as !ok.
func (g *Generator) prepareFile(entry *catalog.Entry, path, id string, sum *Summary) (prepared, bool) {
	if _, supported := record.DetectFormat(path); !supported {
		g.skip(entry, id, path, metrics.SkipUnsupported, errors.New("unsupported file extension"), sum)
		return prepared{}, false
	}
	raw, err := record.Load(path)
	if err != nil {
		g.skip(entry, id, path, metrics.SkipLoad, err, sum)
		return prepared{}, false
	}
	rec := record.Parse(id, path, raw, entry.Rule.DatePaths())

	p := prepared{rec: rec, fields: make(map[fields.Format]fields.Fields, len(g.formats))}
	for _, format := range g.formats {
		if _, ok := entry.Template(format); !ok {
			continue
		}
		f, err := g.formatter.Format(entry.Rule, rec, format)
		if err != nil {
			var missing *fields.MissingFieldError
			if errors.As(err, &missing) {
				g.skip(entry, id, path, metrics.SkipMissingField, err, sum)
			} else {
				g.skip(entry, id, path, metrics.SkipLoad, err, sum)
			}
			return prepared{}, false
		}
		p.fields[format] = f
	}
	return p, true
}

// sortChronological orders records newest first by field, then by start-date,
// then by identifier. Opaque dates such as "Present" sort as most recent.
func sortChronological(records []prepared, field string) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].rec, records[j].rec
		if c := datevalue.Compare(dateOf(a, field), dateOf(b, field)); c != 0 {
			return c > 0
		}
		if field != "start-date" {
			if c := datevalue.Compare(dateOf(a, "start-date"), dateOf(b, "start-date")); c != 0 {
				return c > 0
			}
		}
		return a.ID < b.ID
	})
}

// dateOf returns the date at field. A missing date is treated as ongoing.
func dateOf(rec record.Parsed, field string) datevalue.Value {
	if field == "" {
		field = "start-date"
	}
	return datevalue.FromAny(rec.Fields[field])
}
