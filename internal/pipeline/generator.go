// Package pipeline runs the load, parse, format, fill and write stages for
// every configured content type.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/cvbuilder/internal/catalog"
	"git.home.luguber.info/inful/cvbuilder/internal/fields"
	ferrors "git.home.luguber.info/inful/cvbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/cvbuilder/internal/logfields"
	"git.home.luguber.info/inful/cvbuilder/internal/metrics"
	"git.home.luguber.info/inful/cvbuilder/internal/output"
	"git.home.luguber.info/inful/cvbuilder/internal/templates"
)

// AggregateIdentifier names the chronological aggregate output of a directory.
const AggregateIdentifier = "all-by-date"

// Options configures a Generator. Catalog and Sink are required.
type Options struct {
	Catalog  *catalog.Catalog
	Sink     output.Sink
	Formats  []fields.Format
	Layout   fields.Layout
	Logger   *slog.Logger
	Recorder metrics.Recorder
}

// Generator renders content types through the catalog into a sink.
type Generator struct {
	catalog   *catalog.Catalog
	sink      output.Sink
	formats   []fields.Format
	formatter *fields.Formatter
	logger    *slog.Logger
	recorder  metrics.Recorder
}

// New validates opts and fills defaults: all formats, the stock layout, the
// default logger and a NoopRecorder.
func New(opts Options) (*Generator, error) {
	if opts.Catalog == nil {
		return nil, errors.New("pipeline: catalog is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("pipeline: sink is required")
	}
	formats := opts.Formats
	if len(formats) == 0 {
		formats = fields.AllFormats
	}
	layout := opts.Layout
	if layout == (fields.Layout{}) {
		layout = fields.DefaultLayout()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Generator{
		catalog:   opts.Catalog,
		sink:      opts.Sink,
		formats:   formats,
		formatter: fields.NewFormatter(layout),
		logger:    logger,
		recorder:  recorder,
	}, nil
}

// Summary counts the work done by one or more generation calls.
type Summary struct {
	Jobs     int
	Rendered int
	Skipped  int
	Outputs  []string
	// Skips holds one record-category error per skipped record.
	Skips []*ferrors.ClassifiedError
}

func (s *Summary) add(other Summary) {
	s.Jobs += other.Jobs
	s.Rendered += other.Rendered
	s.Skipped += other.Skipped
	s.Outputs = append(s.Outputs, other.Outputs...)
	s.Skips = append(s.Skips, other.Skips...)
}

// rendered is one filled template awaiting its write.
type rendered struct {
	target  output.Target
	content string
}

// fill renders a template, classifying drift between template and formatter
// as a fatal template error.
func fill(entry *catalog.Entry, tpl templates.Template, format fields.Format, recordID string, f fields.Fields) (string, error) {
	text, err := tpl.Fill(f)
	if err == nil {
		return text, nil
	}
	return "", ferrors.WrapError(err, ferrors.CategoryTemplate, "template references a field the formatter does not produce").
		Fatal().
		WithContext(logfields.KeyContentType, entry.Type).
		WithContext(logfields.KeyFormat, string(format)).
		WithContext(logfields.KeyRecordID, recordID).
		Build()
}

// write hands every rendered output of one record to the sink. Callers render
// all formats first so that a record is written whole or not at all.
func (g *Generator) write(ctx context.Context, entry *catalog.Entry, outs []rendered, sum *Summary) error {
	for _, out := range outs {
		path, err := g.sink.Write(ctx, out.target, out.content)
		if err != nil {
			var conflict *output.PathConflictError
			if errors.As(err, &conflict) {
				return ferrors.WrapError(err, ferrors.CategoryFileSystem, "output path conflict").
					Fatal().
					WithContext(logfields.KeyOutputPath, conflict.Path).
					Build()
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, fmt.Sprintf("write %s output", entry.Type)).
				Fatal().
				WithContext(logfields.KeyContentType, entry.Type).
				Build()
		}
		g.logger.Debug("Wrote output",
			logfields.ContentType(entry.Type),
			logfields.Format(string(out.target.Format)),
			logfields.OutputPath(path))
		g.recorder.IncRendered(entry.Type, string(out.target.Format))
		sum.Rendered++
		sum.Outputs = append(sum.Outputs, path)
	}
	return nil
}

// skip logs a record-level data error and counts the skipped record.
func (g *Generator) skip(entry *catalog.Entry, id, source string, reason metrics.SkipReason, err error, sum *Summary) {
	rerr := ferrors.RecordError("record skipped").
		WithCause(err).
		WithContext(logfields.KeyContentType, entry.Type).
		WithContext(logfields.KeyRecordID, id).
		WithContext(logfields.KeySourcePath, source).
		Warning().
		Build()
	g.logger.Warn("Skipping record",
		logfields.ContentType(entry.Type),
		logfields.RecordID(id),
		logfields.SourcePath(source),
		slog.String("reason", string(reason)),
		slog.String("category", string(ferrors.GetCategory(rerr))),
		logfields.Error(err))
	g.recorder.IncSkipped(entry.Type, reason)
	sum.Skipped++
	sum.Skips = append(sum.Skips, rerr)
}
