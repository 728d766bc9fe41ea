package pipeline

import (
	"context"
	"os"

	"git.home.luguber.info/inful/cvbuilder/internal/catalog"
	ferrors "git.home.luguber.info/inful/cvbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/cvbuilder/internal/logfields"
	"git.home.luguber.info/inful/cvbuilder/internal/markup"
	"git.home.luguber.info/inful/cvbuilder/internal/metrics"
	"git.home.luguber.info/inful/cvbuilder/internal/output"
	"git.home.luguber.info/inful/cvbuilder/internal/record"
)

// GenerateFile renders a standalone record file. The output identifier is the
// content type.
func (g *Generator) GenerateFile(ctx context.Context, entry *catalog.Entry, path string) (Summary, error) {
	var sum Summary
	if entry.Kind != catalog.KindFile {
		return sum, ferrors.ConfigError("content type is not a file kind").
			WithContext(logfields.KeyContentType, entry.Type).
			Build()
	}
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	p, ok := g.prepareFile(entry, path, entry.Type, &sum)
	if !ok {
		return sum, nil
	}

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
			target:  output.Target{Format: format, Subdir: entry.Subdir, Identifier: entry.Type},
			content: text,
		})
	}
	err := g.write(ctx, entry, outs, &sum)
	return sum, err
}

// GenerateIdentity copies already typeset content unchanged into every
// format tree.
func (g *Generator) GenerateIdentity(ctx context.Context, entry *catalog.Entry, path string) (Summary, error) {
	var sum Summary
	if entry.Kind != catalog.KindIdentity {
		return sum, ferrors.ConfigError("content type is not an identity kind").
			WithContext(logfields.KeyContentType, entry.Type).
			Build()
	}
	id := record.Identifier(path)
	// #nosec G304 -- path comes from the configured job list.
	content, err := os.ReadFile(path)
	if err != nil {
		g.skip(entry, id, path, metrics.SkipLoad, err, &sum)
		return sum, nil
	}
	err = g.replicate(ctx, entry, id, string(content), &sum)
	return sum, err
}

// GenerateMarkdown converts a Markdown block to LaTeX and writes it like
// identity content.
func (g *Generator) GenerateMarkdown(ctx context.Context, entry *catalog.Entry, path string) (Summary, error) {
	var sum Summary
	if entry.Kind != catalog.KindMarkdown {
		return sum, ferrors.ConfigError("content type is not a markdown kind").
			WithContext(logfields.KeyContentType, entry.Type).
			Build()
	}
	id := record.Identifier(path)
	// #nosec G304 -- path comes from the configured job list.
	src, err := os.ReadFile(path)
	if err != nil {
		g.skip(entry, id, path, metrics.SkipLoad, err, &sum)
		return sum, nil
	}
	tex, err := markup.ToLaTeX(src)
	if err != nil {
		g.skip(entry, id, path, metrics.SkipLoad, err, &sum)
		return sum, nil
	}
	err = g.replicate(ctx, entry, id, tex, &sum)
	return sum, err
}

func (g *Generator) replicate(ctx context.Context, entry *catalog.Entry, id, content string, sum *Summary) error {
	outs := make([]rendered, 0, len(g.formats))
	for _, format := range g.formats {
		outs = append(outs, rendered{
			target:  output.Target{Format: format, Subdir: entry.Subdir, Identifier: id},
			content: content,
		})
	}
	return g.write(ctx, entry, outs, sum)
}
