package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"git.home.luguber.info/inful/cvbuilder/internal/catalog"
	ferrors "git.home.luguber.info/inful/cvbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/cvbuilder/internal/logfields"
	"git.home.luguber.info/inful/cvbuilder/internal/metrics"
)

// Job is one configured (content type, source) pair. The stage sequence is
// chosen by the content type's catalog kind.
type Job struct {
	ContentType string
	Source      string
	// Aggregate also renders the chronological aggregate of a directory job.
	Aggregate bool
	// Optional jobs whose source does not exist are skipped silently.
	Optional bool
}

// Run executes jobs in order. Record-level data errors are logged and
// counted; template drift, path conflicts and unreadable source directories
// stop the run.
func (g *Generator) Run(ctx context.Context, jobs []Job) (Summary, error) {
	start := time.Now()
	var total Summary

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			g.recorder.IncRunOutcome(metrics.OutcomeCanceled)
			return total, err
		}

		sum, err := g.runJob(ctx, job)
		total.add(sum)
		if err != nil {
			outcome := metrics.OutcomeFailed
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				outcome = metrics.OutcomeCanceled
			}
			g.recorder.IncRunOutcome(outcome)
			return total, err
		}
	}

	outcome := metrics.OutcomeSuccess
	if total.Skipped > 0 {
		outcome = metrics.OutcomeWarning
	}
	g.recorder.IncRunOutcome(outcome)
	g.logger.Info("Generation complete",
		logfields.Count(total.Rendered),
		slog.Int("jobs", total.Jobs),
		slog.Int("skipped", total.Skipped),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	return total, nil
}

func (g *Generator) runJob(ctx context.Context, job Job) (Summary, error) {
	entry, ok := g.catalog.Lookup(job.ContentType)
	if !ok {
		return Summary{}, ferrors.ConfigError(fmt.Sprintf("unknown content type %q", job.ContentType)).Build()
	}
	if job.Aggregate && entry.Kind != catalog.KindDirectory {
		return Summary{}, ferrors.ConfigError("aggregate is only supported for directory content types").
			WithContext(logfields.KeyContentType, entry.Type).
			Build()
	}
	if job.Optional {
		if _, err := os.Stat(job.Source); errors.Is(err, fs.ErrNotExist) {
			g.logger.Info("Skipping optional job with missing source",
				logfields.ContentType(entry.Type),
				logfields.SourcePath(job.Source))
			return Summary{}, nil
		}
	}

	start := time.Now()
	g.logger.Debug("Running job",
		logfields.ContentType(entry.Type),
		logfields.JobKind(string(entry.Kind)),
		logfields.SourcePath(job.Source))

	var (
		sum Summary
		err error
	)
	switch entry.Kind {
	case catalog.KindDirectory:
		sum, err = g.directory(ctx, entry, job.Source, true, job.Aggregate)
	case catalog.KindFile:
		sum, err = g.GenerateFile(ctx, entry, job.Source)
	case catalog.KindIdentity:
		sum, err = g.GenerateIdentity(ctx, entry, job.Source)
	case catalog.KindMarkdown:
		sum, err = g.GenerateMarkdown(ctx, entry, job.Source)
	default:
		err = ferrors.InternalError(fmt.Sprintf("unhandled content kind %q", entry.Kind)).Build()
	}
	sum.Jobs = 1
	g.recorder.ObserveJobDuration(entry.Type, time.Since(start))
	return sum, err
}
