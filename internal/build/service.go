// Package build is the single execution path for generation runs. The CLI,
// the watch loop and the integration tests all go through Service.
package build

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/cvbuilder/internal/catalog"
	"git.home.luguber.info/inful/cvbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/cvbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/cvbuilder/internal/logfields"
	"git.home.luguber.info/inful/cvbuilder/internal/metrics"
	"git.home.luguber.info/inful/cvbuilder/internal/output"
	"git.home.luguber.info/inful/cvbuilder/internal/pipeline"
)

// Status is the overall outcome of a run.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusWarning   Status = "warning"
	StatusStale     Status = "stale"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsSuccess reports whether the run produced every output it could.
// Skipped records still count as success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess || s == StatusWarning
}

// Request describes one run.
type Request struct {
	Config *config.Config

	// OutputDir overrides the configured output directory when set.
	OutputDir string

	// Check compares rendered fragments with the files on disk instead of
	// writing them.
	Check bool
}

// Result is what a run did.
type Result struct {
	RunID     string
	Status    Status
	OutputDir string
	Summary   pipeline.Summary

	// Drifts and Checked are only filled for check runs.
	Drifts  []output.Drift
	Checked int

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Service runs generation requests.
type Service struct {
	logger   *slog.Logger
	recorder metrics.Recorder
	newRunID func() string
}

// NewService returns a Service logging to logger (slog.Default when nil).
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:   logger,
		newRunID: uuid.NewString,
	}
}

// WithRecorder forces a metrics recorder. Without one, runs record to a
// Prometheus registry when a metrics textfile is configured.
func (s *Service) WithRecorder(r metrics.Recorder) *Service {
	s.recorder = r
	return s
}

// WithRunIDFunc replaces the run id generator.
func (s *Service) WithRunIDFunc(f func() string) *Service {
	s.newRunID = f
	return s
}

// Run loads the template catalog, executes every configured job and reports
// the outcome. The returned Result is non-nil whenever Config is.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Config == nil {
		return nil, ferrors.ValidationError("build request has no configuration").Build()
	}
	cfg := req.Config

	result := &Result{
		RunID:     s.newRunID(),
		OutputDir: req.OutputDir,
		StartTime: time.Now(),
	}
	if result.OutputDir == "" {
		result.OutputDir = cfg.OutputDir()
	}
	logger := s.logger.With(logfields.RunID(result.RunID))
	defer func() {
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(result.StartTime)
	}()

	formats, err := cfg.FormatList()
	if err != nil {
		result.Status = StatusFailed
		return result, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid formats").Build()
	}

	cat, err := catalog.Load(catalog.Options{OverrideDir: cfg.TemplateDir(), MaxItems: cfg.Limits})
	if err != nil {
		result.Status = StatusFailed
		return result, err
	}

	recorder, prom := s.recorderFor(cfg)

	var sink output.Sink
	var check *output.CheckSink
	if req.Check {
		check = output.NewCheckSink(result.OutputDir)
		sink = check
	} else {
		sink = output.NewFileWriter(result.OutputDir)
	}

	gen, err := pipeline.New(pipeline.Options{
		Catalog:  cat,
		Sink:     sink,
		Formats:  formats,
		Layout:   cfg.LayoutSettings(),
		Logger:   logger,
		Recorder: recorder,
	})
	if err != nil {
		result.Status = StatusFailed
		return result, ferrors.WrapError(err, ferrors.CategoryInternal, "failed to create generator").Build()
	}

	logger.Info("Starting generation",
		logfields.OutputPath(result.OutputDir),
		slog.Int("jobs", len(cfg.Jobs)),
		slog.Bool("check", req.Check))

	sum, runErr := gen.Run(ctx, Jobs(cfg))
	result.Summary = sum
	if check != nil {
		result.Drifts = check.Drifts()
		result.Checked = check.Checked()
	}
	result.Status = statusFor(result, runErr)

	if prom != nil {
		path := cfg.MetricsPath()
		if err := prom.WriteTextfile(path); err != nil {
			logger.Warn("Failed to write metrics textfile", logfields.OutputPath(path), logfields.Error(err))
		}
	}
	return result, runErr
}

func (s *Service) recorderFor(cfg *config.Config) (metrics.Recorder, *metrics.PrometheusRecorder) {
	if s.recorder != nil {
		return s.recorder, nil
	}
	if cfg.MetricsPath() == "" {
		return metrics.NoopRecorder{}, nil
	}
	prom := metrics.NewPrometheusRecorder(nil)
	return prom, prom
}

func statusFor(result *Result, runErr error) Status {
	switch {
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		return StatusCancelled
	case runErr != nil:
		return StatusFailed
	case len(result.Drifts) > 0:
		return StatusStale
	case result.Summary.Skipped > 0:
		return StatusWarning
	default:
		return StatusSuccess
	}
}

// Jobs converts the configured jobs, resolving their sources.
func Jobs(cfg *config.Config) []pipeline.Job {
	jobs := make([]pipeline.Job, 0, len(cfg.Jobs))
	for _, j := range cfg.Jobs {
		jobs = append(jobs, pipeline.Job{
			ContentType: j.ContentType,
			Source:      cfg.SourcePath(j),
			Aggregate:   j.Aggregate,
			Optional:    j.Optional,
		})
	}
	return jobs
}
