package config

import (
	"fmt"

	"git.home.luguber.info/inful/cvbuilder/internal/fields"
	"git.home.luguber.info/inful/cvbuilder/internal/foundation"
)

// Validate checks the configuration and returns a classified validation error.
func (c *Config) Validate() error {
	result := foundation.StringNotEmpty("output.directory")(c.Output.Directory)

	if len(c.Formats) == 0 {
		result = result.Combine(foundation.Invalid(foundation.NewValidationError("formats", "required", "at least one format is required")))
	}
	seen := make(map[fields.Format]bool, len(c.Formats))
	for i, raw := range c.Formats {
		field := fmt.Sprintf("formats[%d]", i)
		f, err := fields.ParseFormat(raw)
		if err != nil {
			result = result.Combine(foundation.Invalid(foundation.NewValidationError(field, "one_of", err.Error())))
			continue
		}
		if seen[f] {
			result = result.Combine(foundation.Invalid(foundation.NewValidationError(field, "duplicate", fmt.Sprintf("format %s listed twice", f))))
		}
		seen[f] = true
	}

	result = result.
		Combine(foundation.NonNegative("layout.combined_limit")(c.Layout.CombinedLimit)).
		Combine(foundation.NonNegative("layout.target_limit")(c.Layout.TargetLimit))
	for name, limit := range c.Limits {
		result = result.Combine(foundation.NonNegative("limits." + name)(limit))
	}

	if len(c.Jobs) == 0 {
		result = result.Combine(foundation.Invalid(foundation.NewValidationError("jobs", "required", "at least one job is required")))
	}
	for i, job := range c.Jobs {
		result = result.
			Combine(foundation.StringNotEmpty(fmt.Sprintf("jobs[%d].content_type", i))(job.ContentType)).
			Combine(foundation.StringNotEmpty(fmt.Sprintf("jobs[%d].source", i))(job.Source))
	}

	levels := logLevelNormalizer.ValidKeys()
	if _, err := logLevelNormalizer.NormalizeWithError(c.Logging.Level); err != nil && c.Logging.Level != "" {
		result = result.Combine(foundation.OneOf("logging.level", levels)(c.Logging.Level))
	}
	if _, err := logFormatNormalizer.NormalizeWithError(c.Logging.Format); err != nil && c.Logging.Format != "" {
		result = result.Combine(foundation.OneOf("logging.format", logFormatNormalizer.ValidKeys())(c.Logging.Format))
	}
	return result.ToError()
}
