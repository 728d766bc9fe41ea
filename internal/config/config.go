// Package config loads the cvbuilder.yaml run configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/cvbuilder/internal/fields"
	ferrors "git.home.luguber.info/inful/cvbuilder/internal/foundation/errors"
)

// DefaultPath is the configuration file used when none is given.
const DefaultPath = "cvbuilder.yaml"

// Config is the run configuration.
type Config struct {
	Output    OutputConfig    `yaml:"output"`
	Sources   SourcesConfig   `yaml:"sources"`
	Formats   []string        `yaml:"formats"`
	Layout    LayoutConfig    `yaml:"layout"`
	Limits    map[string]int  `yaml:"limits,omitempty"`
	Templates TemplatesConfig `yaml:"templates,omitempty"`
	Jobs      []JobConfig     `yaml:"jobs"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics,omitempty"`

	// Path is the file the configuration was read from; empty for defaults.
	Path string `yaml:"-"`
}

// OutputConfig sets where fragments are written.
type OutputConfig struct {
	Directory string `yaml:"directory"`
}

// SourcesConfig sets the directory job sources are relative to.
type SourcesConfig struct {
	Root string `yaml:"root"`
}

// LayoutConfig holds the resume line-break thresholds.
type LayoutConfig struct {
	CombinedLimit int    `yaml:"combined_limit"`
	TargetLimit   int    `yaml:"target_limit"`
	Marker        string `yaml:"marker"`
}

// TemplatesConfig points at an optional template override directory.
type TemplatesConfig struct {
	Directory string `yaml:"directory,omitempty"`
}

// JobConfig is one (content type, source) pair.
type JobConfig struct {
	ContentType string `yaml:"content_type"`
	Source      string `yaml:"source"`
	Aggregate   bool   `yaml:"aggregate,omitempty"`
	Optional    bool   `yaml:"optional,omitempty"`
}

// LoggingConfig selects log level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig enables the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// Default returns the stock configuration for the modules/ source layout.
func Default() *Config {
	return &Config{
		Output:  OutputConfig{Directory: "generated"},
		Sources: SourcesConfig{Root: "."},
		Formats: []string{string(fields.FormatCV), string(fields.FormatResume)},
		Layout: LayoutConfig{
			CombinedLimit: fields.DefaultCombinedLimit,
			TargetLimit:   fields.DefaultTargetLimit,
			Marker:        fields.DefaultMarker,
		},
		Jobs: []JobConfig{
			{ContentType: "aboutme", Source: "modules/aboutme.tex"},
			{ContentType: "summary", Source: "modules/summary.md", Optional: true},
			{ContentType: "contact-info", Source: "modules/contact-info.yaml"},
			{ContentType: "skill", Source: "modules/skills.yaml"},
			{ContentType: "compact-skill", Source: "modules/skills.yaml"},
			{ContentType: "language", Source: "modules/languages.yaml"},
			{ContentType: "education", Source: "modules/education-items", Aggregate: true},
			{ContentType: "work", Source: "modules/work-items", Aggregate: true},
			{ContentType: "experience", Source: "modules/experience-items", Aggregate: true},
			{ContentType: "course", Source: "modules/courses-items", Aggregate: true},
			{ContentType: "project", Source: "modules/projects-items", Aggregate: true},
			{ContentType: "award", Source: "modules/awards-items", Aggregate: true},
		},
		Logging: LoggingConfig{Level: string(LogLevelInfo), Format: string(LogFormatText)},
	}
}

// Load reads configPath on top of Default. Variables from .env files are
// loaded first and ${VAR} references are expanded before decoding. A missing
// file yields the defaults.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to load .env file").Fatal().Build()
	}

	cfg := Default()
	// #nosec G304 -- configPath is supplied by the operator.
	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			Fatal().
			WithContext("path", configPath).
			Build()
	}

	expanded := os.ExpandEnv(string(data))
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to parse config file").
			Fatal().
			WithContext("path", configPath).
			Build()
	}
	cfg.Path = configPath
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SourcePath resolves a job source against the sources root and the
// directory of the configuration file.
func (c *Config) SourcePath(job JobConfig) string {
	if filepath.IsAbs(job.Source) {
		return job.Source
	}
	root := c.Sources.Root
	if !filepath.IsAbs(root) && c.Path != "" {
		root = filepath.Join(filepath.Dir(c.Path), root)
	}
	return filepath.Join(root, job.Source)
}

// OutputDir resolves the output directory against the configuration file.
func (c *Config) OutputDir() string {
	return c.resolve(c.Output.Directory)
}

// TemplateDir resolves the template override directory; empty when unset.
func (c *Config) TemplateDir() string {
	if c.Templates.Directory == "" {
		return ""
	}
	return c.resolve(c.Templates.Directory)
}

// MetricsPath resolves the metrics textfile path; empty when disabled.
func (c *Config) MetricsPath() string {
	if c.Metrics.Textfile == "" {
		return ""
	}
	return c.resolve(c.Metrics.Textfile)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.Path == "" {
		return p
	}
	return filepath.Join(filepath.Dir(c.Path), p)
}

// FormatList returns the configured formats in generation order.
func (c *Config) FormatList() ([]fields.Format, error) {
	out := make([]fields.Format, 0, len(c.Formats))
	for _, raw := range c.Formats {
		f, err := fields.ParseFormat(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// LayoutSettings converts the layout section to formatter thresholds.
func (c *Config) LayoutSettings() fields.Layout {
	return fields.Layout{
		CombinedLimit: c.Layout.CombinedLimit,
		TargetLimit:   c.Layout.TargetLimit,
		Marker:        c.Layout.Marker,
	}
}

const initHeader = `# cvbuilder configuration.
# Job sources are relative to sources.root; ${VAR} references are expanded
# from the environment and from .env / .env.local.
`

// Init writes the default configuration to configPath.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).Build()
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to marshal config").Fatal().Build()
	}
	// #nosec G306 -- configuration files are not secret.
	if err := os.WriteFile(configPath, append([]byte(initHeader), data...), 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write config file").
			Fatal().
			WithContext("path", configPath).
			Build()
	}
	return nil
}
