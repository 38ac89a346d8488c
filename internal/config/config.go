// Package config loads the pagebuilder YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/loader"
	"git.home.luguber.info/inful/pagebuilder/internal/markdown"
)

// DefaultFileName is the configuration file looked up when none is given.
const DefaultFileName = "pagebuilder.yaml"

// Config is the complete pagebuilder configuration.
type Config struct {
	Content ContentConfig `yaml:"content"`
	Build   BuildConfig   `yaml:"build"`
	Render  RenderConfig  `yaml:"render"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
}

// ContentConfig selects the documents to build.
type ContentConfig struct {
	Root          string   `yaml:"root"`
	Dirs          []string `yaml:"dirs,omitempty"`       // subdirectories of root; empty means all
	Extensions    []string `yaml:"extensions,omitempty"` // defaults to [".md"]
	IncludeDrafts bool     `yaml:"include_drafts"`
}

// BuildConfig controls the batch build.
type BuildConfig struct {
	Output  string `yaml:"output"`
	Workers int    `yaml:"workers"`
	Layout  string `yaml:"layout,omitempty"` // html/template file; empty uses the built-in layout
}

// RenderConfig controls Markdown rendering.
type RenderConfig struct {
	HTMLPolicy          HTMLPolicy `yaml:"html_policy"`
	ExtraDisallowedTags []string   `yaml:"extra_disallowed_tags,omitempty"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MetricsConfig controls metrics export.
type MetricsConfig struct {
	// Textfile is written in the node-exporter textfile format after each
	// build. Empty disables metrics.
	Textfile string `yaml:"textfile,omitempty"`
}

// Load reads configPath, expands ${VAR} references, then normalizes,
// defaults and validates the result. Relative paths are resolved against
// the directory holding configPath.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFiles(filepath.Dir(configPath)); err != nil {
		slog.Debug("No .env file loaded", slog.String("error", err.Error()))
	}

	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ferrors.ConfigError("configuration file not found").
			WithPath(configPath).WithCause(err).Build()
	}
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read config file").
			WithPath(configPath).Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(filepath.Dir(configPath))
	return cfg, nil
}

// Parse decodes YAML configuration from data after environment expansion.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to unmarshal config").Build()
	}

	res := NormalizeConfig(&cfg)
	for _, w := range res.Warnings {
		slog.Warn("Config normalization", slog.String("warning", w))
	}
	applyDefaults(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "configuration validation failed").Build()
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func (c *Config) resolvePaths(baseDir string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}
	c.Content.Root = resolve(c.Content.Root)
	c.Build.Output = resolve(c.Build.Output)
	c.Build.Layout = resolve(c.Build.Layout)
	c.Metrics.Textfile = resolve(c.Metrics.Textfile)
}

// LoaderConfig returns the loader settings.
func (c *Config) LoaderConfig() loader.Config {
	return loader.Config{
		Root:          c.Content.Root,
		Dirs:          c.Content.Dirs,
		Extensions:    c.Content.Extensions,
		IncludeDrafts: c.Content.IncludeDrafts,
	}
}

// MarkdownOptions returns the renderer settings.
func (c *Config) MarkdownOptions() markdown.Options {
	return markdown.Options{
		Policy: markdown.NewHTMLPolicy(c.Render.HTMLPolicy.PolicyMode(), c.Render.ExtraDisallowedTags...),
	}
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ValidationError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).Build()
	}

	example := Config{
		Content: ContentConfig{
			Root:          "./content",
			Dirs:          []string{"_posts", "docs"},
			IncludeDrafts: false,
		},
		Build: BuildConfig{
			Output:  "./public",
			Workers: 4,
		},
		Render: RenderConfig{
			HTMLPolicy:          HTMLPolicyAllowList,
			ExtraDisallowedTags: []string{"form"},
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
		Metrics: MetricsConfig{
			Textfile: "${PAGEBUILDER_METRICS_TEXTFILE}",
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write config file").
			WithPath(configPath).Build()
	}
	return nil
}
