package config

import "runtime"

const (
	defaultContentRoot = "./content"
	defaultOutputDir   = "./public"
)

// applyDefaults fills in every unset field. It runs after normalization so
// canonical values drive the defaults.
func applyDefaults(cfg *Config) {
	if cfg.Content.Root == "" {
		cfg.Content.Root = defaultContentRoot
	}
	if cfg.Build.Output == "" {
		cfg.Build.Output = defaultOutputDir
	}
	if cfg.Build.Workers == 0 {
		cfg.Build.Workers = runtime.NumCPU()
	}
	if cfg.Render.HTMLPolicy == "" {
		cfg.Render.HTMLPolicy = HTMLPolicyAllowList
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}
}
