package config

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ValidateConfig checks a normalized, defaulted configuration.
func ValidateConfig(cfg *Config) error {
	if err := validateContent(&cfg.Content); err != nil {
		return err
	}
	if err := validatePaths(cfg); err != nil {
		return err
	}
	switch cfg.Render.HTMLPolicy {
	case HTMLPolicyAllowList, HTMLPolicyEscape:
	default:
		return fmt.Errorf("invalid render.html_policy: %s", cfg.Render.HTMLPolicy)
	}
	for _, tag := range cfg.Render.ExtraDisallowedTags {
		if strings.ContainsAny(tag, " <>/") {
			return fmt.Errorf("invalid tag name in render.extra_disallowed_tags: %q", tag)
		}
	}
	if cfg.Build.Workers < 1 {
		return errors.New("build.workers must be at least 1")
	}
	return nil
}

func validateContent(cc *ContentConfig) error {
	for _, d := range cc.Dirs {
		clean := path.Clean(filepath.ToSlash(d))
		if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
			return fmt.Errorf("content.dirs entry %q must be relative to content.root", d)
		}
	}
	for _, ext := range cc.Extensions {
		if strings.ContainsAny(ext, "/\\") {
			return fmt.Errorf("invalid content.extensions entry %q", ext)
		}
	}
	return nil
}

func validatePaths(cfg *Config) error {
	root, err := filepath.Abs(cfg.Content.Root)
	if err != nil {
		return fmt.Errorf("resolve content.root: %w", err)
	}
	out, err := filepath.Abs(cfg.Build.Output)
	if err != nil {
		return fmt.Errorf("resolve build.output: %w", err)
	}
	if root == out {
		return errors.New("build.output must differ from content.root")
	}
	if rel, err := filepath.Rel(out, root); err == nil && !strings.HasPrefix(rel, "..") {
		return errors.New("content.root must not be inside build.output")
	}
	return nil
}
