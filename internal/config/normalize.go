package config

import (
	"fmt"
	"strings"
)

// NormalizationResult captures adjustments and warnings from the normalization pass.
type NormalizationResult struct {
	Warnings []string
}

// NormalizeConfig canonicalizes enumerated and bounded fields before defaults
// are applied. It mutates c in place.
func NormalizeConfig(c *Config) *NormalizationResult {
	res := &NormalizationResult{}
	normalizeContent(&c.Content)
	normalizeBuild(&c.Build, res)
	normalizeRender(&c.Render, res)
	normalizeLogging(&c.Logging, res)
	return res
}

func normalizeContent(cc *ContentConfig) {
	cc.Dirs = trimAll(cc.Dirs)
	cc.Extensions = trimAll(cc.Extensions)
}

func normalizeBuild(b *BuildConfig, res *NormalizationResult) {
	if b.Workers < 0 {
		res.Warnings = append(res.Warnings, warnChanged("build.workers", b.Workers, 0))
		b.Workers = 0
	}
}

func normalizeRender(r *RenderConfig, res *NormalizationResult) {
	normalizeEnum(&r.HTMLPolicy, "render.html_policy", HTMLPolicyAllowList, htmlPolicyNormalizer, res)
	tags := trimAll(r.ExtraDisallowedTags)
	for i, t := range tags {
		tags[i] = strings.ToLower(t)
	}
	r.ExtraDisallowedTags = tags
}

func normalizeLogging(l *LoggingConfig, res *NormalizationResult) {
	normalizeEnum(&l.Level, "logging.level", LogLevelInfo, logLevelNormalizer, res)
	normalizeEnum(&l.Format, "logging.format", LogFormatText, logFormatNormalizer, res)
}

type enumNormalizer[T ~string] interface {
	NormalizeWithValidation(raw string) (T, error)
}

func normalizeEnum[T ~string](field *T, name string, def T, n enumNormalizer[T], res *NormalizationResult) {
	raw := string(*field)
	if strings.TrimSpace(raw) == "" {
		return
	}
	v, err := n.NormalizeWithValidation(raw)
	if err != nil {
		res.Warnings = append(res.Warnings, warnUnknown(name, raw, string(def)))
		*field = def
		return
	}
	if v != *field {
		res.Warnings = append(res.Warnings, warnChanged(name, *field, v))
		*field = v
	}
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func warnChanged(field string, from, to any) string {
	return fmt.Sprintf("normalized %s from '%v' to '%v'", field, from, to)
}

func warnUnknown(field, value, def string) string {
	return fmt.Sprintf("unknown %s '%s', defaulting to %s", field, value, def)
}
