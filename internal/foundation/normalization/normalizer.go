// Package normalization maps loosely written configuration strings onto
// typed enum values.
package normalization

import (
	"fmt"
	"slices"
	"strings"
)

// Normalizer converts strings to enum values after trimming and lower-casing.
type Normalizer[T comparable] struct {
	validValues  map[string]T
	defaultValue T
	validKeys    []string // sorted, for error messages
}

// NewNormalizer creates a normalizer from string->value pairs. Keys are
// normalized the same way inputs are.
func NewNormalizer[T comparable](values map[string]T, defaultValue T) *Normalizer[T] {
	normalized := make(map[string]T, len(values))
	validKeys := make([]string, 0, len(values))
	for k, v := range values {
		key := normalizeKey(k)
		normalized[key] = v
		validKeys = append(validKeys, key)
	}
	slices.Sort(validKeys)

	return &Normalizer[T]{
		validValues:  normalized,
		defaultValue: defaultValue,
		validKeys:    validKeys,
	}
}

// Normalize returns the value for raw, or the default if raw is unknown.
func (n *Normalizer[T]) Normalize(raw string) T {
	if value, ok := n.validValues[normalizeKey(raw)]; ok {
		return value
	}
	return n.defaultValue
}

// NormalizeWithError returns the value for raw, or an error listing the
// accepted spellings.
func (n *Normalizer[T]) NormalizeWithError(raw string) (T, error) {
	if value, ok := n.validValues[normalizeKey(raw)]; ok {
		return value, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid value %q, valid options: %v", raw, n.validKeys)
}

// ValidKeys returns all accepted normalized keys in sorted order.
func (n *Normalizer[T]) ValidKeys() []string {
	return slices.Clone(n.validKeys)
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
