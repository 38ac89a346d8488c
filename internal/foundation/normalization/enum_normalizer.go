package normalization

import "fmt"

// EnumNormalizer is a Normalizer that names its enum in error messages.
type EnumNormalizer[T comparable] struct {
	normalizer *Normalizer[T]
	enumName   string
}

// NewEnumNormalizer creates an enum normalizer with descriptive error messages.
func NewEnumNormalizer[T comparable](enumName string, values map[string]T, defaultValue T) *EnumNormalizer[T] {
	return &EnumNormalizer[T]{
		normalizer: NewNormalizer(values, defaultValue),
		enumName:   enumName,
	}
}

// Normalize converts raw to an enum value, returning the default on invalid input.
func (e *EnumNormalizer[T]) Normalize(raw string) T {
	return e.normalizer.Normalize(raw)
}

// NormalizeWithValidation converts raw to an enum value or reports why it cannot.
func (e *EnumNormalizer[T]) NormalizeWithValidation(raw string) (T, error) {
	result, err := e.normalizer.NormalizeWithError(raw)
	if err != nil {
		return result, fmt.Errorf("invalid %s: %w", e.enumName, err)
	}
	return result, nil
}

// IsValid reports whether raw names a known value.
func (e *EnumNormalizer[T]) IsValid(raw string) bool {
	_, err := e.normalizer.NormalizeWithError(raw)
	return err == nil
}

// ValidValues returns all accepted spellings, for help text.
func (e *EnumNormalizer[T]) ValidValues() []string {
	return e.normalizer.ValidKeys()
}
