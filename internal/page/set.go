package page

import (
	"encoding/json"
	"slices"
	"strings"
)

// Set is an immutable, sorted set of non-empty strings.
type Set struct {
	values []string
}

// NewSet trims, deduplicates and sorts values. Empty strings are dropped.
func NewSet(values ...string) Set {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return Set{values: slices.Compact(out)}
}

func (s Set) Len() int { return len(s.values) }

func (s Set) Has(v string) bool {
	_, found := slices.BinarySearch(s.values, v)
	return found
}

// Values returns a copy of the members in sorted order.
func (s Set) Values() []string {
	return append([]string{}, s.values...)
}

func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = NewSet(values...)
	return nil
}
