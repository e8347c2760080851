package enums

import (
	"fmt"
	"slices"
	"strings"
)

// set is the closed list of values a string enum accepts, in display order.
type set[T ~string] []T

func (s set[T]) has(v T) bool {
	return slices.Contains(s, v)
}

// parse returns the member spelled exactly like raw.
func (s set[T]) parse(raw, what string) (T, error) {
	if v := T(raw); s.has(v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", what, raw)
}

// fold returns the member equal to raw ignoring case and surrounding space.
func (s set[T]) fold(raw, what string) (T, error) {
	want := strings.TrimSpace(raw)
	if i := slices.IndexFunc(s, func(v T) bool { return strings.EqualFold(string(v), want) }); i >= 0 {
		return s[i], nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", what, raw)
}
