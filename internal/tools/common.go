package tools

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

const maxOutputRunes = 20_000

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxOutputRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxOutputRunes {
			return s[:i] + "\n... (truncated)"
		}
		n++
	}
	return s
}

// asJSON renders v for the model. Nil slices become [] so the model sees an
// empty list rather than null.
func asJSON[T any](v []T) (string, error) {
	if v == nil {
		v = []T{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}
	return truncate(string(b)), nil
}
