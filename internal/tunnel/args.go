package tunnel

import (
	"fmt"
	"strings"
)

// FlagTokens renders one option as command-line tokens.
//
// Any value whose string form is "true" or "false" (case-insensitive) is
// treated as a boolean flag, including plain strings such as "True".
func FlagTokens(key string, value any) []string {
	if key == "" {
		return []string{""}
	}
	s := fmt.Sprint(value)
	switch {
	case strings.EqualFold(s, "true"):
		return []string{"-" + key}
	case strings.EqualFold(s, "false"):
		return nil
	default:
		return []string{"-" + key, s}
	}
}
