package repl

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// MatchFunc selects the device path for a logical port among the
// enumerated candidates.
type MatchFunc func(port int, candidates []string) (string, bool)

// SubstringMatch picks the first candidate containing the decimal port
// number anywhere in its name. It is deliberately loose: port 1 matches
// "/dev/ttyUSB1" but also "/dev/ttyUSB10" if that is listed first.
func SubstringMatch(port int, candidates []string) (string, bool) {
	id := strconv.Itoa(port)
	for _, name := range candidates {
		if strings.Contains(name, id) {
			return name, true
		}
	}
	return "", false
}

// SuffixMatch picks the first candidate whose base name ends in exactly
// the port number, so port 1 matches "ttyUSB1" and "COM1" but not "ttyUSB10".
func SuffixMatch(port int, candidates []string) (string, bool) {
	for _, name := range candidates {
		digits := trailingDigits(filepath.Base(name))
		if digits == "" {
			continue
		}
		if n, err := strconv.Atoi(digits); err == nil && n == port {
			return name, true
		}
	}
	return "", false
}

func trailingDigits(s string) string {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	return s[i:]
}

// MatcherByName resolves a configured policy name.
func MatcherByName(name string) (MatchFunc, error) {
	switch strings.ToLower(name) {
	case "", "substring":
		return SubstringMatch, nil
	case "suffix":
		return SuffixMatch, nil
	default:
		return nil, fmt.Errorf("unknown match policy %q (valid: substring, suffix)", name)
	}
}
