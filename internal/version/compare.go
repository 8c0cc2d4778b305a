package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Parse parses a version leniently ("7.94", "v20", "2.43.0" are all accepted).
func Parse(v string) (*semver.Version, error) {
	parsed, err := semver.NewVersion(strings.TrimSpace(v))
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", v, err)
	}
	return parsed, nil
}

// Satisfies reports whether found is at least min. An empty min is always
// satisfied. Versions semver cannot parse are compared numerically segment
// by segment; an empty found version never satisfies a non-empty min.
func Satisfies(found, min string) bool {
	if min == "" {
		return true
	}
	if found == "" {
		return false
	}

	f, errF := Parse(found)
	m, errM := Parse(min)
	if errF == nil && errM == nil {
		return !f.LessThan(m)
	}
	return compareSegments(found, min) >= 0
}

// compareSegments compares dot-separated numeric prefixes. Non-numeric
// segments compare as zero.
func compareSegments(a, b string) int {
	as := strings.Split(strings.TrimPrefix(a, "v"), ".")
	bs := strings.Split(strings.TrimPrefix(b, "v"), ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		av, bv := segment(as, i), segment(bs, i)
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

func segment(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	digits := parts[i]
	for j, r := range digits {
		if r < '0' || r > '9' {
			digits = digits[:j]
			break
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
