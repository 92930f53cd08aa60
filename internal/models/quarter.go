package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var quarterPattern = regexp.MustCompile(`(?i)^q([1-4])\s+fy(\d{2})-(\d{2})$`)

// ParseQuarter parses a quarter label of the form "Q<n> FY<yy>-<yy>" and
// returns the quarter number and the starting fiscal year. Labels are
// accepted case-insensitively with surrounding whitespace ignored.
func ParseQuarter(label string) (quarter, startYear int, err error) {
	m := quarterPattern.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return 0, 0, fmt.Errorf("invalid quarter label %q", label)
	}
	quarter, _ = strconv.Atoi(m[1])
	startYear, _ = strconv.Atoi(m[2])
	return quarter, 2000 + startYear, nil
}

// QuartersEqual reports whether two quarter labels refer to the same fiscal
// period, ignoring case and surrounding whitespace.
func QuartersEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// CompareQuarters orders two quarter labels chronologically. It returns a
// negative value when a precedes b, zero when equal, positive when a follows
// b. Labels that fail to parse sort before valid labels.
func CompareQuarters(a, b string) int {
	qa, ya, errA := ParseQuarter(a)
	qb, yb, errB := ParseQuarter(b)
	switch {
	case errA != nil && errB != nil:
		return strings.Compare(strings.TrimSpace(a), strings.TrimSpace(b))
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}
	if ya != yb {
		return ya - yb
	}
	return qa - qb
}
