package utils

import (
	"strconv"
	"strings"
	"time"
)

// ParseDuration safely parses a duration string like "10m", falling back to
// the given default on empty or malformed input.
func ParseDuration(d string, fallback time.Duration) time.Duration {
	if d == "" {
		return fallback
	}
	duration, err := time.ParseDuration(d)
	if err != nil {
		return fallback
	}
	return duration
}

// ParseValue turns a CSV cell into the most specific type it can: int, then
// float, then the trimmed string.
func ParseValue(s string) interface{} {
	s = strings.TrimSpace(s)

	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// ParseFloat parses a numeric cell, tolerating surrounding whitespace.
func ParseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// cellStrip lists characters removed from string cells before export. JSON
// remnants and commas break the downstream spreadsheet import.
const cellStrip = `[]{}"\,`

// CleanCell strips brackets, braces, quotes, backslashes and commas from a
// string cell.
func CleanCell(s string) string {
	if !strings.ContainsAny(s, cellStrip) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(cellStrip, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SafeFilename reduces a lender name to something usable as a file name
// component: path separators and whitespace become underscores.
func SafeFilename(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		case ' ', '\t':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if mapped == "" {
		return "unknown"
	}
	return mapped
}
