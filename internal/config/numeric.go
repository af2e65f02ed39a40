package config

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Configuration sources may carry trailing comments ("30  # seconds"), so
// numbers are taken from the first numeric substring instead of strict
// parsing.
var (
	intPattern   = regexp.MustCompile(`[-+]?\d+`)
	floatPattern = regexp.MustCompile(`[-+]?\d*\.?\d+`)
)

// Int extracts the first integer in raw, or returns def.
func Int(raw string, def int) int {
	m := intPattern.FindString(raw)
	if m == "" {
		return def
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return def
	}
	return n
}

// Float extracts the first real number in raw, or returns def.
func Float(raw string, def float64) float64 {
	m := floatPattern.FindString(raw)
	if m == "" {
		return def
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return def
	}
	return f
}

// Seconds reads a duration given in (possibly fractional) seconds.
func Seconds(raw string, def time.Duration) time.Duration {
	f := Float(raw, -1)
	if f < 0 {
		return def
	}
	return time.Duration(f * float64(time.Second))
}

// Bool reads a permissive boolean toggle.
func Bool(raw string, def bool) bool {
	fields := strings.Fields(strings.ToLower(raw))
	if len(fields) == 0 {
		return def
	}
	switch fields[0] {
	case "1", "true", "yes", "on", "y":
		return true
	case "0", "false", "no", "off", "n":
		return false
	default:
		return def
	}
}
