package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration розширює time.ParseDuration суфіксом "d" (дні), наприклад "7d"
func ParseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", value)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", value)
	}
	return d, nil
}

// durationOr повертає fallback для порожнього значення
func durationOr(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	return ParseDuration(value)
}

// mustDuration для значень, вже перевірених у Validate
func mustDuration(value string, fallback time.Duration) time.Duration {
	d, err := durationOr(value, fallback)
	if err != nil || d == 0 {
		return fallback
	}
	return d
}
