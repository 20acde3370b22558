package config

import (
	"fmt"
	"strconv"
	"strings"
)

// rateUnits maps size suffixes to byte multipliers. Longer suffixes come
// first so "MiB" is not read as "B".
var rateUnits = []struct {
	suffix     string
	multiplier float64
}{
	{"GIB", 1 << 30},
	{"MIB", 1 << 20},
	{"KIB", 1 << 10},
	{"GB", 1e9},
	{"MB", 1e6},
	{"KB", 1e3},
	{"B", 1},
}

// ParseRate converts a bandwidth string such as "5MB/s", "512KiB/s" or
// "250000" into bytes per second. Empty and "0" mean unlimited (0).
func ParseRate(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}

	num := s
	if strings.HasSuffix(strings.ToLower(num), "/s") {
		num = num[:len(num)-len("/s")]
	}

	multiplier := 1.0
	upper := strings.ToUpper(num)

	for _, u := range rateUnits {
		if strings.HasSuffix(upper, u.suffix) {
			num = strings.TrimSpace(num[:len(num)-len(u.suffix)])
			multiplier = u.multiplier

			break
		}
	}

	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rate %q: %w", s, err)
	}

	if n < 0 {
		return 0, fmt.Errorf("invalid rate %q: must be non-negative", s)
	}

	return int64(n * multiplier), nil
}
