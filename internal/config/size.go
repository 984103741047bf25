package config

import (
	"strconv"
	"strings"

	platformerrors "github.com/jmgilman/seed/errors"
)

// ParseSize parses sizes such as "512", "200KB", "1.5GB" into bytes.
func ParseSize(s string) (int64, error) {
	in := s
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, platformerrors.New(platformerrors.CodeInvalidInput, "empty size")
	}

	multiplier := 1.0
	for _, unit := range []struct {
		suffix string
		factor float64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	} {
		if strings.HasSuffix(s, unit.suffix) {
			multiplier = unit.factor
			s = strings.TrimSpace(strings.TrimSuffix(s, unit.suffix))
			break
		}
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n < 0 {
		return 0, platformerrors.WithContext(
			platformerrors.Newf(platformerrors.CodeInvalidInput, "invalid size %q", in), "size", in)
	}
	return int64(n * multiplier), nil
}
