// Package duration parses the relative interval strings used by downsamplers,
// such as "60s", "5m" or "1h30m".
package duration

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/common/model"
)

// ErrFormat is returned for strings that are not a positive duration.
var ErrFormat = errors.New("malformed duration")

// Parse accepts an integer followed by one of ms, s, m, h, d, w or y, and
// concatenations of those in decreasing unit order. Zero is rejected.
func Parse(s string) (time.Duration, error) {
	d, err := model.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrFormat, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %q: duration must be positive", ErrFormat, s)
	}
	return time.Duration(d), nil
}
