// Package duration converts machine encoded durations into whole seconds.
package duration

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"content_resolver/internal/domain"
)

// ErrMalformed is returned when the input does not match the grammar or
// does not fit a Postgres INTEGER. A malformed duration is never reported as
// zero.
var ErrMalformed = domain.ErrMalformedDuration

// MaxSeconds is the largest duration the content table can store.
const MaxSeconds = math.MaxInt32

var isoPattern = regexp.MustCompile(`^P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)(?:[.,]\d+)?S)?)?$`)

// Parse reads an ISO-8601 duration such as "PT1H2M3S". Omitted components
// count as zero, fractional seconds are truncated.
func Parse(text string) (int, error) {
	s := strings.ToUpper(strings.TrimSpace(text))
	m := isoPattern.FindStringSubmatch(s)
	if m == nil || s == "P" || strings.HasSuffix(s, "T") {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, text)
	}

	units := [...]int{7 * 86400, 86400, 3600, 60, 1}
	total := 0
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil || n > (MaxSeconds-total)/unit {
			return 0, fmt.Errorf("%w: %q", ErrMalformed, text)
		}
		total += n * unit
	}
	return total, nil
}

// ParseClock reads "HH:MM:SS", "MM:SS" or plain seconds, the forms used by
// the itunes:duration feed extension.
func ParseClock(text string) (int, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrMalformed)
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, text)
	}

	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > MaxSeconds || total > (MaxSeconds-n)/60 {
			return 0, fmt.Errorf("%w: %q", ErrMalformed, text)
		}
		total = total*60 + n
	}
	return total, nil
}

// Optional parses text when present. An empty input yields (nil, nil) so
// callers can keep "absent" and "malformed" apart.
func Optional(text string, parse func(string) (int, error)) (*int, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	n, err := parse(text)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
