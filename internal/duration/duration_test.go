package duration

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content_resolver/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"PT1H2M3S", 3723},
		{"PT45S", 45},
		{"PT2H", 7200},
		{"PT10M", 600},
		{"PT1H30S", 3630},
		{"P1DT1S", 86401},
		{"P1W", 604800},
		{"PT0S", 0},
		{"P0D", 0},
		{"pt3m", 180},
		{"PT1M30.5S", 90},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, in := range []string{"not-a-duration", "", "P", "PT", "P1DT", "1H2M", "PT-5S", "PTXS", "3723"} {
		t.Run(in, func(t *testing.T) {
			got, err := Parse(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed))
			assert.True(t, errors.Is(err, domain.ErrMalformedDuration))
			assert.Zero(t, got)
		})
	}
}

func TestParse_OutOfRange(t *testing.T) {
	got, err := Parse("PT2147483647S")
	require.NoError(t, err)
	assert.Equal(t, MaxSeconds, got)

	for _, in := range []string{"PT3000000000000000H", "P100000D", "PT2147483648S", "P3551W", "PT99999999999999999999S"} {
		t.Run(in, func(t *testing.T) {
			got, err := Parse(in)
			assert.ErrorIs(t, err, ErrMalformed)
			assert.Zero(t, got)
		})
	}
}

func TestParseClock_OutOfRange(t *testing.T) {
	for _, in := range []string{"99999999999", "2147483648", "596524:00:00", "35791395:00"} {
		got, err := ParseClock(in)
		assert.ErrorIs(t, err, ErrMalformed, in)
		assert.Zero(t, got, in)
	}

	got, err := ParseClock("596523:14:07")
	require.NoError(t, err)
	assert.Equal(t, MaxSeconds, got)
}

func TestParseClock(t *testing.T) {
	tests := map[string]int{
		"1:02:03": 3723,
		"62:03":   3723,
		"3723":    3723,
		"00:45":   45,
	}
	for in, want := range tests {
		got, err := ParseClock(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "1:2:3:4", "ab:cd", "-1"} {
		_, err := ParseClock(in)
		assert.ErrorIs(t, err, ErrMalformed, in)
	}
}

func TestOptional(t *testing.T) {
	got, err := Optional("", Parse)
	require.NoError(t, err)
	assert.Nil(t, got, "absent duration stays unset")

	got, err = Optional("PT0S", Parse)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0, *got)

	got, err = Optional("bogus", Parse)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Nil(t, got)
}
