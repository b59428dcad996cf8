package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScheduleIntervals(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{raw: "10m", want: 10 * time.Minute},
		{raw: " interval:45s ", want: 45 * time.Second},
		{raw: "every:1h", want: time.Hour},
		{raw: "00:10", want: 10 * time.Minute},
		{raw: "01:30", want: 90 * time.Minute},
		{raw: "250ms", want: 250 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseSchedule(tt.raw)
			require.NoError(t, err)
			iv, ok := got.(Interval)
			require.True(t, ok, "got %T", got)
			assert.Equal(t, tt.want, time.Duration(iv))
		})
	}
}

func TestParseScheduleCron(t *testing.T) {
	base := time.Date(2026, 10, 19, 12, 3, 0, 0, time.UTC)
	tests := []struct {
		raw  string
		want time.Time
	}{
		{raw: "*/10 * * * *", want: time.Date(2026, 10, 19, 12, 10, 0, 0, time.UTC)},
		{raw: "cron:0 * * * *", want: time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC)},
		{raw: "@hourly", want: time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseSchedule(tt.raw)
			require.NoError(t, err)
			next := got.Next(base)
			assert.True(t, tt.want.Equal(next), "next = %v, want %v", next, tt.want)
		})
	}
}

func TestParseScheduleInvalid(t *testing.T) {
	for _, raw := range []string{"", "soon", "-5m", "0s", "00:75", "cron:", "cron:61 * * * *", "interval:"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseSchedule(raw)
			assert.Error(t, err)
		})
	}
}

func TestIntervalNext(t *testing.T) {
	now := time.Now()
	assert.True(t, now.Add(time.Minute).Equal(Interval(time.Minute).Next(now)))
}
