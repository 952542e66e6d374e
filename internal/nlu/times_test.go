package nlu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findTime(times []TimeMatch, kind string) (TimeMatch, bool) {
	for _, tm := range times {
		if tm.Kind == kind {
			return tm, true
		}
	}
	return TimeMatch{}, false
}

func TestExtractTimesStandard(t *testing.T) {
	tests := []struct {
		text    string
		hours   int
		minutes int
		period  string
	}{
		{"meet at 3pm", 15, 0, "pm"},
		{"meet at 9am", 9, 0, "am"},
		{"meet at 12am", 0, 0, "am"},
		{"meet at 11:45 am", 11, 45, "am"},
		// bare low hours read as afternoon
		{"dinner at 6", 18, 0, "pm"},
		{"call at 10", 10, 0, "am"},
	}
	for _, tt := range tests {
		times := ExtractTimes(tt.text, testNow)
		tm, ok := findTime(times, "standard")
		require.True(t, ok, "text %q", tt.text)
		assert.Equal(t, tt.hours, tm.Hours, "text %q", tt.text)
		assert.Equal(t, tt.minutes, tm.Minutes, "text %q", tt.text)
		assert.Equal(t, tt.period, tm.Period, "text %q", tt.text)
		assert.Equal(t, tt.hours, tm.Date.Hour(), "text %q", tt.text)
	}
}

func TestExtractTimesMilitary(t *testing.T) {
	times := ExtractTimes("the train leaves at 14:45", testNow)
	tm, ok := findTime(times, "military")
	require.True(t, ok)
	assert.Equal(t, 14, tm.Hours)
	assert.Equal(t, 45, tm.Minutes)

	// out-of-range clock values are rejected
	times = ExtractTimes("code 27:95 is not a time", testNow)
	_, ok = findTime(times, "military")
	assert.False(t, ok)
}

func TestExtractTimesDescriptive(t *testing.T) {
	tests := []struct {
		text      string
		timeOfDay string
		hours     int
	}{
		{"sometime in the morning", "morning", 9},
		{"in the afternoon please", "afternoon", 14},
		{"a walk in the evening", "evening", 19},
		{"reading at night", "night", 21},
		{"lunch at noon", "noon", 12},
		{"not before midnight", "midnight", 0},
	}
	for _, tt := range tests {
		times := ExtractTimes(tt.text, testNow)
		tm, ok := findTime(times, "descriptive")
		require.True(t, ok, "text %q", tt.text)
		assert.Equal(t, tt.timeOfDay, tm.TimeOfDay, "text %q", tt.text)
		assert.Equal(t, tt.hours, tm.Hours, "text %q", tt.text)
	}
}
