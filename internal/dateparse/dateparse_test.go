package dateparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseFrom(t *testing.T) {
	// Wednesday.
	ref := time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		input    string
		expected string
	}{
		{"today", "2024-01-17"},
		{"Hari  Ini", "2024-01-17"},
		{"besok", "2024-01-18"},
		{"Tomorrow", "2024-01-18"},
		{"kemarin", "2024-01-16"},
		{"lusa", "2024-01-19"},
		{"minggu depan", "2024-01-24"},
		{"next month", "2024-02-17"},
		{"akhir bulan", "2024-01-31"},
		{"eom", "2024-01-31"},
		{"awal bulan", "2024-01-01"},

		{"senin", "2024-01-22"},
		{"friday", "2024-01-19"},
		{"rabu", "2024-01-24"}, // same weekday goes to next week
		{"minggu", "2024-01-21"},

		{"+3", "2024-01-20"},
		{"+0", "2024-01-17"},
		{"in 2 days", "2024-01-19"},
		{"10 hari lagi", "2024-01-27"},
		{"in 1 week", "2024-01-24"},
		{"2 minggu lagi", "2024-01-31"},

		{"2024-03-05", "2024-03-05"},
		{"5/3/2024", "2024-03-05"},
		{"05-03-2024", "2024-03-05"},
		{"31.12.2024", "2024-12-31"},

		{"31/02/2024", "31/02/2024"},
		{" someday ", "someday"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseFrom(tt.input, ref))
		})
	}
}

func TestEndOfMonthLeapYear(t *testing.T) {
	ref := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-02-29", ParseFrom("akhir bulan", ref))
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("besok"))
	assert.True(t, IsValid("2024-06-01"))
	assert.True(t, IsValid("1/6/2024"))
	assert.False(t, IsValid("soon"))
	assert.False(t, IsValid(""))
}
