package util

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"45.5", 45*time.Second + 500*time.Millisecond},
		{"0", 0},
		{"1:30", 90 * time.Second},
		{"02:15.250", 2*time.Minute + 15*time.Second + 250*time.Millisecond},
		{"1:02:03", time.Hour + 2*time.Minute + 3*time.Second},
		{"00:00:00.001", time.Millisecond},
		{" 10 ", 10 * time.Second},
	}

	for _, tt := range tests {
		got, err := ParseTimestamp(tt.input)
		if err != nil {
			t.Errorf("ParseTimestamp(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseTimestampInvalid(t *testing.T) {
	for _, input := range []string{"", "abc", "1:2:3:4", "1:xx", "x:30:00"} {
		if _, err := ParseTimestamp(input); err == nil {
			t.Errorf("ParseTimestamp(%q) expected error", input)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00.000"},
		{45*time.Second + 500*time.Millisecond, "00:00:45.500"},
		{90 * time.Second, "00:01:30.000"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03.000"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestSeconds(t *testing.T) {
	if got := Seconds(3*time.Second + 250*time.Millisecond); got != "3.250" {
		t.Errorf("Seconds = %q, want 3.250", got)
	}
	if got := Seconds(0); got != "0.000" {
		t.Errorf("Seconds(0) = %q, want 0.000", got)
	}
}

func TestRoundToMillis(t *testing.T) {
	if got := RoundToMillis(time.Millisecond + 499*time.Microsecond); got != time.Millisecond {
		t.Errorf("rounded down: got %v", got)
	}
	if got := RoundToMillis(time.Millisecond + 500*time.Microsecond); got != 2*time.Millisecond {
		t.Errorf("rounded up: got %v", got)
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"30/1", 30},
		{"30000/1001", 30000.0 / 1001.0},
		{"0/0", 0},
		{"garbage", 0},
		{"30", 0},
	}

	for _, tt := range tests {
		if got := ParseFrameRate(tt.input); got != tt.want {
			t.Errorf("ParseFrameRate(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
