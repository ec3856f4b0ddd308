package service

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{59 * time.Second, "00:59"},
		{61 * time.Second, "01:01"},
		{90 * time.Minute, "90:00"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatDurationHMS(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{61 * time.Second, "00:01:01"},
		{90 * time.Minute, "01:30:00"},
		{25 * time.Hour, "25:00:00"},
	}
	for _, tt := range tests {
		if got := FormatDurationHMS(tt.d); got != tt.want {
			t.Errorf("FormatDurationHMS(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFramesToSeconds(t *testing.T) {
	if got := FramesToSeconds(48000, 48000); got != 1.0 {
		t.Errorf("FramesToSeconds(48000, 48000) = %v", got)
	}
	if got := FramesToSeconds(24000, 48000); got != 0.5 {
		t.Errorf("FramesToSeconds(24000, 48000) = %v", got)
	}
	if got := FramesToSeconds(1000, 0); got != 0 {
		t.Errorf("FramesToSeconds with zero rate = %v", got)
	}
}
