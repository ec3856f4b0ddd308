package service

import (
	"fmt"
	"time"
)

// FormatDuration renders a duration as MM:SS.
func FormatDuration(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// FormatDurationHMS renders a duration as HH:MM:SS.
func FormatDurationHMS(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// FramesToSeconds converts a frame count at the given sample rate.
func FramesToSeconds(frames int64, sampleRate int) float64 {
	if sampleRate == 0 {
		return 0
	}
	return float64(frames) / float64(sampleRate)
}
