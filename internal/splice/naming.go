package splice

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var (
	unsafeChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	takeNumber  = regexp.MustCompile(`take(\d+)`)
)

// SanitizeName strips filesystem-unsafe characters from a human-provided
// component.
func SanitizeName(name string) string {
	return strings.TrimSpace(unsafeChars.ReplaceAllString(name, ""))
}

// TakeFilename derives the deterministic filename for a take:
// "track - instrument - takeN.ext".
func TakeFilename(trackName, instrument string, takeNum int, ext string) string {
	return fmt.Sprintf("%s - %s - take%d.%s",
		SanitizeName(trackName), SanitizeName(instrument), takeNum, ext)
}

// NextTakeNumber scans existing filenames in dir and returns the highest
// take number for the (track, instrument) pair plus one.
func NextTakeNumber(dir, trackName, instrument string) int {
	prefix := fmt.Sprintf("%s - %s - take", SanitizeName(trackName), SanitizeName(instrument))

	max := 0
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 1
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		if m := takeNumber.FindStringSubmatch(e.Name()); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > max {
				max = n
			}
		}
	}
	return max + 1
}
