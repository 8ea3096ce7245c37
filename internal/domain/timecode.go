package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ZeroLabel is the label of a zero offset
const ZeroLabel = "0:00"

// SecondsToLabel formats whole seconds as H:MM:SS, or M:SS below one hour
func SecondsToLabel(totalSeconds int) string {
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// SecondsToLabelF rounds to the nearest whole second before formatting
func SecondsToLabelF(totalSeconds float64) string {
	return SecondsToLabel(int(math.Round(totalSeconds)))
}

// LabelToSeconds parses H:MM:SS, M:SS or a bare number of seconds.
// Parts that are not numbers count as zero; it never fails.
func LabelToSeconds(text string) int {
	parts := strings.Split(strings.TrimSpace(text), ":")
	values := make([]int, len(parts))
	for i, part := range parts {
		values[i] = parseTimePart(part)
	}

	switch len(values) {
	case 3:
		return values[0]*3600 + values[1]*60 + values[2]
	case 2:
		return values[0]*60 + values[1]
	default:
		return values[0]
	}
}

func parseTimePart(part string) int {
	part = strings.TrimSpace(part)
	if n, err := strconv.Atoi(part); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(part, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}
