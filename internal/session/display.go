package session

import "fmt"

// TimeColor buckets the remaining time for display.
type TimeColor string

const (
	TimeColorSuccess TimeColor = "success"
	TimeColorWarning TimeColor = "warning"
	TimeColorDanger  TimeColor = "danger"
)

// FormatRemaining renders seconds as h:mm:ss, or m:ss under one hour.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ColorFor returns success above 50% of total, warning above 20%, danger
// otherwise. An unknown total is treated as plenty of time.
func ColorFor(remaining, total int) TimeColor {
	if total <= 0 {
		return TimeColorSuccess
	}
	pct := float64(remaining) / float64(total) * 100
	switch {
	case pct > 50:
		return TimeColorSuccess
	case pct > 20:
		return TimeColorWarning
	default:
		return TimeColorDanger
	}
}
