// Package humanize renders story dates relative to now.
package humanize

import (
	"fmt"
	"time"
)

const layout = "2006-01-02 15:04:05"

// Since renders a normalized pubDate ("YYYY-MM-DD HH:MM:SS", UTC) as
// "5 minutes ago", "yesterday" and so on. Anything else is returned as is.
// Dates in the future read "just now".
func Since(pubDate string, now time.Time) string {
	t, err := time.ParseInLocation(layout, pubDate, time.UTC)
	if err != nil {
		return pubDate
	}
	d := now.Sub(t)
	days := int(d / (24 * time.Hour))
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute")
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour")
	case days == 1:
		return "yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		return plural(days/7, "week")
	case days < 365:
		return plural(days/30, "month")
	default:
		return plural(days/365, "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
