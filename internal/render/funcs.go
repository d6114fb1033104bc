package render

import (
	"fmt"
	"time"
)

const (
	dateTimeLayout = "January 2, 2006 at 3:04 PM"
	dateLayout     = "January 2, 2006"
)

// toTime accepts time.Time or *time.Time; ok is false for nil or zero.
func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	}
	return time.Time{}, false
}

// formatDate renders a timestamp as "January 2, 2006 at 3:04 PM".
func formatDate(v any) string {
	t, ok := toTime(v)
	if !ok {
		return ""
	}
	return t.Format(dateTimeLayout)
}

// timeAgo renders a timestamp relative to now, falling back to the
// calendar date after a month.
func timeAgo(now time.Time, v any) string {
	t, ok := toTime(v)
	if !ok {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return pluralize(int(d/time.Minute), "minute", "minutes") + " ago"
	case d < 24*time.Hour:
		return pluralize(int(d/time.Hour), "hour", "hours") + " ago"
	case d < 30*24*time.Hour:
		return pluralize(int(d/(24*time.Hour)), "day", "days") + " ago"
	}
	return t.Format(dateLayout)
}

// pluralize renders "1 article" or "3 articles".
func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
