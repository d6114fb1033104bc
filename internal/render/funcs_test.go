package render

import (
	"testing"
	"time"
)

func TestFormatDate(t *testing.T) {
	ts := time.Date(2026, 3, 14, 15, 4, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"value", ts, "March 14, 2026 at 3:04 PM"},
		{"pointer", &ts, "March 14, 2026 at 3:04 PM"},
		{"nil pointer", (*time.Time)(nil), ""},
		{"zero", time.Time{}, ""},
		{"wrong type", "yesterday", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatDate(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{45 * time.Minute, "45 minutes ago"},
		{3 * time.Hour, "3 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{12 * 24 * time.Hour, "12 days ago"},
		{40 * 24 * time.Hour, "February 2, 2026"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := timeAgo(now, now.Add(-tt.ago)); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPluralize(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0 articles"},
		{1, "1 article"},
		{2, "2 articles"},
	}
	for _, tt := range tests {
		if got := pluralize(tt.n, "article", "articles"); got != tt.want {
			t.Errorf("pluralize(%d): got %q, want %q", tt.n, got, tt.want)
		}
	}
}
