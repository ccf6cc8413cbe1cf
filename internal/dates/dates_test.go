package dates

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	want := time.Date(2025, time.August, 5, 0, 0, 0, 0, time.UTC)
	tests := []string{
		"2025-08-05",
		"08/05/2025",
		"8/5/2025",
		"August 5, 2025",
		"Aug 5, 2025",
		"5 August 2025",
		"  Posted: August 5, 2025 ",
	}
	for _, in := range tests {
		got, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", in, err)
		}
		if !got.Equal(want) {
			t.Fatalf("Parse(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "yesterday", "5m ago", "13/45/2025"} {
		if _, err := Parse(in); err == nil {
			t.Fatalf("Parse(%q) expected error", in)
		}
	}
}

func TestFind(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"By staff | Sept 4, 2025 | News", time.Date(2025, time.September, 4, 0, 0, 0, 0, time.UTC)},
		{"Permit GL-2025-08-112 filed 2025-09-05 in Glendale", time.Date(2025, time.September, 5, 0, 0, 0, 0, time.UTC)},
		{"Updated 7/15/2025", time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC)},
		{"no date here", time.Time{}},
	}
	for _, tt := range tests {
		if got := Find(tt.in); !got.Equal(tt.want) {
			t.Fatalf("Find(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
