// Package dates parses the handful of date shapes found in the catalog and on
// competitor sites. All results are midnight UTC.
package dates

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var layouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"02 January 2006",
	"2 Jan 2006",
	time.RFC3339,
}

var (
	isoRe   = regexp.MustCompile(`\b(20\d{2})-(\d{2})-(\d{2})\b`)
	usRe    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(20\d{2})\b`)
	monthRe = regexp.MustCompile(`\b(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)\.?\s+(\d{1,2}),?\s+(20\d{2})\b`)
)

var prefixes = []string{"Posted:", "Published:", "Posted on", "Published on", "Date:", "Filed:"}

// Parse accepts a bare date in one of the supported layouts.
func Parse(text string) (time.Time, error) {
	text = clean(text)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, text); err == nil {
			return midnight(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %q", text)
}

// MustParse is Parse for trusted literals.
func MustParse(text string) time.Time {
	t, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return t
}

// Find looks for the first recognizable date inside free text, e.g. a byline.
// The zero time means nothing was found.
func Find(text string) time.Time {
	if t, err := Parse(text); err == nil {
		return t
	}
	if m := isoRe.FindString(text); m != "" {
		if t, err := time.Parse("2006-01-02", m); err == nil {
			return t
		}
	}
	if m := usRe.FindStringSubmatch(text); len(m) == 4 {
		if t, err := time.Parse("1/2/2006", fmt.Sprintf("%s/%s/%s", m[1], m[2], m[3])); err == nil {
			return t
		}
	}
	if m := monthRe.FindStringSubmatch(text); len(m) == 4 {
		month := m[1]
		if month == "Sept" {
			month = "Sep"
		}
		s := fmt.Sprintf("%s %s, %s", month, m[2], m[3])
		if t, err := time.Parse("January 2, 2006", s); err == nil {
			return t
		}
		if t, err := time.Parse("Jan 2, 2006", s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func clean(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, p := range prefixes {
		if strings.HasPrefix(lower, strings.ToLower(p)) {
			s = strings.TrimSpace(s[len(p):])
			break
		}
	}
	return s
}
