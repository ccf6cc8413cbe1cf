package intel

import (
	"regexp"
	"strconv"
	"strings"
)

// Amount is a money figure or range found in free text. A single figure with
// no "minimum" wording is reported as Max.
type Amount struct {
	Min      float64 `json:"min,omitempty"`
	Max      float64 `json:"max,omitempty"`
	Currency string  `json:"currency"`
}

// Value is the headline figure: the maximum when known, otherwise the minimum.
func (a Amount) Value() float64 {
	if a.Max > 0 {
		return a.Max
	}
	return a.Min
}

var amountRe = regexp.MustCompile(`(?i)(\$|usd\s*)?\s*(\d{1,3}(?:,\d{3})+|\d+)(\.\d+)?\s*(million|mm|m|thousand|k)?\b`)

// ParseAmount extracts figures such as "$750,000", "$1.2 million" or
// "$85k - $120k". Bare numbers only count when no figure carries a currency
// marker, so dates and street numbers next to a price are ignored.
func ParseAmount(text string) (Amount, bool) {
	lower := strings.ToLower(text)

	var marked, bare []float64
	for _, m := range amountRe.FindAllStringSubmatch(text, -1) {
		whole := strings.ReplaceAll(m[2], ",", "")
		val, err := strconv.ParseFloat(whole+m[3], 64)
		if err != nil || val <= 0 {
			continue
		}
		switch strings.ToLower(m[4]) {
		case "million", "mm", "m":
			val *= 1_000_000
		case "thousand", "k":
			val *= 1_000
		}
		if m[1] != "" || m[4] != "" {
			marked = append(marked, val)
		} else {
			bare = append(bare, val)
		}
	}

	amounts := marked
	if len(amounts) == 0 {
		amounts = bare
	}
	if len(amounts) == 0 {
		return Amount{}, false
	}

	a := Amount{Currency: "USD"}
	if len(amounts) == 1 {
		if strings.Contains(lower, "minimum") || strings.Contains(lower, "at least") {
			a.Min = amounts[0]
		} else {
			a.Max = amounts[0]
		}
		return a, true
	}

	a.Min, a.Max = amounts[0], amounts[0]
	for _, v := range amounts[1:] {
		a.Min = min(a.Min, v)
		a.Max = max(a.Max, v)
	}
	if a.Min == a.Max {
		a.Min = 0
	}
	return a, true
}

// FormatUSD renders whole dollars with thousands separators: 750000 -> "$750,000".
func FormatUSD(v float64) string {
	n := strconv.FormatInt(int64(v+0.5), 10)
	var b strings.Builder
	b.WriteByte('$')
	for i, r := range n {
		if i > 0 && (len(n)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
