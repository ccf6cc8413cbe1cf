package models

// SeoRanking is a competitor's search position for one keyword. Change is the
// movement since the previous month; positive means it climbed.
type SeoRanking struct {
	Competitor string `json:"competitor" yaml:"competitor"`
	Keyword    string `json:"keyword" yaml:"keyword"`
	Rank       int    `json:"rank" yaml:"rank"`
	Change     int    `json:"change" yaml:"change"`
	URL        string `json:"url" yaml:"url"`
}

type SeoSeries struct {
	Label string `json:"label" yaml:"label"`
	Data  []int  `json:"data" yaml:"data"`
}

// SeoHistory is chart-ready: one label per month and one series per competitor.
type SeoHistory struct {
	Labels   []string    `json:"labels" yaml:"labels"`
	Datasets []SeoSeries `json:"datasets" yaml:"datasets"`
}

type SeoDataset struct {
	Keywords []string              `json:"keywords" yaml:"keywords"`
	Rankings []SeoRanking          `json:"rankings" yaml:"rankings"`
	History  map[string]SeoHistory `json:"history" yaml:"history"`
}

// RankingsFor filters rankings by keyword, keeping dataset order.
func (d SeoDataset) RankingsFor(keyword string) []SeoRanking {
	var out []SeoRanking
	for _, r := range d.Rankings {
		if r.Keyword == keyword {
			out = append(out, r)
		}
	}
	return out
}
