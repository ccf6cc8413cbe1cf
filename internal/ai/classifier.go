package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/david/court-scout/internal/models"
)

// LeadScore is the model's read of a permit or news lead.
type LeadScore struct {
	Score      int                `json:"score"`
	Summary    string             `json:"summary"`
	CourtTypes []models.CourtType `json:"court_types"`
}

// ScoreLead rates how likely a permit or article turns into court work, 1-10.
func ScoreLead(ctx context.Context, client Completer, name, text string) (*LeadScore, error) {
	types := make([]string, len(models.CourtTypes))
	for i, ct := range models.CourtTypes {
		types[i] = string(ct)
	}

	prompt := fmt.Sprintf(`You qualify sales leads for a company that builds and resurfaces sports courts.

LEAD: %s
TEXT: %s

Return a JSON object:
{
  "score": 1-10,
  "summary": "one sentence on why this is or is not a court opportunity",
  "court_types": ["Tennis" | "Pickleball" | "Basketball"]
}

Rules:
1. 9-10 only when new court construction or resurfacing is explicit.
2. 6-8 when athletic or recreation facilities are involved but courts are not named.
3. 1-5 otherwise.
4. Use only these court types: %s.
5. RESPOND ONLY WITH JSON.`, name, truncate(text, 3000), strings.Join(types, ", "))

	resp, err := client.GenerateCompletion(ctx, prompt, true)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Score      int      `json:"score"`
		Summary    string   `json:"summary"`
		CourtTypes []string `json:"court_types"`
	}
	if err := json.Unmarshal([]byte(resp), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse lead score json: %w. Response: %s", err, truncate(resp, 200))
	}

	return &LeadScore{
		Score:      clampScore(raw.Score),
		Summary:    strings.TrimSpace(raw.Summary),
		CourtTypes: filterCourtTypes(raw.CourtTypes),
	}, nil
}

func clampScore(n int) int {
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}

// filterCourtTypes drops anything the model invented and canonicalizes case.
func filterCourtTypes(tags []string) []models.CourtType {
	valid := make([]models.CourtType, 0, len(tags))
	seen := map[models.CourtType]bool{}
	for _, t := range tags {
		for _, ct := range models.CourtTypes {
			if strings.EqualFold(string(ct), strings.TrimSpace(t)) && !seen[ct] {
				valid = append(valid, ct)
				seen[ct] = true
				break
			}
		}
	}
	return valid
}

// HeuristicLeadScore is used when no model is reachable: keywords in the
// text decide the score.
func HeuristicLeadScore(text string) *LeadScore {
	lower := strings.ToLower(text)
	score := 3
	var courts []models.CourtType
	for _, ct := range models.CourtTypes {
		if strings.Contains(lower, strings.ToLower(string(ct))) {
			courts = append(courts, ct)
		}
	}
	switch {
	case len(courts) > 0 && (strings.Contains(lower, "new") || strings.Contains(lower, "construction") || strings.Contains(lower, "resurfac")):
		score = 9
	case len(courts) > 0:
		score = 8
	case strings.Contains(lower, "athletic") || strings.Contains(lower, "recreation") || strings.Contains(lower, "park"):
		score = 6
	}
	return &LeadScore{Score: score, CourtTypes: courts}
}
