package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// IntelExtraction is the structured read of a competitor article.
type IntelExtraction struct {
	Summary       string            `json:"summary"`
	ExtractedData map[string]string `json:"extracted_data"`
}

// ExtractIntel asks the model to summarize a competitor article and pull out
// a few labeled facts (sector, offering, location, contract type).
func ExtractIntel(ctx context.Context, client Completer, logger *zap.Logger, competitor, headline, text string) (*IntelExtraction, error) {
	prompt := fmt.Sprintf(`You are a market analyst for a sports court resurfacing company in Arizona. Read the following article published by a competitor.

Competitor: %s
Headline: %s
Text:
%s

Instructions:
1. Summary: write 1-2 neutral sentences on what the competitor did and why it matters to a court resurfacing business.
2. extracted_data: up to 3 short labeled facts. Prefer these labels when they apply: "Sector", "Offering", "Target Market", "Project Location", "Contract Type", "Key Strength".

JSON Schema:
{
	"summary": "string",
	"extracted_data": {"Label": "value"}
}

Respond ONLY with the JSON object.`, competitor, headline, truncate(text, 4000))

	// JSON mode first, then plain text with lenient parsing.
	resp, err := client.GenerateCompletion(ctx, prompt, true)
	if err == nil {
		if data, parseErr := parseLLMResponse(resp); parseErr == nil {
			return data, nil
		} else {
			logger.Debug("JSON mode parse failed, retrying in text mode", zap.Error(parseErr))
		}
	} else {
		logger.Debug("JSON mode generation failed, retrying in text mode", zap.Error(err))
	}

	resp, err = client.GenerateCompletion(ctx, prompt, false)
	if err != nil {
		return nil, err
	}

	data, err := parseLLMResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse LLM JSON after retry: %w (response: %s)", err, truncate(resp, 200))
	}
	return data, nil
}

func parseLLMResponse(resp string) (*IntelExtraction, error) {
	cleaned := strings.TrimSpace(resp)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	if jsonStr, ok := extractFirstJSONObject(cleaned); ok {
		cleaned = jsonStr
	}

	var data IntelExtraction
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, err
	}
	if strings.TrimSpace(data.Summary) == "" {
		return nil, fmt.Errorf("empty summary")
	}
	return &data, nil
}

// extractFirstJSONObject finds the first outermost balanced {...}
func extractFirstJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}
		if char == '\\' {
			escaped = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			if char == '{' {
				depth++
			} else if char == '}' {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	return "", false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
