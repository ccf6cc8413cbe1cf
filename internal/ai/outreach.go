package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/david/court-scout/internal/models"
)

// Sender identifies who signs outreach emails.
type Sender struct {
	Name    string `json:"name"`
	Company string `json:"company"`
}

var DefaultSender = Sender{Name: "Mike Woelfel", Company: "Elite Sports Builders"}

// OutreachEmail is a drafted email. Generated is false when the template was
// used instead of the model.
type OutreachEmail struct {
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Generated bool   `json:"generated"`
}

// DraftOutreachEmail asks the model for a short first-contact email about the
// prospect's court. Any model failure falls back to the fixed template, so
// the caller always gets an email.
func DraftOutreachEmail(ctx context.Context, client Completer, logger *zap.Logger, p models.Prospect, from Sender) OutreachEmail {
	fallback := TemplateEmail(p, from)
	if client == nil {
		return fallback
	}

	prompt := fmt.Sprintf(`Write a short, friendly first-contact email from %s of %s, a local sports court installation and resurfacing specialist, to %s.

Property: %s
Court type: %s
Condition score (0-10): %.1f
Assessment: %s

Offer a complimentary, no-obligation consultation. Do not invent prices. Keep it under 180 words.
Do not include a subject line. Sign it with the sender's full name and company.`,
		from.Name, from.Company, recipient(p), p.Address, p.CourtType, p.ConditionScore, p.AISummary)

	body, err := client.GenerateCompletion(ctx, prompt, false)
	body = strings.TrimSpace(body)
	if err != nil || body == "" {
		if logger != nil {
			logger.Warn("outreach generation failed, using template", zap.String("prospect_id", p.ID), zap.Error(err))
		}
		return fallback
	}
	return OutreachEmail{Subject: fallback.Subject, Body: body, Generated: true}
}

// TemplateEmail is the canned outreach email.
func TemplateEmail(p models.Prospect, from Sender) OutreachEmail {
	court := string(p.CourtType)
	if court == "" {
		court = "sports"
	}
	subject := fmt.Sprintf("Regarding Your Property's %s Court at %s", court, location(p))
	body := fmt.Sprintf(`Dear %s,

I hope this email finds you well. My name is %s, and I represent %s, a leading local specialist in the installation and resurfacing of high-quality sports courts.

While reviewing properties in your area, I noticed your beautiful %s court. Based on an initial visual assessment, it appears there may be some opportunities for surface rejuvenation to restore its original color and optimal playing condition.

We would be happy to provide a complimentary, no-obligation consultation to assess its condition and discuss potential resurfacing options that can protect your investment for years to come. Would you be available for a brief chat sometime next week?

Best regards,
%s
%s`, recipient(p), firstName(from.Name), from.Company, court, from.Name, from.Company)
	return OutreachEmail{Subject: subject, Body: body}
}

func recipient(p models.Prospect) string {
	if p.Homeowner != "" {
		return p.Homeowner
	}
	return p.Name
}

func location(p models.Prospect) string {
	if p.Address != "" {
		return p.Address
	}
	return p.Name
}

func firstName(full string) string {
	if f := strings.Fields(full); len(f) > 0 {
		return f[0]
	}
	return full
}
