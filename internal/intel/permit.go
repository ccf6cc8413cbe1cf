package intel

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	rpdf "rsc.io/pdf"

	"github.com/david/court-scout/internal/ai"
	"github.com/david/court-scout/internal/dates"
	"github.com/david/court-scout/internal/geo"
	"github.com/david/court-scout/internal/models"
)

// Permit holds the fields read off a municipal building permit.
type Permit struct {
	Number      string     `json:"number"`
	Address     string     `json:"address"`
	ProjectType string     `json:"project_type"`
	Description string     `json:"description"`
	Contractor  string     `json:"contractor"`
	Valuation   float64    `json:"valuation"`
	Issued      *time.Time `json:"issued,omitempty"`
}

// ExtractPDFText concatenates the text fragments of every page. rsc.io/pdf
// panics on some malformed files, so panics come back as errors.
func ExtractPDFText(content []byte) (text string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("pdf parser panic: %v", recovered)
			text = ""
		}
	}()

	reader, err := rpdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		var lastY, lastEnd float64
		for i, fragment := range page.Content().Text {
			// Fragments are glyph runs; rebuild lines from their positions.
			switch {
			case i == 0:
			case math.Abs(fragment.Y-lastY) > fragment.FontSize/2:
				builder.WriteString("\n")
			case fragment.X > lastEnd+fragment.FontSize*0.15:
				builder.WriteString(" ")
			}
			builder.WriteString(fragment.S)
			lastY, lastEnd = fragment.Y, fragment.X+fragment.W
		}
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

var permitFields = map[string]*regexp.Regexp{
	"number":      regexp.MustCompile(`(?im)permit\s*(?:no\.?|number|#)\s*:?\s*([A-Z0-9][A-Z0-9-]{3,})`),
	"address":     regexp.MustCompile(`(?im)(?:site|project|job)?\s*address\s*:\s*(.+?)\s*$`),
	"projectType": regexp.MustCompile(`(?im)(?:project|work|permit)\s*type\s*:\s*(.+?)\s*$`),
	"description": regexp.MustCompile(`(?im)(?:description|scope of work)\s*:\s*(.+?)\s*$`),
	"contractor":  regexp.MustCompile(`(?im)contractor(?:\s*name)?\s*:\s*(.+?)\s*$`),
	"valuation":   regexp.MustCompile(`(?im)(?:valuation|job value|project value|estimated cost)\s*:?\s*(.+?)\s*$`),
	"issued":      regexp.MustCompile(`(?im)(?:issued?|issue date|date issued)\s*:?\s*(.+?)\s*$`),
}

// ParsePermit reads labeled "Field: value" lines from permit text.
func ParsePermit(text string) Permit {
	field := func(name string) string {
		if m := permitFields[name].FindStringSubmatch(text); m != nil {
			return normalizeSpace(m[1])
		}
		return ""
	}

	p := Permit{
		Number:      field("number"),
		Address:     field("address"),
		ProjectType: field("projectType"),
		Description: field("description"),
		Contractor:  field("contractor"),
	}
	if amt, ok := ParseAmount(field("valuation")); ok {
		p.Valuation = amt.Value()
	}
	if issued := field("issued"); issued != "" {
		if t := dates.Find(issued); !t.IsZero() {
			p.Issued = &t
		}
	}
	return p
}

// LeadOptions controls how a permit becomes a lead.
type LeadOptions struct {
	Coords geo.LatLng
	LLM    ai.Completer
	Logger *zap.Logger
}

// PermitLead turns a parsed permit into a permit lead. The model scores it
// when available; otherwise keywords do.
func PermitLead(ctx context.Context, p Permit, opts LeadOptions) models.Prospect {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	name := p.ProjectType
	if name == "" {
		name = "Building permit"
	}
	if p.Address != "" {
		name = fmt.Sprintf("%s at %s", name, p.Address)
	}
	text := strings.Join([]string{p.ProjectType, p.Description}, ". ")

	var score *ai.LeadScore
	if opts.LLM != nil {
		s, err := ai.ScoreLead(ctx, opts.LLM, name, text)
		if err != nil {
			logger.Warn("lead scoring failed, using keyword score", zap.String("permit", p.Number), zap.Error(err))
		} else {
			score = s
		}
	}
	if score == nil {
		score = ai.HeuristicLeadScore(text)
	}

	extracted := map[string]string{}
	if p.Number != "" {
		extracted["Permit #"] = p.Number
	}
	if p.Valuation > 0 {
		extracted["Valuation"] = FormatUSD(p.Valuation)
	}
	if p.ProjectType != "" {
		extracted["Project Type"] = p.ProjectType
	}

	summary := score.Summary
	if summary == "" {
		summary = p.Description
	}

	lead := models.Prospect{
		ID:            permitLeadID(p),
		Type:          models.TypePermit,
		Name:          name,
		Coords:        opts.Coords,
		AIScore:       score.Score,
		AISummary:     summary,
		ExtractedData: extracted,
		Contractor:    p.Contractor,
		Address:       p.Address,
		DetectedAt:    p.Issued,
	}
	if len(score.CourtTypes) > 0 {
		lead.CourtType = score.CourtTypes[0]
	}
	return lead
}

func permitLeadID(p Permit) string {
	key := p.Number
	if key == "" {
		key = p.Address + "|" + p.Description
	}
	sum := sha1.Sum([]byte(strings.ToUpper(key)))
	return "permit-" + hex.EncodeToString(sum[:])[:12]
}
