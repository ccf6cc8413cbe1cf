package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/david/court-scout/internal/models"
)

type fakeCompleter struct {
	responses []string
	err       error
	prompts   []string
}

func (f *fakeCompleter) GenerateCompletion(_ context.Context, prompt string, _ bool) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return r, nil
}

var miller = models.Prospect{
	ID:             "501",
	Type:           models.TypeResidential,
	Name:           "Miller Residence",
	Homeowner:      "Robert Miller",
	Address:        "6548 E Ironwood Dr, Paradise Valley, AZ",
	CourtType:      models.CourtTennis,
	ConditionScore: 6.2,
}

func TestOllamaClient_AgainstStubServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.URL.Path {
		case "/api/embeddings":
			assert.Equal(t, "nomic-embed-text", body["model"])
			_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{0.5, -0.25}})
		case "/api/generate":
			assert.Equal(t, "json", body["format"])
			_ = json.NewEncoder(w).Encode(map[string]any{"response": `{"ok":true}`, "done": true})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "", "")
	emb, err := c.GenerateEmbedding(context.Background(), "court")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.25}, emb)

	out, err := c.GenerateCompletion(context.Background(), "hi", true)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
}

func TestOllamaClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewOllamaClient(srv.URL, "", "").GenerateCompletion(context.Background(), "hi", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestTemplateEmail(t *testing.T) {
	email := TemplateEmail(miller, DefaultSender)
	assert.Equal(t, "Regarding Your Property's Tennis Court at 6548 E Ironwood Dr, Paradise Valley, AZ", email.Subject)
	assert.True(t, strings.HasPrefix(email.Body, "Dear Robert Miller,"))
	assert.Contains(t, email.Body, "My name is Mike, and I represent Elite Sports Builders")
	assert.Contains(t, email.Body, "your beautiful Tennis court")
	assert.True(t, strings.HasSuffix(email.Body, "Mike Woelfel\nElite Sports Builders"))
	assert.False(t, email.Generated)
}

func TestDraftOutreachEmail(t *testing.T) {
	t.Run("model output", func(t *testing.T) {
		fc := &fakeCompleter{responses: []string{"  Hi Robert, ...  "}}
		email := DraftOutreachEmail(context.Background(), fc, zap.NewNop(), miller, DefaultSender)
		assert.True(t, email.Generated)
		assert.Equal(t, "Hi Robert, ...", email.Body)
		require.Len(t, fc.prompts, 1)
		assert.Contains(t, fc.prompts[0], "Robert Miller")
	})
	t.Run("model error falls back", func(t *testing.T) {
		fc := &fakeCompleter{err: errors.New("connection refused")}
		email := DraftOutreachEmail(context.Background(), fc, zap.NewNop(), miller, DefaultSender)
		assert.Equal(t, TemplateEmail(miller, DefaultSender), email)
	})
	t.Run("empty output falls back", func(t *testing.T) {
		email := DraftOutreachEmail(context.Background(), &fakeCompleter{}, nil, miller, DefaultSender)
		assert.False(t, email.Generated)
	})
	t.Run("no client", func(t *testing.T) {
		email := DraftOutreachEmail(context.Background(), nil, nil, miller, DefaultSender)
		assert.False(t, email.Generated)
	})
}

func TestExtractIntel_RetriesInTextMode(t *testing.T) {
	fc := &fakeCompleter{responses: []string{
		"not json at all",
		"Sure! ```json\n{\"summary\": \"Won a district contract.\", \"extracted_data\": {\"Sector\": \"Education\"}}\n```",
	}}
	got, err := ExtractIntel(context.Background(), fc, zap.NewNop(), "Ace Resurfacing Co.", "Contract", "body")
	require.NoError(t, err)
	assert.Equal(t, "Won a district contract.", got.Summary)
	assert.Equal(t, "Education", got.ExtractedData["Sector"])
	assert.Len(t, fc.prompts, 2)
}

func TestExtractFirstJSONObject(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{`prefix {"a": {"b": "}"}} suffix`, `{"a": {"b": "}"}}`, true},
		{`{"a": "esc \" }"}`, `{"a": "esc \" }"}`, true},
		{`no object`, "", false},
		{`{"unterminated": 1`, "", false},
	}
	for _, tt := range tests {
		got, ok := extractFirstJSONObject(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("extractFirstJSONObject(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestScoreLead(t *testing.T) {
	fc := &fakeCompleter{responses: []string{`{"score": 14, "summary": " New courts. ", "court_types": ["pickleball", "Squash", "Pickleball"]}`}}
	got, err := ScoreLead(context.Background(), fc, "Anthem Community Center", "permit for pickleball")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Score)
	assert.Equal(t, "New courts.", got.Summary)
	assert.Equal(t, []models.CourtType{models.CourtPickleball}, got.CourtTypes)
}

func TestHeuristicLeadScore(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"Permit for new pickleball court construction", 9},
		{"Tennis court lighting repair", 8},
		{"Recreation center HVAC", 6},
		{"Office tenant improvement", 3},
	}
	for _, tt := range tests {
		if got := HeuristicLeadScore(tt.text).Score; got != tt.want {
			t.Fatalf("HeuristicLeadScore(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
