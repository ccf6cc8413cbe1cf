package intel

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed config/sources.yaml
var sourcesYAML embed.FS

// Registry holds every competitor page the refresh knows about.
type Registry struct {
	Sources []Source `yaml:"sources"`
}

type FetchConfig struct {
	TimeoutSeconds int     `yaml:"timeout_seconds,omitempty"` // Default: 30
	RateLimitRPS   float64 `yaml:"rate_limit_rps,omitempty"`  // Default: 1.0
	MaxRetries     int     `yaml:"max_retries,omitempty"`
}

// Source kinds.
const (
	KindHTML      = "html"
	KindWordPress = "wordpress"
)

// Source is one competitor listing page, usually a blog or news index.
// WordPress sources are read through the REST API and need no selectors.
type Source struct {
	ID           string         `yaml:"id"`
	Kind         string         `yaml:"kind,omitempty"` // html (default), wordpress
	CompetitorID string         `yaml:"competitor_id"`
	Competitor   string         `yaml:"competitor"`
	BaseURL      string         `yaml:"base_url"`
	MaxArticles  int            `yaml:"max_articles,omitempty"`
	Selectors    SelectorConfig `yaml:"selectors"`
	Detail       DetailConfig   `yaml:"detail,omitempty"`
	Fetch        FetchConfig    `yaml:"fetch,omitempty"`
}

type SelectorConfig struct {
	Container string `yaml:"container"` // CSS selector for the list item wrapper
	Link      string `yaml:"link,omitempty"`
	Title     string `yaml:"title,omitempty"`
	Date      string `yaml:"date,omitempty"`
	Content   string `yaml:"content,omitempty"`
}

type DetailConfig struct {
	Enabled bool   `yaml:"enabled"`
	Body    string `yaml:"body,omitempty"`
}

// LoadRegistry reads sources.yaml from path when it is non-empty, otherwise the
// embedded copy. ${VAR} references are expanded from the environment.
func LoadRegistry(path string) (*Registry, error) {
	var (
		data []byte
		err  error
	)
	if path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = sourcesYAML.ReadFile("config/sources.yaml")
	}
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	var reg Registry
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &reg); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}

	seen := map[string]bool{}
	for i, s := range reg.Sources {
		if s.ID == "" {
			return nil, fmt.Errorf("source %d: missing id", i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate source id %s", s.ID)
		}
		seen[s.ID] = true
		switch s.Kind {
		case "", KindHTML:
			reg.Sources[i].Kind = KindHTML
			if s.Selectors.Container == "" {
				return nil, fmt.Errorf("source %s: selectors.container is required", s.ID)
			}
		case KindWordPress:
		default:
			return nil, fmt.Errorf("source %s: unknown kind %q", s.ID, s.Kind)
		}
	}
	return &reg, nil
}

// Enabled returns the sources that have a base URL.
func (r *Registry) Enabled() []Source {
	var out []Source
	for _, s := range r.Sources {
		if strings.TrimSpace(s.BaseURL) != "" {
			out = append(out, s)
		}
	}
	return out
}

func (r *Registry) Get(id string) (Source, bool) {
	for _, s := range r.Sources {
		if s.ID == id {
			return s, true
		}
	}
	return Source{}, false
}
