package intel

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/david/court-scout/internal/ai"
	"github.com/david/court-scout/internal/models"
)

// WebIntelStore persists refreshed intel. *db.Store satisfies it.
type WebIntelStore interface {
	UpsertWebIntel(ctx context.Context, items []models.WebIntel) (int, error)
}

// Refresher crawls every enabled source and stores what it finds.
type Refresher struct {
	Registry    *Registry
	Crawler     *Crawler
	LLM         ai.Completer // optional
	Store       WebIntelStore
	Logger      *zap.Logger
	Concurrency int
}

type SourceError struct {
	SourceID string `json:"source_id"`
	Error    string `json:"error"`
}

type RefreshResult struct {
	Sources    int               `json:"sources"`
	Articles   int               `json:"articles"`
	Saved      int               `json:"saved"`
	Errors     []SourceError     `json:"errors"`
	Items      []models.WebIntel `json:"-"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Run crawls the enabled sources concurrently. A source that fails is
// reported in the result and does not stop the others. Items are saved in
// registry order once every source has finished.
func (r *Refresher) Run(ctx context.Context) (*RefreshResult, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	crawler := r.Crawler
	if crawler == nil {
		crawler = NewCrawler(logger)
	}
	limit := r.Concurrency
	if limit <= 0 {
		limit = 3
	}

	sources := r.Registry.Enabled()
	res := &RefreshResult{Sources: len(sources), Errors: []SourceError{}, StartedAt: time.Now()}
	perSource := make([][]models.WebIntel, len(sources))

	var mu sync.Mutex
	addError := func(id string, err error) {
		mu.Lock()
		res.Errors = append(res.Errors, SourceError{SourceID: id, Error: err.Error()})
		mu.Unlock()
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i, src := range sources {
		eg.Go(func() error {
			articles, err := crawler.Crawl(egCtx, src)
			if err != nil {
				logger.Warn("intel source failed", zap.String("source", src.ID), zap.Error(err))
				addError(src.ID, err)
				return nil
			}
			items := make([]models.WebIntel, 0, len(articles))
			for _, a := range articles {
				items = append(items, r.toWebIntel(egCtx, logger, a))
			}
			perSource[i] = items
			logger.Info("intel source crawled", zap.String("source", src.ID), zap.Int("articles", len(items)))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, items := range perSource {
		res.Items = append(res.Items, items...)
	}
	res.Articles = len(res.Items)

	if r.Store != nil && len(res.Items) > 0 {
		n, err := r.Store.UpsertWebIntel(ctx, res.Items)
		if err != nil {
			return res, fmt.Errorf("save web intel: %w", err)
		}
		res.Saved = n
	}
	res.FinishedAt = time.Now()
	return res, nil
}

func (r *Refresher) toWebIntel(ctx context.Context, logger *zap.Logger, a Article) models.WebIntel {
	wi := models.WebIntel{
		ID:             WebIntelID(a.URL),
		CompetitorName: a.Competitor,
		Date:           a.Date,
		Headline:       a.Headline,
		AISummary:      a.Summary,
		SourceURL:      a.URL,
	}
	if r.LLM == nil {
		return wi
	}
	text := a.Body
	if text == "" {
		text = a.Summary
	}
	ext, err := ai.ExtractIntel(ctx, r.LLM, logger, a.Competitor, a.Headline, text)
	if err != nil {
		logger.Warn("intel extraction failed, keeping page summary", zap.String("url", a.URL), zap.Error(err))
		return wi
	}
	wi.AISummary = ext.Summary
	wi.ExtractedData = ext.ExtractedData
	return wi
}

// WebIntelID is stable per article URL so refreshes update rather than duplicate.
func WebIntelID(articleURL string) string {
	sum := sha1.Sum([]byte(articleURL))
	return "wi-" + hex.EncodeToString(sum[:])[:16]
}
